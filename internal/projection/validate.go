package projection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileTool compiles a tool's parameter schema for validation.
func CompileTool(tool manifest.ToolDefinition) (*js.Schema, error) {
	params := tool.Parameters
	if params == nil {
		params = &manifest.JSONSchema{Type: "object"}
	}

	buf, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("error encoding schema for tool %s: %w", tool.Name, err)
	}

	url := "file:///smrt/tools/" + tool.Name + ".json"
	compiler := js.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(buf)); err != nil {
		return nil, fmt.Errorf("error adding schema for tool %s: %w", tool.Name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("error compiling schema for tool %s: %w", tool.Name, err)
	}
	return schema, nil
}

// ValidateArguments checks call arguments against a tool's parameter schema.
// A *js.ValidationError is returned for arguments that do not match.
func ValidateArguments(tool manifest.ToolDefinition, args map[string]any) error {
	schema, err := CompileTool(tool)
	if err != nil {
		return err
	}

	if args == nil {
		args = map[string]any{}
	}

	// The validator expects JSON-decoded values; round-trip Go values first.
	buf, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("error encoding arguments: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(buf, &decoded); err != nil {
		return fmt.Errorf("error decoding arguments: %w", err)
	}

	return schema.Validate(decoded)
}
