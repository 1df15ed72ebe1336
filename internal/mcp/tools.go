package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/projection"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// AddListObjectsTool registers smrt_list_objects.
func AddListObjectsTool(s *server.MCPServer, catalog *Catalog) {
	tool := mcp.NewTool(
		"smrt_list_objects",
		mcp.WithDescription("List every smart object in the scanned manifest with its collection, fields, methods and AI-callable tools."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createListObjectsHandler(catalog))
}

func createListObjectsHandler(catalog *Catalog) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m := catalog.Manifest()
		if m == nil {
			return mcp.NewToolResultError("no manifest loaded"), nil
		}

		response := &ListObjectsResponse{
			PackageName: m.PackageName,
			Objects:     make([]ObjectSummary, 0, len(m.Objects)),
		}
		for _, def := range m.Definitions() {
			summary := ObjectSummary{
				Name:       def.Name,
				ClassName:  def.ClassName,
				Collection: def.Collection,
				FilePath:   def.FilePath,
				Extends:    def.Extends,
				Fields:     def.FieldNames(),
				Methods:    def.MethodNames(),
			}
			for _, t := range def.Tools {
				summary.Tools = append(summary.Tools, t.Name)
			}
			response.Objects = append(response.Objects, summary)
		}
		response.Total = len(response.Objects)

		return jsonResult(response)
	}
}

// AddGetObjectTool registers smrt_get_object.
func AddGetObjectTool(s *server.MCPServer, catalog *Catalog, apiPrefix string) {
	tool := mcp.NewTool(
		"smrt_get_object",
		mcp.WithDescription("Get the full definition of one smart object, by class name or collection, together with its REST endpoints, CLI commands, MCP actions and tool schemas."),
		mcp.WithString("object",
			mcp.Required(),
			mcp.Description("Class name (e.g. 'Product') or collection name (e.g. 'products')")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createGetObjectHandler(catalog, apiPrefix))
}

func createGetObjectHandler(catalog *Catalog, apiPrefix string) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		name, err := parseStringArg(argsMap, "object", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		def, errResult := lookupObject(catalog, name)
		if errResult != nil {
			return errResult, nil
		}

		response := &GetObjectResponse{
			Object:     def,
			Endpoints:  []string{},
			Commands:   []string{},
			MCPActions: projection.MCPActions(def),
			Tools:      projection.Tools(def),
		}
		for _, e := range projection.Endpoints(def, apiPrefix) {
			response.Endpoints = append(response.Endpoints, e.Method+" "+e.Path)
		}
		for _, c := range projection.Commands(def) {
			response.Commands = append(response.Commands, c.Use())
		}
		if response.MCPActions == nil {
			response.MCPActions = []string{}
		}
		if response.Tools == nil {
			response.Tools = []manifest.ToolDefinition{}
		}

		return jsonResult(response)
	}
}

// AddSchemaTool registers smrt_schema.
func AddSchemaTool(s *server.MCPServer, catalog *Catalog, defaultDialect projection.Dialect) {
	tool := mcp.NewTool(
		"smrt_schema",
		mcp.WithDescription("Render the CREATE TABLE and CREATE INDEX statements for every smart object, ordered so referenced tables come first."),
		mcp.WithString("dialect",
			mcp.Description(fmt.Sprintf("SQL dialect: 'sqlite' or 'postgres' (default: %s)", defaultDialect)),
			mcp.Enum(string(projection.DialectSQLite), string(projection.DialectPostgres))),
		mcp.WithString("object",
			mcp.Description("Limit output to one class or collection")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSchemaHandler(catalog, defaultDialect))
}

func createSchemaHandler(catalog *Catalog, defaultDialect projection.Dialect) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		dialect := defaultDialect
		raw, err := parseStringArg(argsMap, "dialect", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if raw != "" {
			if dialect, err = projection.ParseDialect(raw); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		object, err := parseStringArg(argsMap, "object", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		m := catalog.Manifest()
		if m == nil {
			return mcp.NewToolResultError("no manifest loaded"), nil
		}

		var stmts []string
		if object != "" {
			def, errResult := lookupObject(catalog, object)
			if errResult != nil {
				return errResult, nil
			}
			stmts, err = projection.Statements(def, m, dialect)
		} else {
			stmts, err = projection.SchemaStatements(m, dialect)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("schema generation failed: %v", err)), nil
		}
		if stmts == nil {
			stmts = []string{}
		}

		return jsonResult(&SchemaResponse{Dialect: string(dialect), Statements: stmts})
	}
}

// AddValidateCallTool registers smrt_validate_call.
func AddValidateCallTool(s *server.MCPServer, catalog *Catalog) {
	tool := mcp.NewTool(
		"smrt_validate_call",
		mcp.WithDescription("Check a proposed AI tool call against the parameter schema derived from the method signature. Reports every mismatch without executing anything."),
		mcp.WithString("object",
			mcp.Required(),
			mcp.Description("Class name or collection that owns the method")),
		mcp.WithString("method",
			mcp.Required(),
			mcp.Description("Method name; it must be AI-callable")),
		mcp.WithObject("arguments",
			mcp.Description("Call arguments keyed by parameter name")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createValidateCallHandler(catalog))
}

func createValidateCallHandler(catalog *Catalog) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ValidateCallRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.Object == "" {
			return mcp.NewToolResultError("object parameter is required"), nil
		}
		if args.Method == "" {
			return mcp.NewToolResultError("method parameter is required"), nil
		}
		def, errResult := lookupObject(catalog, args.Object)
		if errResult != nil {
			return errResult, nil
		}

		var tool *manifest.ToolDefinition
		for _, m := range projection.CallableMethods(def) {
			if m.Name == args.Method {
				t := projection.Tool(def, m)
				tool = &t
				break
			}
		}
		if tool == nil {
			return mcp.NewToolResultError(fmt.Sprintf("method %s is not AI-callable on %s", args.Method, def.ClassName)), nil
		}

		response := &ValidateCallResponse{Object: def.ClassName, Tool: tool.Name, Valid: true}
		if err := projection.ValidateArguments(*tool, args.Arguments); err != nil {
			var ve *js.ValidationError
			if !errors.As(err, &ve) {
				return nil, fmt.Errorf("validation failed: %w", err)
			}
			response.Valid = false
			response.Errors = validationMessages(ve)
		}

		return jsonResult(response)
	}
}

// lookupObject resolves a class name first, then a collection name.
func lookupObject(catalog *Catalog, name string) (*manifest.SmartObjectDefinition, *mcp.CallToolResult) {
	m := catalog.Manifest()
	if m == nil {
		return nil, mcp.NewToolResultError("no manifest loaded")
	}
	if def, err := m.Object(name); err == nil {
		return def, nil
	}
	def, err := m.ByCollection(name)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return def, nil
}

// validationMessages flattens a validation error tree into its leaf messages.
func validationMessages(ve *js.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + ve.Message}
	}
	var out []string
	for _, cause := range ve.Causes {
		out = append(out, validationMessages(cause)...)
	}
	return out
}

// jsonResult returns v as JSON text (mcp-go convention).
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
