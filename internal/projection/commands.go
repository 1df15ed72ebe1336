package projection

import (
	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/names"
)

// Command is one generated CLI command, e.g. "product list".
type Command struct {
	Object string `json:"object"`
	Action string `json:"action"`
	Custom bool   `json:"custom,omitempty"`
}

// Use returns the command line form: "<object> <action>" in kebab case.
func (c Command) Use() string {
	return c.Object + " " + names.ToKebabCase(c.Action)
}

// Commands lists the CLI commands the cli config allows for def.
func Commands(def *manifest.SmartObjectDefinition) []Command {
	cli := def.DecoratorConfig.CLI
	if !cli.Enabled {
		return nil
	}

	object := names.ToKebabCase(def.Name)
	var out []Command
	for _, action := range StandardActions {
		if cli.Allows(action) {
			out = append(out, Command{Object: object, Action: action})
		}
	}
	for _, method := range customActions(def, cli) {
		out = append(out, Command{Object: object, Action: method, Custom: true})
	}
	return out
}

// MCPActions lists the MCP tool names the mcp config allows for def:
// "<collection>_<action>" in snake case.
func MCPActions(def *manifest.SmartObjectDefinition) []string {
	mcp := def.DecoratorConfig.MCP
	if !mcp.Enabled {
		return nil
	}

	var out []string
	for _, action := range StandardActions {
		if mcp.Allows(action) {
			out = append(out, def.Collection+"_"+action)
		}
	}
	for _, method := range customActions(def, mcp) {
		out = append(out, def.Collection+"_"+names.ToSnakeCase(method))
	}
	return out
}
