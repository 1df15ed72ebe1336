package projection

import (
	"fmt"
	"slices"
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/names"
)

// CallableMethods returns the methods the ai config exposes as tools, in
// declaration order:
//   - public-async: public, non-static async methods
//   - all: every public method
//   - a list: the named methods that exist
//
// Methods in ai.exclude are always removed.
func CallableMethods(def *manifest.SmartObjectDefinition) []manifest.MethodDefinition {
	ai := def.DecoratorConfig.AI

	var out []manifest.MethodDefinition
	for pair := def.Methods.Oldest(); pair != nil; pair = pair.Next() {
		m := pair.Value
		if slices.Contains(ai.Exclude, m.Name) {
			continue
		}

		var callable bool
		switch ai.Callable.Mode {
		case manifest.CallableAll:
			callable = m.IsPublic
		case manifest.CallableList:
			callable = slices.Contains(ai.Callable.Methods, m.Name)
		default:
			callable = m.IsPublic && m.Async && !m.IsStatic
		}
		if callable {
			out = append(out, m)
		}
	}
	return out
}

// Tools derives one tool descriptor per callable method. The description is
// the ai.descriptions override, else the method's doc comment, else a
// generated sentence.
func Tools(def *manifest.SmartObjectDefinition) []manifest.ToolDefinition {
	methods := CallableMethods(def)
	if len(methods) == 0 {
		return nil
	}

	tools := make([]manifest.ToolDefinition, 0, len(methods))
	for _, m := range methods {
		tools = append(tools, Tool(def, m))
	}
	return tools
}

// Tool builds the descriptor for one method.
func Tool(def *manifest.SmartObjectDefinition, m manifest.MethodDefinition) manifest.ToolDefinition {
	description := def.DecoratorConfig.AI.Descriptions[m.Name]
	if description == "" {
		description = m.Description
	}
	if description == "" {
		description = fmt.Sprintf("%s on %s", strings.Join(names.SplitWords(m.Name), " "), def.Name)
		description = strings.ToUpper(description[:1]) + description[1:]
	}

	params := &manifest.JSONSchema{
		Type:       "object",
		Properties: manifest.NewSchemaProperties(),
	}
	for _, p := range m.Parameters {
		schema := TypeSchema(p.Type)
		if p.Default != nil {
			withDefault := *schema
			withDefault.Default = p.Default
			schema = &withDefault
		}
		params.Properties.Set(p.Name, schema)
		if !p.Optional {
			params.Required = append(params.Required, p.Name)
		}
	}

	return manifest.ToolDefinition{
		Name:        m.Name,
		Description: description,
		Parameters:  params,
	}
}
