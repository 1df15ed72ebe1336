package scanner

import (
	"fmt"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// decoratorRef is one decorator on a class.
type decoratorRef struct {
	name string
	// args is the arguments node when the decorator is called, nil for @name.
	args *sitter.Node
	node *sitter.Node
}

// classDecorators returns the decorators written on a class declaration,
// including those placed before an enclosing export keyword.
func classDecorators(class *sitter.Node, source []byte) []decoratorRef {
	var nodes []*sitter.Node
	if parent := class.Parent(); parent != nil && parent.Kind() == "export_statement" {
		nodes = append(nodes, findChildrenByType(parent, "decorator")...)
	}
	nodes = append(nodes, findChildrenByType(class, "decorator")...)

	refs := make([]decoratorRef, 0, len(nodes))
	for _, n := range nodes {
		expr := firstNamedChild(n)
		if expr == nil {
			continue
		}
		ref := decoratorRef{node: n}
		switch expr.Kind() {
		case "call_expression":
			ref.name = identifierName(expr.ChildByFieldName("function"), source)
			ref.args = expr.ChildByFieldName("arguments")
		default:
			ref.name = identifierName(expr, source)
		}
		if ref.name != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// configExtractor turns a marker decorator's argument into a DecoratorConfig
// by matching literal shapes only. Keys it cannot read statically fall back to
// their inclusive default and produce a warning.
type configExtractor struct {
	source []byte
	diags  *diagnostics
	class  string
}

func (e *configExtractor) warn(node *sitter.Node, member, code, format string, args ...any) {
	e.diags.add(node, e.class, member, code, fmt.Sprintf(format, args...))
}

// extract reads the decorator arguments. A nil args node means defaults.
func (e *configExtractor) extract(args *sitter.Node) manifest.DecoratorConfig {
	cfg := manifest.DefaultDecoratorConfig()
	if args == nil {
		return cfg
	}

	values := namedChildren(args)
	if len(values) == 0 {
		return cfg
	}
	if len(values) > 1 {
		e.warn(values[1], "", manifest.DiagAmbiguousConfig, "extra decorator arguments ignored")
	}

	obj := unwrapExpression(values[0])
	if obj == nil || obj.Kind() != "object" {
		e.warn(values[0], "", manifest.DiagAmbiguousConfig,
			"decorator argument is not an object literal; using defaults")
		return cfg
	}

	for _, prop := range namedChildren(obj) {
		switch prop.Kind() {
		case "pair":
			key, ok := propertyKey(prop.ChildByFieldName("key"), e.source)
			if !ok {
				e.warn(prop, "", manifest.DiagAmbiguousConfig, "computed decorator key ignored")
				continue
			}
			e.applyKey(&cfg, key, prop.ChildByFieldName("value"))
		case "shorthand_property_identifier":
			key := nodeText(prop, e.source)
			e.warn(prop, key, manifest.DiagAmbiguousConfig,
				"%s refers to a variable and cannot be read statically; using default", key)
		case "spread_element":
			e.warn(prop, "", manifest.DiagAmbiguousConfig,
				"spread in decorator config cannot be read statically; explicit keys still apply")
		default:
			e.warn(prop, "", manifest.DiagAmbiguousConfig, "unsupported decorator config entry ignored")
		}
	}

	return cfg
}

func (e *configExtractor) applyKey(cfg *manifest.DecoratorConfig, key string, value *sitter.Node) {
	switch key {
	case "api":
		cfg.API = e.surface(key, value)
	case "cli":
		cfg.CLI = e.surface(key, value)
	case "mcp":
		cfg.MCP = e.surface(key, value)
	case "ai":
		cfg.AI = e.ai(value)
	case "hooks":
		cfg.Hooks = e.stringMap(value, key)
	case "tableName", "name":
		s, ok := readString(value, e.source)
		if !ok {
			e.warn(value, key, manifest.DiagAmbiguousConfig, "%s must be a string literal; ignored", key)
			return
		}
		if key == "tableName" {
			cfg.TableName = s
		} else {
			cfg.Name = s
		}
	default:
		e.warn(value, key, manifest.DiagUnknownConfigKey, "unknown decorator config key %q ignored", key)
	}
}

// surface reads api/cli/mcp: a boolean or {include, exclude}.
func (e *configExtractor) surface(key string, value *sitter.Node) manifest.SurfaceConfig {
	inclusive := manifest.SurfaceConfig{Enabled: true}

	if b, ok := readBool(value, e.source); ok {
		return manifest.SurfaceConfig{Enabled: b}
	}

	obj := unwrapExpression(value)
	if obj == nil || obj.Kind() != "object" {
		e.warn(value, key, manifest.DiagAmbiguousConfig,
			"%s must be a boolean or {include, exclude} literal; enabling all", key)
		return inclusive
	}

	s := manifest.SurfaceConfig{Enabled: true}
	for _, prop := range namedChildren(obj) {
		if prop.Kind() != "pair" {
			e.warn(prop, key, manifest.DiagAmbiguousConfig, "%s config cannot be read statically; enabling all", key)
			return inclusive
		}
		name, _ := propertyKey(prop.ChildByFieldName("key"), e.source)
		list, ok := readStringArray(prop.ChildByFieldName("value"), e.source)
		switch name {
		case "include", "exclude":
			if !ok {
				e.warn(prop, key, manifest.DiagAmbiguousConfig,
					"%s.%s must be an array of string literals; enabling all", key, name)
				return inclusive
			}
			if name == "include" {
				s.Include = list
			} else {
				s.Exclude = list
			}
		default:
			e.warn(prop, key, manifest.DiagUnknownConfigKey, "unknown key %s.%s ignored", key, name)
		}
	}
	return s
}

// ai reads {callable, exclude, descriptions}.
func (e *configExtractor) ai(value *sitter.Node) manifest.AIConfig {
	cfg := manifest.DefaultAIConfig()

	obj := unwrapExpression(value)
	if obj == nil || obj.Kind() != "object" {
		e.warn(value, "ai", manifest.DiagAmbiguousConfig, "ai must be an object literal; using defaults")
		return cfg
	}

	for _, prop := range namedChildren(obj) {
		if prop.Kind() != "pair" {
			e.warn(prop, "ai", manifest.DiagAmbiguousConfig, "ai config entry cannot be read statically; ignored")
			continue
		}
		name, _ := propertyKey(prop.ChildByFieldName("key"), e.source)
		v := prop.ChildByFieldName("value")

		switch name {
		case "callable":
			cfg.Callable = e.callable(v)
		case "exclude":
			list, ok := readStringArray(v, e.source)
			if !ok {
				e.warn(v, "ai.exclude", manifest.DiagAmbiguousConfig,
					"ai.exclude must be an array of string literals; ignored")
				continue
			}
			cfg.Exclude = list
		case "descriptions":
			cfg.Descriptions = e.stringMap(v, "ai.descriptions")
		default:
			e.warn(prop, "ai", manifest.DiagUnknownConfigKey, "unknown key ai.%s ignored", name)
		}
	}
	return cfg
}

func (e *configExtractor) callable(v *sitter.Node) manifest.CallableMode {
	if s, ok := readString(v, e.source); ok {
		switch s {
		case manifest.CallablePublicAsync, manifest.CallableAll:
			return manifest.CallableMode{Mode: s}
		}
		return manifest.CallableMode{Mode: manifest.CallableList, Methods: []string{s}}
	}
	if list, ok := readStringArray(v, e.source); ok {
		return manifest.CallableMode{Mode: manifest.CallableList, Methods: list}
	}
	e.warn(v, "ai.callable", manifest.DiagAmbiguousConfig,
		"ai.callable cannot be read statically; using %q", manifest.CallablePublicAsync)
	return manifest.CallableMode{Mode: manifest.CallablePublicAsync}
}

// stringMap reads an object literal whose values are all string literals.
// Entries that are not are skipped with a warning.
func (e *configExtractor) stringMap(v *sitter.Node, member string) map[string]string {
	obj := unwrapExpression(v)
	if obj == nil || obj.Kind() != "object" {
		e.warn(v, member, manifest.DiagAmbiguousConfig, "%s must be an object literal; ignored", member)
		return nil
	}

	out := map[string]string{}
	for _, prop := range namedChildren(obj) {
		if prop.Kind() != "pair" {
			e.warn(prop, member, manifest.DiagAmbiguousConfig, "%s entry cannot be read statically; ignored", member)
			continue
		}
		name, ok := propertyKey(prop.ChildByFieldName("key"), e.source)
		if !ok {
			e.warn(prop, member, manifest.DiagAmbiguousConfig, "computed key in %s ignored", member)
			continue
		}
		value, ok := readString(prop.ChildByFieldName("value"), e.source)
		if !ok {
			e.warn(prop, member+"."+name, manifest.DiagAmbiguousConfig, "%s.%s must be a string literal; ignored", member, name)
			continue
		}
		out[name] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
