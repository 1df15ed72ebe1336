package scanner

import (
	"fmt"
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// tableNameProperty is the static property that pins a class's table name.
// It is read in preference to the decorator because it survives minification.
const tableNameProperty = "tableName"

// memberExtractor reads fields and methods from one class body.
type memberExtractor struct {
	source []byte
	opts   *ScanOptions
	diags  *diagnostics
	class  string
}

func (x *memberExtractor) warn(node *sitter.Node, member, code, format string, args ...any) {
	x.diags.add(node, x.class, member, code, fmt.Sprintf(format, args...))
}

// classMembers holds a class body's own declarations in source order.
type classMembers struct {
	fields    []fieldDecl
	methods   []manifest.MethodDefinition
	tableName string
}

func (x *memberExtractor) extract(body *sitter.Node) classMembers {
	var out classMembers
	for _, member := range namedChildren(body) {
		switch member.Kind() {
		case "public_field_definition", "field_definition":
			x.field(member, &out)
		case "method_definition":
			if m, ok := x.method(member); ok {
				out.methods = append(out.methods, m)
			}
		}
	}
	return out
}

func (x *memberExtractor) field(node *sitter.Node, out *classMembers) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = node.ChildByFieldName("property")
	}
	name, ok := memberName(nameNode, x.source)
	if !ok {
		return
	}

	if hasToken(node, "static") {
		if name == tableNameProperty {
			if s, ok := readString(node.ChildByFieldName("value"), x.source); ok {
				out.tableName = s
			} else {
				x.warn(node, name, manifest.DiagAmbiguousConfig, "static tableName must be a string literal; ignored")
			}
		}
		return
	}

	if nameNode.Kind() == "private_property_identifier" {
		return
	}
	switch accessibility(node, x.source) {
	case "private", "protected":
		return
	}
	if isFunctionValue(node.ChildByFieldName("value")) {
		return
	}

	fd := x.inferField(node, name)
	fd.def.Description = firstNonEmpty(fd.def.Description, jsDoc(node, x.source))
	out.fields = append(out.fields, fd)
}

func (x *memberExtractor) method(node *sitter.Node) (manifest.MethodDefinition, bool) {
	nameNode := node.ChildByFieldName("name")
	name, ok := memberName(nameNode, x.source)
	if !ok || name == "constructor" {
		return manifest.MethodDefinition{}, false
	}
	if hasToken(node, "get") || hasToken(node, "set") {
		return manifest.MethodDefinition{}, false
	}

	isStatic := hasToken(node, "static")
	access := accessibility(node, x.source)
	isPublic := access != "private" && access != "protected" && nameNode.Kind() != "private_property_identifier"

	if !isPublic && !x.opts.IncludePrivateMethods {
		return manifest.MethodDefinition{}, false
	}
	if isStatic && !x.opts.IncludeStaticMethods {
		return manifest.MethodDefinition{}, false
	}

	m := manifest.MethodDefinition{
		Name:        name,
		Async:       hasToken(node, "async"),
		IsStatic:    isStatic,
		IsPublic:    isPublic,
		Parameters:  x.parameters(node.ChildByFieldName("parameters")),
		Description: jsDoc(node, x.source),
	}

	if rt := node.ChildByFieldName("return_type"); rt != nil {
		m.ReturnType = typeText(rt, x.source)
	}
	if m.ReturnType == "" {
		m.ReturnType = "any"
		if m.Async {
			m.ReturnType = "Promise<any>"
		}
	}
	return m, true
}

// parameters reads a formal_parameters node in declaration order.
func (x *memberExtractor) parameters(node *sitter.Node) []manifest.Parameter {
	params := []manifest.Parameter{}
	for i, p := range namedChildren(node) {
		if p.Kind() != "required_parameter" && p.Kind() != "optional_parameter" {
			continue
		}
		pattern := p.ChildByFieldName("pattern")
		if pattern == nil || pattern.Kind() == "this" {
			continue
		}

		param := manifest.Parameter{
			Name:     parameterName(pattern, i, x.source),
			Type:     "any",
			Optional: p.Kind() == "optional_parameter",
		}
		if t := p.ChildByFieldName("type"); t != nil {
			param.Type = typeText(t, x.source)
		}
		if pattern.Kind() == "rest_pattern" {
			param.Optional = true
			if p.ChildByFieldName("type") == nil {
				param.Type = "any[]"
			}
		}
		if v := p.ChildByFieldName("value"); v != nil {
			param.Optional = true
			if lit, ok := readLiteral(v, x.source); ok {
				if d, ok := lit.defaultValue(); ok {
					param.Default = d
				}
			}
		}
		params = append(params, param)
	}
	return params
}

func parameterName(pattern *sitter.Node, index int, source []byte) string {
	switch pattern.Kind() {
	case "identifier":
		return nodeText(pattern, source)
	case "rest_pattern":
		if inner := firstNamedChild(pattern); inner != nil && inner.Kind() == "identifier" {
			return nodeText(inner, source)
		}
	case "object_pattern":
		return "options"
	}
	return fmt.Sprintf("arg%d", index)
}

// typeText returns the declared type without the leading colon of a
// type_annotation.
func typeText(node *sitter.Node, source []byte) string {
	if node.Kind() == "type_annotation" {
		if inner := firstNamedChild(node); inner != nil {
			return strings.TrimSpace(nodeText(inner, source))
		}
	}
	return strings.TrimSpace(strings.TrimPrefix(nodeText(node, source), ":"))
}

// memberName reads a non-computed member name.
func memberName(node *sitter.Node, source []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "property_identifier", "private_property_identifier":
		return nodeText(node, source), true
	case "string":
		return stringValue(node, source), true
	case "number":
		return nodeText(node, source), true
	}
	return "", false
}

func isFunctionValue(node *sitter.Node) bool {
	node = unwrapExpression(node)
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
