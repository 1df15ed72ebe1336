package scanner

import (
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// fieldHelpers maps field-declaring helper calls to their semantic type.
var fieldHelpers = map[string]manifest.FieldType{
	"text":       manifest.FieldText,
	"integer":    manifest.FieldInteger,
	"decimal":    manifest.FieldDecimal,
	"boolean":    manifest.FieldBoolean,
	"datetime":   manifest.FieldDatetime,
	"json":       manifest.FieldJSON,
	"foreignKey": manifest.FieldForeignKey,
}

// fieldDecl is a field as read from one class body. ref is set when the
// annotation names a type that is only resolvable once every class in the
// scan is known.
type fieldDecl struct {
	name   string
	def    manifest.FieldDefinition
	ref    string
	line   int
	column int
}

// typeGuess is the result of mapping a type annotation.
type typeGuess struct {
	typ      manifest.FieldType
	number   bool // plain number: integer or decimal depending on the default
	ref      string
	nullable bool
	mixed    bool
	ok       bool
}

// inferField decides a field's semantic type, default and required flag.
// Precedence: helper call, annotation, initializer literal, text fallback.
func (x *memberExtractor) inferField(node *sitter.Node, name string) fieldDecl {
	line, col := position(node)
	fd := fieldDecl{name: name, line: line, column: col}

	value := node.ChildByFieldName("value")
	annotation := node.ChildByFieldName("type")
	optional := hasToken(node, "?")

	fd.def.Required = !optional && value == nil

	if value != nil {
		if call := unwrapExpression(value); call != nil && call.Kind() == "call_expression" {
			if typ, ok := fieldHelpers[calleeName(call, x.source)]; ok {
				x.helperField(&fd, typ, call)
				return fd
			}
		}
	}

	var lit literal
	var hasLit bool
	if value != nil {
		lit, hasLit = readLiteral(value, x.source)
		if hasLit {
			if d, ok := lit.defaultValue(); ok {
				fd.def.Default = d
			}
		}
	}

	if annotation != nil {
		guess := x.mapType(firstNamedChild(annotation))
		if guess.nullable {
			fd.def.Required = false
		}
		switch {
		case guess.mixed:
			fd.def.Type = manifest.FieldText
			x.warn(node, name, manifest.DiagMixedUnion, "union of unrelated types %q stored as text",
				nodeText(firstNamedChild(annotation), x.source))
			return fd
		case guess.ref != "":
			fd.ref = guess.ref
			return fd
		case guess.number:
			fd.def.Type = manifest.FieldInteger
			if hasLit && lit.kind == litNumber && lit.fractional {
				fd.def.Type = manifest.FieldDecimal
			}
			return fd
		case guess.ok:
			fd.def.Type = guess.typ
			return fd
		}
	}

	if hasLit {
		switch lit.kind {
		case litString:
			fd.def.Type = manifest.FieldText
			return fd
		case litNumber:
			fd.def.Type = manifest.FieldInteger
			if lit.fractional {
				fd.def.Type = manifest.FieldDecimal
			}
			return fd
		case litBool:
			fd.def.Type = manifest.FieldBoolean
			return fd
		case litArray, litObject:
			fd.def.Type = manifest.FieldJSON
			return fd
		}
	}

	if value != nil {
		v := unwrapExpression(value)
		switch {
		case v != nil && v.Kind() == "template_string":
			fd.def.Type = manifest.FieldText
			return fd
		case v != nil && v.Kind() == "new_expression" && calleeName(v, x.source) == "Date":
			fd.def.Type = manifest.FieldDatetime
			return fd
		}
	}

	fd.def.Type = manifest.FieldText
	x.warn(node, name, manifest.DiagUnresolvedType, "type cannot be inferred statically; stored as text")
	return fd
}

// helperField fills fd from a text()/integer()/.../foreignKey() call.
func (x *memberExtractor) helperField(fd *fieldDecl, typ manifest.FieldType, call *sitter.Node) {
	fd.def.Type = typ
	fd.def.Required = false

	args := callArguments(call)
	if typ == manifest.FieldForeignKey && len(args) > 0 {
		target := unwrapExpression(args[0])
		switch {
		case target == nil:
		case target.Kind() == "identifier" || target.Kind() == "member_expression":
			fd.def.Related = identifierName(target, x.source)
		case target.Kind() == "arrow_function":
			// foreignKey(() => Category)
			fd.def.Related = identifierName(unwrapExpression(target.ChildByFieldName("body")), x.source)
		default:
			if s, ok := readString(target, x.source); ok {
				fd.def.Related = s
			}
		}
		if fd.def.Related == "" {
			x.warn(args[0], fd.name, manifest.DiagUnresolvedType, "foreign key target cannot be read statically")
		}
		args = args[1:]
	}
	if len(args) == 0 {
		return
	}

	opts := unwrapExpression(args[0])
	if opts == nil || opts.Kind() != "object" {
		x.warn(args[0], fd.name, manifest.DiagAmbiguousConfig, "field options are not an object literal; ignored")
		return
	}

	for _, prop := range namedChildren(opts) {
		if prop.Kind() != "pair" {
			x.warn(prop, fd.name, manifest.DiagAmbiguousConfig, "field option cannot be read statically; ignored")
			continue
		}
		key, _ := propertyKey(prop.ChildByFieldName("key"), x.source)
		v := prop.ChildByFieldName("value")
		if !x.applyFieldOption(&fd.def, key, v) {
			x.warn(prop, fd.name, manifest.DiagAmbiguousConfig, "field option %q cannot be read statically; ignored", key)
		}
	}
}

func (x *memberExtractor) applyFieldOption(def *manifest.FieldDefinition, key string, v *sitter.Node) bool {
	switch key {
	case "min", "max":
		n, ok := readNumber(v, x.source)
		if !ok {
			return false
		}
		if key == "min" {
			def.Min = &n
		} else {
			def.Max = &n
		}
	case "minLength", "maxLength":
		n, ok := readNumber(v, x.source)
		if !ok {
			return false
		}
		i := int(n)
		if key == "minLength" {
			def.MinLength = &i
		} else {
			def.MaxLength = &i
		}
	case "required", "unique", "index":
		b, ok := readBool(v, x.source)
		if !ok {
			return false
		}
		switch key {
		case "required":
			def.Required = b
		case "unique":
			def.Unique = b
		case "index":
			def.Index = b
		}
	case "default":
		lit, ok := readLiteral(v, x.source)
		if !ok {
			return false
		}
		if d, ok := lit.defaultValue(); ok {
			def.Default = d
		}
	case "description", "related":
		s, ok := readString(v, x.source)
		if !ok {
			return false
		}
		if key == "description" {
			def.Description = s
		} else {
			def.Related = s
		}
	default:
		// Options consumed by other generators (label, onDelete, ...) are not
		// part of the schema model.
	}
	return true
}

// mapType maps a type node to a semantic field type.
func (x *memberExtractor) mapType(node *sitter.Node) typeGuess {
	if node == nil {
		return typeGuess{}
	}

	switch node.Kind() {
	case "predefined_type":
		switch nodeText(node, x.source) {
		case "string":
			return typeGuess{typ: manifest.FieldText, ok: true}
		case "number":
			return typeGuess{number: true, ok: true}
		case "bigint":
			return typeGuess{typ: manifest.FieldInteger, ok: true}
		case "boolean":
			return typeGuess{typ: manifest.FieldBoolean, ok: true}
		case "any", "unknown", "object":
			return typeGuess{typ: manifest.FieldJSON, ok: true}
		}
		return typeGuess{}

	case "type_identifier", "nested_type_identifier":
		name := identifierName(node, x.source)
		switch name {
		case "Date":
			return typeGuess{typ: manifest.FieldDatetime, ok: true}
		case "String":
			return typeGuess{typ: manifest.FieldText, ok: true}
		case "Number":
			return typeGuess{number: true, ok: true}
		case "Boolean":
			return typeGuess{typ: manifest.FieldBoolean, ok: true}
		case "Object", "Array", "Map", "Set":
			return typeGuess{typ: manifest.FieldJSON, ok: true}
		}
		return typeGuess{ref: name, ok: true}

	case "generic_type", "array_type", "tuple_type", "object_type", "readonly_type":
		return typeGuess{typ: manifest.FieldJSON, ok: true}

	case "parenthesized_type":
		return x.mapType(firstNamedChild(node))

	case "literal_type":
		inner := firstNamedChild(node)
		if inner == nil {
			return typeGuess{}
		}
		switch inner.Kind() {
		case "string":
			return typeGuess{typ: manifest.FieldText, ok: true}
		case "number", "unary_expression":
			return typeGuess{number: true, ok: true}
		case "true", "false":
			return typeGuess{typ: manifest.FieldBoolean, ok: true}
		case "null", "undefined":
			return typeGuess{nullable: true}
		}
		return typeGuess{}

	case "union_type":
		return x.mapUnion(node)
	}

	// undefined and null appear as bare tokens in some grammar versions.
	switch strings.TrimSpace(nodeText(node, x.source)) {
	case "null", "undefined":
		return typeGuess{nullable: true}
	}
	return typeGuess{}
}

// mapUnion drops null/undefined members and reduces the rest. Members that
// agree on one type (e.g. a set of string literals) keep it; anything else is
// mixed.
func (x *memberExtractor) mapUnion(node *sitter.Node) typeGuess {
	var members []*sitter.Node
	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		if n.Kind() == "union_type" {
			for _, c := range namedChildren(n) {
				collect(c)
			}
			return
		}
		members = append(members, n)
	}
	collect(node)

	result := typeGuess{}
	first := true
	for _, m := range members {
		g := x.mapType(m)
		if g.nullable {
			result.nullable = true
			continue
		}
		if !g.ok || g.mixed {
			return typeGuess{mixed: true, nullable: result.nullable}
		}
		if first {
			result.typ, result.number, result.ref, result.ok = g.typ, g.number, g.ref, true
			first = false
			continue
		}
		if g.typ != result.typ || g.number != result.number || g.ref != result.ref {
			return typeGuess{mixed: true, nullable: result.nullable}
		}
	}
	return result
}
