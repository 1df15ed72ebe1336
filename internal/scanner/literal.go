package scanner

import (
	"math"
	"strconv"
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// literalKind classifies a statically known expression.
type literalKind int

const (
	litString literalKind = iota + 1
	litNumber
	litBool
	litNull
	litUndefined
	litArray
	litObject
)

// literal is the value of an expression that could be read without
// evaluating it. Numbers are int64 unless written with a decimal point or
// fractional; arrays are []any and objects map[string]any.
type literal struct {
	kind       literalKind
	value      any
	fractional bool
}

// defaultValue is the literal as a manifest default. undefined declares no
// default; null is kept as manifest.Null so it stays distinct from absent.
func (l literal) defaultValue() (any, bool) {
	switch l.kind {
	case litUndefined:
		return nil, false
	case litNull:
		return manifest.Null{}, true
	}
	return l.value, true
}

// readLiteral matches node against the literal expression shapes. It never
// evaluates anything: identifiers, calls, spreads, template substitutions and
// computed keys make the whole expression unresolvable.
func readLiteral(node *sitter.Node, source []byte) (literal, bool) {
	node = unwrapExpression(node)
	if node == nil {
		return literal{}, false
	}

	switch node.Kind() {
	case "string":
		return literal{kind: litString, value: stringValue(node, source)}, true

	case "template_string":
		if findChildByType(node, "template_substitution") != nil {
			return literal{}, false
		}
		return literal{kind: litString, value: stringValue(node, source)}, true

	case "number":
		return parseNumber(nodeText(node, source))

	case "true":
		return literal{kind: litBool, value: true}, true
	case "false":
		return literal{kind: litBool, value: false}, true
	case "null":
		return literal{kind: litNull}, true
	case "undefined":
		return literal{kind: litUndefined}, true

	case "unary_expression":
		op := nodeText(node.ChildByFieldName("operator"), source)
		arg, ok := readLiteral(node.ChildByFieldName("argument"), source)
		if !ok || arg.kind != litNumber {
			return literal{}, false
		}
		switch op {
		case "+":
			return arg, true
		case "-":
			switch v := arg.value.(type) {
			case int64:
				arg.value = -v
			case float64:
				arg.value = -v
			}
			return arg, true
		}
		return literal{}, false

	case "array":
		values := []any{}
		for _, el := range namedChildren(node) {
			lit, ok := readLiteral(el, source)
			if !ok {
				return literal{}, false
			}
			values = append(values, lit.value)
		}
		return literal{kind: litArray, value: values}, true

	case "object":
		values := map[string]any{}
		for _, child := range namedChildren(node) {
			if child.Kind() != "pair" {
				return literal{}, false
			}
			key, ok := propertyKey(child.ChildByFieldName("key"), source)
			if !ok {
				return literal{}, false
			}
			lit, ok := readLiteral(child.ChildByFieldName("value"), source)
			if !ok {
				return literal{}, false
			}
			values[key] = lit.value
		}
		return literal{kind: litObject, value: values}, true
	}

	return literal{}, false
}

// propertyKey reads a non-computed object key.
func propertyKey(node *sitter.Node, source []byte) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "property_identifier", "identifier", "shorthand_property_identifier":
		return nodeText(node, source), true
	case "string":
		return stringValue(node, source), true
	case "number":
		return nodeText(node, source), true
	}
	return "", false
}

// readString reads a string literal.
func readString(node *sitter.Node, source []byte) (string, bool) {
	lit, ok := readLiteral(node, source)
	if !ok || lit.kind != litString {
		return "", false
	}
	return lit.value.(string), true
}

// readStringArray reads an array whose elements are all string literals.
func readStringArray(node *sitter.Node, source []byte) ([]string, bool) {
	node = unwrapExpression(node)
	if node == nil || node.Kind() != "array" {
		return nil, false
	}
	out := []string{}
	for _, el := range namedChildren(node) {
		s, ok := readString(el, source)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// readBool reads a boolean literal.
func readBool(node *sitter.Node, source []byte) (bool, bool) {
	lit, ok := readLiteral(node, source)
	if !ok || lit.kind != litBool {
		return false, false
	}
	return lit.value.(bool), true
}

// readNumber reads a numeric literal as float64.
func readNumber(node *sitter.Node, source []byte) (float64, bool) {
	lit, ok := readLiteral(node, source)
	if !ok || lit.kind != litNumber {
		return 0, false
	}
	switch v := lit.value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// stringValue decodes a string or template string node from its fragments and
// escape sequences.
func stringValue(node *sitter.Node, source []byte) string {
	var b strings.Builder
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(uint(i))
		switch child.Kind() {
		case "string_fragment":
			b.WriteString(nodeText(child, source))
		case "escape_sequence":
			b.WriteString(unescape(nodeText(child, source)))
		}
	}
	return b.String()
}

// unescape decodes one escape sequence such as \n or \u0041.
func unescape(seq string) string {
	switch seq {
	case `\'`:
		return "'"
	case "\\`":
		return "`"
	case `\0`:
		return "\x00"
	case "\\\n", "\\\r\n":
		return ""
	}
	if strings.HasPrefix(seq, `\u{`) && strings.HasSuffix(seq, "}") {
		if r, err := strconv.ParseUint(seq[3:len(seq)-1], 16, 32); err == nil {
			return string(rune(r))
		}
	}
	if s, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return s
	}
	return strings.TrimPrefix(seq, `\`)
}

// parseNumber reads a numeric literal. A decimal point, or an exponent that
// produces a fractional value, makes it a decimal.
func parseNumber(text string) (literal, bool) {
	text = strings.ReplaceAll(text, "_", "")
	text = strings.TrimSuffix(text, "n")

	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") {
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return literal{}, false
		}
		return literal{kind: litNumber, value: v}, true
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return literal{}, false
	}
	if strings.Contains(text, ".") || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return literal{kind: litNumber, value: f, fractional: true}, true
	}
	return literal{kind: litNumber, value: int64(f)}, true
}
