package projection

import (
	"strconv"
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
)

// TypeSchema maps a declared TypeScript type string to a JSON schema.
// Unknown named types become objects; `any` and `unknown` accept anything.
func TypeSchema(ts string) *manifest.JSONSchema {
	ts = trimParens(strings.TrimSpace(ts))

	if members := splitTopLevel(ts, '|'); len(members) > 1 {
		return unionSchema(members)
	}

	switch ts {
	case "", "any", "unknown":
		return &manifest.JSONSchema{}
	case "string", "String":
		return &manifest.JSONSchema{Type: "string"}
	case "number", "Number":
		return &manifest.JSONSchema{Type: "number"}
	case "bigint":
		return &manifest.JSONSchema{Type: "integer"}
	case "boolean", "Boolean":
		return &manifest.JSONSchema{Type: "boolean"}
	case "true", "false":
		return &manifest.JSONSchema{Type: "boolean", Enum: []any{ts == "true"}}
	case "null":
		return &manifest.JSONSchema{Type: "null"}
	case "Date":
		return &manifest.JSONSchema{Type: "string", Format: "date-time"}
	case "object", "Object":
		return &manifest.JSONSchema{Type: "object"}
	}

	if s, ok := unquoteTS(ts); ok {
		return &manifest.JSONSchema{Type: "string", Enum: []any{s}}
	}
	if n, err := strconv.ParseFloat(ts, 64); err == nil {
		return &manifest.JSONSchema{Type: "number", Enum: []any{n}}
	}

	if inner, ok := strings.CutSuffix(ts, "[]"); ok {
		return &manifest.JSONSchema{Type: "array", Items: TypeSchema(inner)}
	}
	if strings.HasPrefix(ts, "[") && strings.HasSuffix(ts, "]") {
		return &manifest.JSONSchema{Type: "array"}
	}
	if strings.HasPrefix(ts, "{") {
		return &manifest.JSONSchema{Type: "object"}
	}

	if name, args, ok := genericParts(ts); ok {
		switch name {
		case "Array", "ReadonlyArray", "Set":
			if len(args) == 1 {
				return &manifest.JSONSchema{Type: "array", Items: TypeSchema(args[0])}
			}
			return &manifest.JSONSchema{Type: "array"}
		case "Promise":
			if len(args) == 1 {
				return TypeSchema(args[0])
			}
		case "Record", "Map":
			s := &manifest.JSONSchema{Type: "object"}
			if len(args) == 2 {
				s.AdditionalProperties = TypeSchema(args[1])
			}
			return s
		case "Partial", "Required", "Readonly", "Pick", "Omit":
			return &manifest.JSONSchema{Type: "object"}
		}
	}

	return &manifest.JSONSchema{Type: "object"}
}

// unionSchema drops null/undefined members, collapses string literal unions
// into an enum and otherwise uses anyOf.
func unionSchema(members []string) *manifest.JSONSchema {
	var kept []string
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "undefined" || m == "null" || m == "void" {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 1 {
		return TypeSchema(kept[0])
	}

	var enum []any
	for _, m := range kept {
		s, ok := unquoteTS(m)
		if !ok {
			enum = nil
			break
		}
		enum = append(enum, s)
	}
	if enum != nil {
		return &manifest.JSONSchema{Type: "string", Enum: enum}
	}

	s := &manifest.JSONSchema{}
	for _, m := range kept {
		s.AnyOf = append(s.AnyOf, TypeSchema(m))
	}
	return s
}

// splitTopLevel splits s at sep where it is not nested in brackets or quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '<' || c == '(' || c == '[' || c == '{':
			depth++
		case c == '>' || c == ')' || c == ']' || c == '}':
			if c == '>' && i > 0 && s[i-1] == '=' {
				continue // arrow in a function type
			}
			depth--
		case c == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	parts = append(parts, strings.TrimSpace(s[start:]))

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// genericParts splits "Name<A, B>" into its name and arguments.
func genericParts(ts string) (string, []string, bool) {
	open := strings.IndexByte(ts, '<')
	if open <= 0 || !strings.HasSuffix(ts, ">") {
		return "", nil, false
	}
	return strings.TrimSpace(ts[:open]), splitTopLevel(ts[open+1:len(ts)-1], ','), true
}

// trimParens removes parentheses that wrap the whole type.
func trimParens(ts string) string {
	for len(ts) >= 2 && ts[0] == '(' && closesAtEnd(ts) {
		ts = strings.TrimSpace(ts[1 : len(ts)-1])
	}
	return ts
}

// closesAtEnd reports whether the parenthesis opening ts closes at its end.
func closesAtEnd(ts string) bool {
	depth := 0
	for i := 0; i < len(ts); i++ {
		switch ts[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(ts)-1
			}
		}
	}
	return false
}

func unquoteTS(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '\'' && q != '"' && q != '`') || s[len(s)-1] != q {
		return "", false
	}
	return s[1 : len(s)-1], true
}
