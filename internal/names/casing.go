// Package names owns identifier casing and table naming.
//
// Runtime (manifest) field names are camelCase; SQL column and table names are
// snake_case. ToSnakeCase and ToCamelCase share one word splitter so that
// ToSnakeCase(ToCamelCase(ToSnakeCase(x))) == ToSnakeCase(x) whenever every word
// starts with a letter. A digit-only segment joins the word before it
// ("a_1" -> "a1"), so such names do not round-trip.
package names

import (
	"strings"
	"unicode"
)

// SplitWords breaks an identifier into lowercase words.
//
// Boundaries are underscores, dashes, dots and spaces, a lower-to-upper hump
// ("inStock" -> in, stock) and the last capital of an acronym run followed by a
// lowercase letter ("HTTPServer" -> http, server). Digits stay attached to the
// word before them ("address2Line" -> address2, line).
func SplitWords(s string) []string {
	runes := []rune(s)
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	for i, r := range runes {
		if r == '_' || r == '-' || r == '.' || r == ' ' {
			flush()
			continue
		}

		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) || unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			}
		}

		current.WriteRune(r)
	}
	flush()

	return words
}

// ToSnakeCase converts an identifier to snake_case ("inStock" -> "in_stock").
func ToSnakeCase(s string) string {
	return strings.Join(SplitWords(s), "_")
}

// ToCamelCase converts an identifier to lower camelCase ("in_stock" -> "inStock").
func ToCamelCase(s string) string {
	words := SplitWords(s)
	if len(words) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// ToPascalCase converts an identifier to PascalCase ("product_category" -> "ProductCategory").
func ToPascalCase(s string) string {
	var b strings.Builder
	for _, w := range SplitWords(s) {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// ToKebabCase converts an identifier to kebab-case, used in URL paths and CLI verbs.
func ToKebabCase(s string) string {
	return strings.Join(SplitWords(s), "-")
}

func capitalize(w string) string {
	if w == "" {
		return ""
	}
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
