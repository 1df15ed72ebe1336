package names

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Pluralize pluralizes the last word of a snake_case name using English rules,
// irregulars included ("category" -> "categories", "person" -> "people",
// "product_category" -> "product_categories").
func Pluralize(snake string) string {
	if snake == "" {
		return ""
	}

	idx := strings.LastIndex(snake, "_")
	head, last := "", snake
	if idx >= 0 {
		head, last = snake[:idx+1], snake[idx+1:]
	}
	if last == "" {
		return snake
	}

	return head + inflection.Plural(last)
}

// TableName resolves the table (and collection) name for a class.
// A non-empty explicit name is used verbatim; otherwise the class name is
// converted to snake_case and pluralized.
func TableName(className, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	return Pluralize(ToSnakeCase(className))
}
