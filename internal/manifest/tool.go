package manifest

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ToolDefinition is an AI tool-call descriptor derived from one method.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  *JSONSchema `json:"parameters"`
}

// SchemaProperties keeps JSON-schema properties in parameter order.
type SchemaProperties = orderedmap.OrderedMap[string, *JSONSchema]

// NewSchemaProperties returns an empty property map.
func NewSchemaProperties() *SchemaProperties {
	return orderedmap.New[string, *JSONSchema]()
}

// JSONSchema is the subset of JSON Schema used for tool parameters.
type JSONSchema struct {
	Type                 string            `json:"type,omitempty"`
	Format               string            `json:"format,omitempty"`
	Description          string            `json:"description,omitempty"`
	Enum                 []any             `json:"enum,omitempty"`
	Items                *JSONSchema       `json:"items,omitempty"`
	Properties           *SchemaProperties `json:"properties,omitempty"`
	Required             []string          `json:"required,omitempty"`
	AnyOf                []*JSONSchema     `json:"anyOf,omitempty"`
	AdditionalProperties *JSONSchema       `json:"additionalProperties,omitempty"`
	Default              any               `json:"default,omitempty"`
}
