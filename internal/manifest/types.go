// Package manifest defines the serializable description of every scanned
// smart object and the assembler that merges per-file scan results into one
// versioned Manifest.
//
// A Manifest is plain data: no functions, no live syntax-tree references. It is
// built once per scan, never patched in place, and consumers that need to
// change a definition work on a Clone.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FieldType is the closed set of semantic field types.
type FieldType string

const (
	FieldText       FieldType = "text"
	FieldInteger    FieldType = "integer"
	FieldDecimal    FieldType = "decimal"
	FieldBoolean    FieldType = "boolean"
	FieldDatetime   FieldType = "datetime"
	FieldJSON       FieldType = "json"
	FieldForeignKey FieldType = "foreignKey"
)

// FieldTypes lists every FieldType in declaration order.
var FieldTypes = []FieldType{
	FieldText, FieldInteger, FieldDecimal, FieldBoolean, FieldDatetime, FieldJSON, FieldForeignKey,
}

// Valid reports whether t is one of the closed set of field types.
func (t FieldType) Valid() bool {
	for _, ft := range FieldTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// FieldDefinition describes one declared class property.
type FieldDefinition struct {
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty"`
	Unique      bool      `json:"unique,omitempty"`
	Index       bool      `json:"index,omitempty"`
	Related     string    `json:"related,omitempty"`
	Description string    `json:"description,omitempty"`
}

// UnmarshalJSON keeps an explicit "default": null as Null.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	type plain FieldDefinition
	if err := json.Unmarshal(data, (*plain)(f)); err != nil {
		return err
	}
	if f.Default == nil && hasNullDefault(data) {
		f.Default = Null{}
	}
	return nil
}

// Null is the default of a field or parameter initialized with a null
// literal. It encodes as JSON null; a nil Default means no default and is
// omitted.
type Null struct{}

// MarshalJSON encodes Null as null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func hasNullDefault(data []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	raw, ok := fields["default"]
	return ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Parameter is one declared method parameter.
type Parameter struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
	Default  any    `json:"default,omitempty"`
}

// UnmarshalJSON keeps an explicit "default": null as Null.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	type plain Parameter
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	if p.Default == nil && hasNullDefault(data) {
		p.Default = Null{}
	}
	return nil
}

// MethodDefinition describes one declared class method. Parameters keep their
// declaration order; call-site argument binding depends on it.
type MethodDefinition struct {
	Name        string      `json:"name"`
	Async       bool        `json:"async"`
	IsStatic    bool        `json:"isStatic"`
	IsPublic    bool        `json:"isPublic"`
	Parameters  []Parameter `json:"parameters"`
	ReturnType  string      `json:"returnType"`
	Description string      `json:"description,omitempty"`
}

// FieldMap maps field names to definitions in declaration order.
type FieldMap = orderedmap.OrderedMap[string, FieldDefinition]

// MethodMap maps method names to definitions in declaration order.
type MethodMap = orderedmap.OrderedMap[string, MethodDefinition]

// NewFieldMap returns an empty FieldMap.
func NewFieldMap() *FieldMap {
	return orderedmap.New[string, FieldDefinition]()
}

// NewMethodMap returns an empty MethodMap.
func NewMethodMap() *MethodMap {
	return orderedmap.New[string, MethodDefinition]()
}

// SmartObjectDefinition is one scanned class.
type SmartObjectDefinition struct {
	Name            string           `json:"name"`
	ClassName       string           `json:"className"`
	Collection      string           `json:"collection"`
	FilePath        string           `json:"filePath"`
	Fields          *FieldMap        `json:"fields"`
	Methods         *MethodMap       `json:"methods"`
	DecoratorConfig DecoratorConfig  `json:"decoratorConfig"`
	Extends         string           `json:"extends,omitempty"`
	Tools           []ToolDefinition `json:"tools,omitempty"`
}

// NewDefinition returns a definition with empty field and method maps.
func NewDefinition(className, filePath string) *SmartObjectDefinition {
	return &SmartObjectDefinition{
		Name:            className,
		ClassName:       className,
		FilePath:        filePath,
		Fields:          NewFieldMap(),
		Methods:         NewMethodMap(),
		DecoratorConfig: DefaultDecoratorConfig(),
	}
}

// Clone returns a copy whose field and method maps can be modified without
// affecting d. Field and method values are copied by value.
func (d *SmartObjectDefinition) Clone() *SmartObjectDefinition {
	c := *d
	c.Fields = NewFieldMap()
	if d.Fields != nil {
		for pair := d.Fields.Oldest(); pair != nil; pair = pair.Next() {
			c.Fields.Set(pair.Key, pair.Value)
		}
	}
	c.Methods = NewMethodMap()
	if d.Methods != nil {
		for pair := d.Methods.Oldest(); pair != nil; pair = pair.Next() {
			m := pair.Value
			m.Parameters = append([]Parameter(nil), m.Parameters...)
			c.Methods.Set(pair.Key, m)
		}
	}
	c.Tools = append([]ToolDefinition(nil), d.Tools...)
	return &c
}

// FieldNames returns field names in declaration order.
func (d *SmartObjectDefinition) FieldNames() []string {
	var out []string
	if d.Fields == nil {
		return out
	}
	for pair := d.Fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// MethodNames returns method names in declaration order.
func (d *SmartObjectDefinition) MethodNames() []string {
	var out []string
	if d.Methods == nil {
		return out
	}
	for pair := d.Methods.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Manifest is the aggregate of every scanned class, keyed by class name.
type Manifest struct {
	Version     string                            `json:"version"`
	Timestamp   time.Time                         `json:"timestamp"`
	PackageName string                            `json:"packageName,omitempty"`
	Objects     map[string]*SmartObjectDefinition `json:"objects"`
}

// ScanError is a recoverable per-file failure (unreadable or unparseable file).
type ScanError struct {
	FilePath string `json:"filePath"`
	Message  string `json:"message"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

func (e ScanError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Diagnostic codes for conditions the scanner defaults around.
const (
	DiagAmbiguousConfig  = "ambiguous-config"
	DiagUnknownConfigKey = "unknown-config-key"
	DiagUnresolvedType   = "unresolved-type"
	DiagMixedUnion       = "mixed-union"
	DiagInheritanceCycle = "inheritance-cycle"
	DiagUnresolvedImport = "unresolved-import"
)

// Diagnostic is a warning about something the scanner resolved to a safe
// default. Diagnostics never abort a scan.
type Diagnostic struct {
	FilePath string `json:"filePath"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Class    string `json:"class,omitempty"`
	Member   string `json:"member,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

func (d Diagnostic) String() string {
	loc := d.FilePath
	if d.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", loc, d.Line, d.Column)
	}
	subject := d.Class
	if d.Member != "" {
		subject += "." + d.Member
	}
	if subject != "" {
		return loc + ": " + subject + ": " + d.Message + " [" + d.Code + "]"
	}
	return loc + ": " + d.Message + " [" + d.Code + "]"
}

// ScanResult is the outcome of scanning one file.
type ScanResult struct {
	FilePath string                   `json:"filePath"`
	Objects  []*SmartObjectDefinition `json:"objects"`
	Errors   []ScanError              `json:"errors,omitempty"`
	Warnings []Diagnostic             `json:"warnings,omitempty"`
}
