package mcp

import (
	"sync/atomic"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
)

// Catalog holds the manifest the tools answer from. The watch loop swaps in a
// new manifest after each rescan; handlers always see a complete one.
type Catalog struct {
	current atomic.Pointer[manifest.Manifest]
}

// NewCatalog returns a catalog serving m.
func NewCatalog(m *manifest.Manifest) *Catalog {
	c := &Catalog{}
	c.Set(m)
	return c
}

// Manifest returns the current manifest, or nil before the first Set.
func (c *Catalog) Manifest() *manifest.Manifest {
	return c.current.Load()
}

// Set replaces the served manifest.
func (c *Catalog) Set(m *manifest.Manifest) {
	c.current.Store(m)
}

// ObjectSummary is one row of smrt_list_objects.
type ObjectSummary struct {
	Name       string   `json:"name"`
	ClassName  string   `json:"className"`
	Collection string   `json:"collection"`
	FilePath   string   `json:"filePath"`
	Extends    string   `json:"extends,omitempty"`
	Fields     []string `json:"fields"`
	Methods    []string `json:"methods"`
	Tools      []string `json:"tools,omitempty"`
}

// ListObjectsResponse is the smrt_list_objects result.
type ListObjectsResponse struct {
	PackageName string          `json:"packageName,omitempty"`
	Objects     []ObjectSummary `json:"objects"`
	Total       int             `json:"total"`
}

// GetObjectResponse is the smrt_get_object result: the definition plus the
// surfaces derived from it.
type GetObjectResponse struct {
	Object     *manifest.SmartObjectDefinition `json:"object"`
	Endpoints  []string                        `json:"endpoints"`
	Commands   []string                        `json:"commands"`
	MCPActions []string                        `json:"mcpActions"`
	Tools      []manifest.ToolDefinition       `json:"tools"`
}

// SchemaResponse is the smrt_schema result.
type SchemaResponse struct {
	Dialect    string   `json:"dialect"`
	Statements []string `json:"statements"`
}

// ValidateCallRequest is the smrt_validate_call input.
type ValidateCallRequest struct {
	Object    string                 `json:"object"`
	Method    string                 `json:"method"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ValidateCallResponse is the smrt_validate_call result.
type ValidateCallResponse struct {
	Object string   `json:"object"`
	Tool   string   `json:"tool"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
