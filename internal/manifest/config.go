package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Callable modes for AIConfig.Callable.
const (
	CallablePublicAsync = "public-async"
	CallableAll         = "all"
	CallableList        = "list"
)

// DecoratorConfig is the structured form of the marker decorator's argument.
type DecoratorConfig struct {
	API       SurfaceConfig     `json:"api"`
	CLI       SurfaceConfig     `json:"cli"`
	MCP       SurfaceConfig     `json:"mcp"`
	AI        AIConfig          `json:"ai"`
	Hooks     map[string]string `json:"hooks,omitempty"`
	TableName string            `json:"tableName,omitempty"`
	Name      string            `json:"name,omitempty"`
}

// DefaultDecoratorConfig enables every surface and makes public async methods
// AI-callable. It is the configuration of a bare decorator.
func DefaultDecoratorConfig() DecoratorConfig {
	return DecoratorConfig{
		API: SurfaceConfig{Enabled: true},
		CLI: SurfaceConfig{Enabled: true},
		MCP: SurfaceConfig{Enabled: true},
		AI:  DefaultAIConfig(),
	}
}

// SurfaceConfig controls one generated surface (api, cli or mcp). It is either
// all-or-nothing (a boolean) or an include/exclude list of action names.
type SurfaceConfig struct {
	Enabled bool
	Include []string
	Exclude []string
}

// IsList reports whether the surface was configured with include/exclude lists.
func (s SurfaceConfig) IsList() bool {
	return s.Include != nil || s.Exclude != nil
}

// Allows reports whether action is generated for this surface.
func (s SurfaceConfig) Allows(action string) bool {
	if !s.Enabled {
		return false
	}
	if len(s.Include) > 0 && !slices.Contains(s.Include, action) {
		return false
	}
	return !slices.Contains(s.Exclude, action)
}

// Includes reports whether action is named explicitly in the include list.
func (s SurfaceConfig) Includes(action string) bool {
	return s.Enabled && slices.Contains(s.Include, action) && !slices.Contains(s.Exclude, action)
}

type surfaceLists struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// MarshalJSON encodes a boolean surface as true/false and a list surface as
// {"include": [...], "exclude": [...]}.
func (s SurfaceConfig) MarshalJSON() ([]byte, error) {
	if !s.IsList() || !s.Enabled {
		return json.Marshal(s.Enabled)
	}
	return json.Marshal(surfaceLists{Include: s.Include, Exclude: s.Exclude})
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (s *SurfaceConfig) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		var enabled bool
		if err := json.Unmarshal(data, &enabled); err != nil {
			return fmt.Errorf("surface config: %w", err)
		}
		*s = SurfaceConfig{Enabled: enabled}
		return nil
	}

	var lists surfaceLists
	if err := json.Unmarshal(data, &lists); err != nil {
		return fmt.Errorf("surface config: %w", err)
	}
	*s = SurfaceConfig{Enabled: true, Include: nonNil(lists.Include), Exclude: lists.Exclude}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// AIConfig selects which methods become AI tools.
type AIConfig struct {
	Callable     CallableMode      `json:"callable"`
	Exclude      []string          `json:"exclude,omitempty"`
	Descriptions map[string]string `json:"descriptions,omitempty"`
}

// DefaultAIConfig makes public async methods callable.
func DefaultAIConfig() AIConfig {
	return AIConfig{Callable: CallableMode{Mode: CallablePublicAsync}}
}

// CallableMode is 'public-async', 'all', or an explicit list of method names.
type CallableMode struct {
	Mode    string
	Methods []string
}

// MarshalJSON encodes the mode as a string or the method list as an array.
func (c CallableMode) MarshalJSON() ([]byte, error) {
	if c.Mode == CallableList {
		return json.Marshal(nonNil(c.Methods))
	}
	if c.Mode == "" {
		return json.Marshal(CallablePublicAsync)
	}
	return json.Marshal(c.Mode)
}

// UnmarshalJSON accepts a mode string or an array of method names.
func (c *CallableMode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var methods []string
		if err := json.Unmarshal(data, &methods); err != nil {
			return fmt.Errorf("ai callable: %w", err)
		}
		*c = CallableMode{Mode: CallableList, Methods: methods}
		return nil
	}

	var mode string
	if err := json.Unmarshal(data, &mode); err != nil {
		return fmt.Errorf("ai callable: %w", err)
	}
	switch mode {
	case CallablePublicAsync, CallableAll:
		*c = CallableMode{Mode: mode}
	default:
		*c = CallableMode{Mode: CallableList, Methods: []string{mode}}
	}
	return nil
}
