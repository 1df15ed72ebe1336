package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Version is the current manifest format version.
const Version = "1"

// Marshal returns stable, indented JSON for m. Objects are keyed by class name
// (sorted by encoding/json); fields and methods keep declaration order.
func Marshal(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("nil manifest")
	}
	normalize(m)
	return json.MarshalIndent(m, "", "  ")
}

// Decode parses a persisted manifest. A missing version is treated as the
// legacy pre-versioned format and upgraded; unknown versions are rejected.
func Decode(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	switch strings.TrimSpace(m.Version) {
	case "", "0":
		m.Version = Version
	case Version:
	default:
		return nil, fmt.Errorf("%w %q (current=%s)", ErrUnsupportedVersion, m.Version, Version)
	}

	normalize(m)
	return m, nil
}

// Save writes m to path, creating parent directories.
func Save(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// Load reads a manifest previously written by Save.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return Decode(data)
}

// normalize fills nil maps so consumers never need nil checks.
func normalize(m *Manifest) {
	if m.Objects == nil {
		m.Objects = make(map[string]*SmartObjectDefinition)
	}
	for _, def := range m.Objects {
		if def.Fields == nil {
			def.Fields = NewFieldMap()
		}
		if def.Methods == nil {
			def.Methods = NewMethodMap()
		}
		for pair := def.Methods.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value.Parameters == nil {
				method := pair.Value
				method.Parameters = []Parameter{}
				def.Methods.Set(pair.Key, method)
			}
		}
	}
}
