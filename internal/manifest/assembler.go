package manifest

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// AssembleOptions carries manifest-level metadata.
type AssembleOptions struct {
	PackageName string
	Timestamp   time.Time
}

// Assemble merges per-file scan results into one Manifest.
//
// Parse errors from individual files are collected and returned alongside the
// manifest; they never abort assembly. Two classes that resolve to the same
// collection, or share a class name, make assembly fail with one
// *CollisionError per conflict, joined. No manifest is returned in that case.
func Assemble(results []ScanResult, opts AssembleOptions) (*Manifest, []ScanError, error) {
	m := &Manifest{
		Version:     Version,
		Timestamp:   opts.Timestamp,
		PackageName: opts.PackageName,
		Objects:     make(map[string]*SmartObjectDefinition),
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}

	var scanErrs []ScanError
	var collisions []error
	byCollection := make(map[string]*SmartObjectDefinition)

	for _, res := range results {
		scanErrs = append(scanErrs, res.Errors...)

		for _, def := range res.Objects {
			if def == nil {
				continue
			}

			if prev, ok := m.Objects[def.ClassName]; ok {
				collisions = append(collisions, &CollisionError{
					Kind:   CollisionClass,
					Name:   def.ClassName,
					First:  ObjectRef{ClassName: prev.ClassName, FilePath: prev.FilePath},
					Second: ObjectRef{ClassName: def.ClassName, FilePath: def.FilePath},
				})
				continue
			}

			if prev, ok := byCollection[def.Collection]; ok {
				collisions = append(collisions, &CollisionError{
					Kind:   CollisionCollection,
					Name:   def.Collection,
					First:  ObjectRef{ClassName: prev.ClassName, FilePath: prev.FilePath},
					Second: ObjectRef{ClassName: def.ClassName, FilePath: def.FilePath},
				})
				continue
			}

			m.Objects[def.ClassName] = def
			byCollection[def.Collection] = def
		}
	}

	if len(collisions) > 0 {
		return nil, scanErrs, errors.Join(collisions...)
	}

	return m, scanErrs, nil
}

// Object returns the definition for a class name.
func (m *Manifest) Object(className string) (*SmartObjectDefinition, error) {
	if def, ok := m.Objects[className]; ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, className)
}

// ByCollection returns the definition whose collection is name.
func (m *Manifest) ByCollection(name string) (*SmartObjectDefinition, error) {
	for _, def := range m.Objects {
		if def.Collection == name {
			return def, nil
		}
	}
	return nil, fmt.Errorf("%w: collection %s", ErrObjectNotFound, name)
}

// ClassNames returns the manifest's class names sorted.
func (m *Manifest) ClassNames() []string {
	out := make([]string, 0, len(m.Objects))
	for name := range m.Objects {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definitions returns every definition ordered by class name.
func (m *Manifest) Definitions() []*SmartObjectDefinition {
	out := make([]*SmartObjectDefinition, 0, len(m.Objects))
	for _, name := range m.ClassNames() {
		out = append(out, m.Objects[name])
	}
	return out
}
