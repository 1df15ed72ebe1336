package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrCollision indicates two classes resolved to the same collection or class name.
	ErrCollision = errors.New("manifest collision")

	// ErrObjectNotFound indicates a lookup for an object the manifest does not contain.
	ErrObjectNotFound = errors.New("object not found in manifest")

	// ErrUnsupportedVersion indicates a persisted manifest with an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported manifest version")
)

// Collision kinds.
const (
	CollisionCollection = "collection"
	CollisionClass      = "class"
)

// ObjectRef identifies a class by name and source file.
type ObjectRef struct {
	ClassName string
	FilePath  string
}

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s (%s)", r.ClassName, r.FilePath)
}

// CollisionError reports two classes that would share a table or manifest key.
type CollisionError struct {
	Kind   string
	Name   string
	First  ObjectRef
	Second ObjectRef
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s name %q is claimed by both %s and %s", e.Kind, e.Name, e.First, e.Second)
}

// Unwrap lets errors.Is(err, ErrCollision) match.
func (e *CollisionError) Unwrap() error {
	return ErrCollision
}
