package manifest

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for manifest:
// - Assemble merges objects from several files keyed by class name
// - Assemble collects per-file errors without aborting
// - Assemble rejects two classes claiming the same collection (CollisionError, errors.Is ErrCollision)
// - Assemble rejects two classes with the same class name
// - Object/ByCollection return ErrObjectNotFound for unknown names
// - Marshal keeps fields in declaration order
// - Save/Load round-trip a manifest
// - Decode upgrades an unversioned manifest and rejects unknown versions
// - SurfaceConfig and CallableMode encode as bool/string or list forms and decode back
// - SurfaceConfig.Allows honours enabled/include/exclude
// - Clone does not share field maps with the original

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func def(className, collection, file string) *SmartObjectDefinition {
	d := NewDefinition(className, file)
	d.Collection = collection
	return d
}

func TestAssemble_MergesObjects(t *testing.T) {
	t.Parallel()

	results := []ScanResult{
		{FilePath: "a.ts", Objects: []*SmartObjectDefinition{def("Product", "products", "a.ts")}},
		{FilePath: "b.ts", Objects: []*SmartObjectDefinition{def("Category", "categories", "b.ts")}},
	}

	m, scanErrs, err := Assemble(results, AssembleOptions{PackageName: "shop", Timestamp: fixedTime})
	require.NoError(t, err)
	assert.Empty(t, scanErrs)

	assert.Equal(t, Version, m.Version)
	assert.Equal(t, "shop", m.PackageName)
	assert.Equal(t, fixedTime, m.Timestamp)
	assert.Equal(t, []string{"Category", "Product"}, m.ClassNames())
}

func TestAssemble_CollectsParseErrors(t *testing.T) {
	t.Parallel()

	results := []ScanResult{
		{FilePath: "broken.ts", Errors: []ScanError{{FilePath: "broken.ts", Message: "syntax error", Line: 3, Column: 7}}},
		{FilePath: "ok.ts", Objects: []*SmartObjectDefinition{def("Product", "products", "ok.ts")}},
	}

	m, scanErrs, err := Assemble(results, AssembleOptions{Timestamp: fixedTime})
	require.NoError(t, err)
	require.Len(t, scanErrs, 1)
	assert.Equal(t, "broken.ts:3:7: syntax error", scanErrs[0].Error())
	assert.Contains(t, m.Objects, "Product")
}

func TestAssemble_CollectionCollision(t *testing.T) {
	t.Parallel()

	// Test: two distinct classes that resolve to the same collection fail assembly
	results := []ScanResult{
		{FilePath: "a.ts", Objects: []*SmartObjectDefinition{def("Person", "people", "a.ts")}},
		{FilePath: "b.ts", Objects: []*SmartObjectDefinition{def("People", "people", "b.ts")}},
	}

	m, _, err := Assemble(results, AssembleOptions{Timestamp: fixedTime})
	require.Error(t, err)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, ErrCollision))

	var collision *CollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, CollisionCollection, collision.Kind)
	assert.Equal(t, "people", collision.Name)
	assert.Equal(t, ObjectRef{ClassName: "Person", FilePath: "a.ts"}, collision.First)
	assert.Equal(t, ObjectRef{ClassName: "People", FilePath: "b.ts"}, collision.Second)
	assert.Contains(t, err.Error(), "Person (a.ts)")
	assert.Contains(t, err.Error(), "People (b.ts)")
}

func TestAssemble_ClassNameCollision(t *testing.T) {
	t.Parallel()

	results := []ScanResult{
		{FilePath: "a.ts", Objects: []*SmartObjectDefinition{def("Product", "products", "a.ts")}},
		{FilePath: "b.ts", Objects: []*SmartObjectDefinition{def("Product", "legacy_products", "b.ts")}},
	}

	_, _, err := Assemble(results, AssembleOptions{Timestamp: fixedTime})
	var collision *CollisionError
	require.True(t, errors.As(err, &collision))
	assert.Equal(t, CollisionClass, collision.Kind)
	assert.Equal(t, "Product", collision.Name)
}

func TestManifest_LookupNotFound(t *testing.T) {
	t.Parallel()

	m, _, err := Assemble([]ScanResult{
		{Objects: []*SmartObjectDefinition{def("Product", "products", "a.ts")}},
	}, AssembleOptions{Timestamp: fixedTime})
	require.NoError(t, err)

	got, err := m.ByCollection("products")
	require.NoError(t, err)
	assert.Equal(t, "Product", got.ClassName)

	_, err = m.Object("Missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	_, err = m.ByCollection("missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestMarshal_PreservesFieldOrder(t *testing.T) {
	t.Parallel()

	d := def("Product", "products", "a.ts")
	d.Fields.Set("zeta", FieldDefinition{Type: FieldText})
	d.Fields.Set("alpha", FieldDefinition{Type: FieldInteger, Default: int64(0)})
	d.Fields.Set("mid", FieldDefinition{Type: FieldBoolean})

	m := &Manifest{Version: Version, Timestamp: fixedTime, Objects: map[string]*SmartObjectDefinition{"Product": d}}
	data, err := Marshal(m)
	require.NoError(t, err)

	out := string(data)
	zeta := strings.Index(out, `"zeta"`)
	alpha := strings.Index(out, `"alpha"`)
	mid := strings.Index(out, `"mid"`)
	assert.True(t, zeta < alpha && alpha < mid, "fields must keep declaration order:\n%s", out)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	d := def("Product", "products", "a.ts")
	d.Fields.Set("name", FieldDefinition{Type: FieldText, Default: ""})
	d.Methods.Set("publish", MethodDefinition{
		Name: "publish", Async: true, IsPublic: true, ReturnType: "Promise<void>",
		Parameters: []Parameter{{Name: "at", Type: "Date", Optional: true}},
	})
	d.DecoratorConfig.API = SurfaceConfig{Enabled: true, Exclude: []string{"delete"}}

	m := &Manifest{Version: Version, Timestamp: fixedTime, Objects: map[string]*SmartObjectDefinition{"Product": d}}
	path := filepath.Join(t.TempDir(), "nested", "manifest.json")
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)

	got, err := loaded.Object("Product")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, got.FieldNames())
	field, ok := got.Fields.Get("name")
	require.True(t, ok)
	assert.Equal(t, "", field.Default)
	method, ok := got.Methods.Get("publish")
	require.True(t, ok)
	assert.Equal(t, "at", method.Parameters[0].Name)
	assert.False(t, got.DecoratorConfig.API.Allows("delete"))
	assert.True(t, got.DecoratorConfig.API.Allows("list"))

	first, err := Marshal(m)
	require.NoError(t, err)
	second, err := Marshal(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestNullDefault_RoundTrip(t *testing.T) {
	t.Parallel()

	d := def("Profile", "profiles", "a.ts")
	d.Fields.Set("nickname", FieldDefinition{Type: FieldText, Default: Null{}})
	d.Fields.Set("bio", FieldDefinition{Type: FieldText})
	d.Methods.Set("rename", MethodDefinition{
		Name: "rename", IsPublic: true, ReturnType: "any",
		Parameters: []Parameter{{Name: "to", Type: "string | null", Optional: true, Default: Null{}}},
	})

	m := &Manifest{Version: Version, Timestamp: fixedTime, Objects: map[string]*SmartObjectDefinition{"Profile": d}}
	data, err := Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"default": null`)

	loaded, err := Decode(data)
	require.NoError(t, err)
	got, err := loaded.Object("Profile")
	require.NoError(t, err)

	nickname, ok := got.Fields.Get("nickname")
	require.True(t, ok)
	assert.Equal(t, Null{}, nickname.Default)

	// Test: an absent default stays absent
	bio, ok := got.Fields.Get("bio")
	require.True(t, ok)
	assert.Nil(t, bio.Default)

	rename, ok := got.Methods.Get("rename")
	require.True(t, ok)
	assert.Equal(t, Null{}, rename.Parameters[0].Default)
}

func TestDecode_Versions(t *testing.T) {
	t.Parallel()

	m, err := Decode([]byte(`{"objects": {}}`))
	require.NoError(t, err)
	assert.Equal(t, Version, m.Version)

	_, err = Decode([]byte(`{"version": "99", "objects": {}}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestSurfaceConfig_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(SurfaceConfig{Enabled: false})
	require.NoError(t, err)
	assert.Equal(t, "false", string(data))

	data, err = json.Marshal(SurfaceConfig{Enabled: true, Include: []string{"list", "get"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"include": ["list", "get"]}`, string(data))

	var s SurfaceConfig
	require.NoError(t, json.Unmarshal([]byte(`{"exclude": ["delete"]}`), &s))
	assert.True(t, s.Enabled)
	assert.True(t, s.Allows("list"))
	assert.False(t, s.Allows("delete"))

	require.NoError(t, json.Unmarshal([]byte(`true`), &s))
	assert.Equal(t, SurfaceConfig{Enabled: true}, s)
}

func TestSurfaceConfig_Allows(t *testing.T) {
	t.Parallel()

	assert.False(t, SurfaceConfig{}.Allows("list"))
	assert.True(t, SurfaceConfig{Enabled: true}.Allows("anything"))

	s := SurfaceConfig{Enabled: true, Include: []string{"list", "publish"}, Exclude: []string{"publish"}}
	assert.True(t, s.Allows("list"))
	assert.False(t, s.Allows("get"))
	assert.False(t, s.Allows("publish"))
	assert.True(t, s.Includes("list"))
	assert.False(t, s.Includes("publish"))
}

func TestCallableMode_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(CallableMode{Mode: CallableAll})
	require.NoError(t, err)
	assert.Equal(t, `"all"`, string(data))

	data, err = json.Marshal(CallableMode{Mode: CallableList, Methods: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, string(data))

	data, err = json.Marshal(CallableMode{})
	require.NoError(t, err)
	assert.Equal(t, `"public-async"`, string(data))

	var c CallableMode
	require.NoError(t, json.Unmarshal([]byte(`"summarize"`), &c))
	assert.Equal(t, CallableMode{Mode: CallableList, Methods: []string{"summarize"}}, c)

	require.NoError(t, json.Unmarshal([]byte(`"public-async"`), &c))
	assert.Equal(t, CallableMode{Mode: CallablePublicAsync}, c)
}

func TestClone_IsIndependent(t *testing.T) {
	t.Parallel()

	d := def("Product", "products", "a.ts")
	d.Fields.Set("name", FieldDefinition{Type: FieldText})

	c := d.Clone()
	c.Fields.Set("price", FieldDefinition{Type: FieldInteger})
	c.Fields.Set("name", FieldDefinition{Type: FieldInteger})

	assert.Equal(t, []string{"name"}, d.FieldNames())
	orig, _ := d.Fields.Get("name")
	assert.Equal(t, FieldText, orig.Type)
	assert.Equal(t, []string{"name", "price"}, c.FieldNames())
}

func TestFieldType_Valid(t *testing.T) {
	t.Parallel()

	for _, ft := range FieldTypes {
		assert.True(t, ft.Valid())
	}
	assert.False(t, FieldType("string").Valid())
	assert.False(t, FieldType("").Valid())
}
