// Package projection derives artifacts from manifest entries: SQL DDL, REST
// endpoint lists, CLI commands, MCP action names and AI tool schemas. Every
// function here is pure; the manifest is never modified.
package projection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/happyvertical/smrt-sub009/internal/manifest"
	"github.com/happyvertical/smrt-sub009/internal/names"
)

// Dialect selects SQL column types.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrUnknownDialect indicates an unsupported SQL dialect name.
var ErrUnknownDialect = errors.New("unknown SQL dialect")

// ParseDialect accepts "sqlite"/"sqlite3" and "postgres"/"postgresql"/"pgx".
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, s)
}

// Columns every table carries before its declared fields.
var builtinColumns = []string{
	"id TEXT PRIMARY KEY",
	"slug TEXT NOT NULL",
	"context TEXT NOT NULL DEFAULT ''",
}

func isBuiltinColumn(column string) bool {
	switch column {
	case "id", "slug", "context":
		return true
	}
	return false
}

// ColumnType maps a semantic field type to a column type.
func ColumnType(t manifest.FieldType, d Dialect) (string, error) {
	switch t {
	case manifest.FieldText, manifest.FieldForeignKey:
		return "TEXT", nil
	case manifest.FieldInteger:
		return "INTEGER", nil
	case manifest.FieldDecimal:
		if d == DialectPostgres {
			return "NUMERIC", nil
		}
		return "REAL", nil
	case manifest.FieldBoolean:
		if d == DialectPostgres {
			return "BOOLEAN", nil
		}
		return "INTEGER", nil
	case manifest.FieldDatetime:
		if d == DialectPostgres {
			return "TIMESTAMPTZ", nil
		}
		return "TEXT", nil
	case manifest.FieldJSON:
		if d == DialectPostgres {
			return "JSONB", nil
		}
		return "TEXT", nil
	}
	return "", fmt.Errorf("unknown field type %q", t)
}

// CreateTable renders the CREATE TABLE statement for def. m resolves foreign
// key targets to their collections and may be nil, in which case foreign keys
// are plain TEXT columns.
func CreateTable(def *manifest.SmartObjectDefinition, m *manifest.Manifest, d Dialect) (string, error) {
	columns := append([]string(nil), builtinColumns...)

	for pair := def.Fields.Oldest(); pair != nil; pair = pair.Next() {
		column := names.ToSnakeCase(pair.Key)
		if isBuiltinColumn(column) {
			continue
		}
		field := pair.Value

		typ, err := ColumnType(field.Type, d)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", def.ClassName, pair.Key, err)
		}

		parts := []string{column, typ}
		if field.Required {
			parts = append(parts, "NOT NULL")
		}
		if field.Unique {
			parts = append(parts, "UNIQUE")
		}
		if field.Type == manifest.FieldForeignKey {
			if target := relatedCollection(field, m); target != "" {
				parts = append(parts, fmt.Sprintf("REFERENCES %s(id)", target))
			}
		}
		columns = append(columns, strings.Join(parts, " "))
	}

	columns = append(columns, "UNIQUE(slug, context)")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", def.Collection, strings.Join(columns, ", ")), nil
}

// CreateIndexes renders one CREATE INDEX statement per indexed field.
func CreateIndexes(def *manifest.SmartObjectDefinition) []string {
	var out []string
	for pair := def.Fields.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value.Index {
			continue
		}
		column := names.ToSnakeCase(pair.Key)
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s);",
			def.Collection, column, def.Collection, column))
	}
	return out
}

// Statements returns the table statement followed by its indexes.
func Statements(def *manifest.SmartObjectDefinition, m *manifest.Manifest, d Dialect) ([]string, error) {
	table, err := CreateTable(def, m, d)
	if err != nil {
		return nil, err
	}
	return append([]string{table}, CreateIndexes(def)...), nil
}

// SchemaStatements renders every table in the manifest. Tables referenced by
// foreign keys come before the tables that reference them; otherwise tables
// are ordered by collection name. Mutually referencing tables keep name order.
func SchemaStatements(m *manifest.Manifest, d Dialect) ([]string, error) {
	order, err := tableOrder(m)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, def := range order {
		stmts, err := Statements(def, m, d)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

// Schema renders SchemaStatements as one script, one statement per line.
func Schema(m *manifest.Manifest, d Dialect) (string, error) {
	stmts, err := SchemaStatements(m, d)
	if err != nil {
		return "", err
	}
	if len(stmts) == 0 {
		return "", nil
	}
	return strings.Join(stmts, "\n") + "\n", nil
}

func tableOrder(m *manifest.Manifest) ([]*manifest.SmartObjectDefinition, error) {
	byCollection := make(map[string]*manifest.SmartObjectDefinition, len(m.Objects))
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	defs := m.Definitions()
	for _, def := range defs {
		byCollection[def.Collection] = def
		if err := g.AddVertex(def.Collection); err != nil {
			return nil, fmt.Errorf("failed to add table %s: %w", def.Collection, err)
		}
	}

	for _, def := range defs {
		for pair := def.Fields.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value.Type != manifest.FieldForeignKey {
				continue
			}
			target := relatedCollection(pair.Value, m)
			if target == "" || target == def.Collection {
				continue
			}
			err := g.AddEdge(target, def.Collection)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) && !errors.Is(err, graph.ErrEdgeCreatesCycle) {
				return nil, fmt.Errorf("failed to link %s to %s: %w", def.Collection, target, err)
			}
		}
	}

	keys, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("failed to order tables: %w", err)
	}

	out := make([]*manifest.SmartObjectDefinition, 0, len(keys))
	for _, k := range keys {
		out = append(out, byCollection[k])
	}
	return out, nil
}

// relatedCollection resolves a foreign key's class name to its collection.
func relatedCollection(field manifest.FieldDefinition, m *manifest.Manifest) string {
	if m == nil || field.Related == "" {
		return ""
	}
	if def, err := m.Object(field.Related); err == nil {
		return def.Collection
	}
	return ""
}
