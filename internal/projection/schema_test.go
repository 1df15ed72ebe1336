package projection

import (
	"database/sql"
	"testing"
	"time"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for schema projection:
// - Product example renders the exact CREATE TABLE statement and executes in sqlite
// - Required and unique fields get NOT NULL / UNIQUE
// - Foreign keys reference the related collection's id
// - Indexed fields produce CREATE INDEX statements
// - Postgres dialect maps decimal/boolean/datetime/json to native types
// - SchemaStatements orders referenced tables first and executes as a whole
// - Declared id/slug/context fields do not duplicate builtin columns
// - ParseDialect accepts aliases and rejects unknown names

func productDef() *manifest.SmartObjectDefinition {
	def := manifest.NewDefinition("Product", "product.ts")
	def.Collection = "products"
	def.Fields.Set("name", manifest.FieldDefinition{Type: manifest.FieldText, Default: ""})
	def.Fields.Set("price", manifest.FieldDefinition{Type: manifest.FieldInteger, Default: int64(0)})
	def.Fields.Set("inStock", manifest.FieldDefinition{Type: manifest.FieldBoolean, Default: true})
	def.Fields.Set("tags", manifest.FieldDefinition{Type: manifest.FieldJSON, Default: []any{}})
	return def
}

func testManifest(defs ...*manifest.SmartObjectDefinition) *manifest.Manifest {
	m := &manifest.Manifest{
		Version:   manifest.Version,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Objects:   map[string]*manifest.SmartObjectDefinition{},
	}
	for _, d := range defs {
		m.Objects[d.ClassName] = d
	}
	return m
}

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateTable_ProductExample(t *testing.T) {
	t.Parallel()

	def := productDef()
	stmt, err := CreateTable(def, testManifest(def), DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS products (id TEXT PRIMARY KEY, slug TEXT NOT NULL, context TEXT NOT NULL DEFAULT '', name TEXT, price INTEGER, in_stock INTEGER, tags TEXT, UNIQUE(slug, context));",
		stmt)

	// Test: the statement is valid SQL and idempotent
	db := openSQLite(t)
	_, err = db.Exec(stmt)
	require.NoError(t, err)
	_, err = db.Exec(stmt)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO products (id, slug, name, price, in_stock, tags) VALUES ('1', 'widget', 'Widget', 5, 1, '[]')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products (id, slug) VALUES ('2', 'widget')`)
	assert.Error(t, err, "slug must be unique within a context")
}

func TestCreateTable_Constraints(t *testing.T) {
	t.Parallel()

	category := manifest.NewDefinition("Category", "category.ts")
	category.Collection = "categories"

	def := manifest.NewDefinition("Product", "product.ts")
	def.Collection = "products"
	def.Fields.Set("sku", manifest.FieldDefinition{Type: manifest.FieldText, Required: true, Unique: true})
	def.Fields.Set("categoryId", manifest.FieldDefinition{Type: manifest.FieldForeignKey, Related: "Category"})
	def.Fields.Set("supplier", manifest.FieldDefinition{Type: manifest.FieldForeignKey, Related: "Supplier"})
	def.Fields.Set("weight", manifest.FieldDefinition{Type: manifest.FieldDecimal, Index: true})

	stmt, err := CreateTable(def, testManifest(category, def), DialectSQLite)
	require.NoError(t, err)
	assert.Contains(t, stmt, "sku TEXT NOT NULL UNIQUE")
	assert.Contains(t, stmt, "category_id TEXT REFERENCES categories(id)")
	// Test: an unknown related class degrades to a plain column
	assert.Contains(t, stmt, "supplier TEXT,")
	assert.Contains(t, stmt, "weight REAL")

	assert.Equal(t,
		[]string{"CREATE INDEX IF NOT EXISTS idx_products_weight ON products (weight);"},
		CreateIndexes(def))
}

func TestCreateTable_Postgres(t *testing.T) {
	t.Parallel()

	def := manifest.NewDefinition("Event", "event.ts")
	def.Collection = "events"
	def.Fields.Set("score", manifest.FieldDefinition{Type: manifest.FieldDecimal})
	def.Fields.Set("active", manifest.FieldDefinition{Type: manifest.FieldBoolean})
	def.Fields.Set("startsAt", manifest.FieldDefinition{Type: manifest.FieldDatetime})
	def.Fields.Set("meta", manifest.FieldDefinition{Type: manifest.FieldJSON})

	stmt, err := CreateTable(def, nil, DialectPostgres)
	require.NoError(t, err)
	assert.Contains(t, stmt, "score NUMERIC")
	assert.Contains(t, stmt, "active BOOLEAN")
	assert.Contains(t, stmt, "starts_at TIMESTAMPTZ")
	assert.Contains(t, stmt, "meta JSONB")
}

func TestColumnType_AllFieldTypes(t *testing.T) {
	t.Parallel()

	for _, d := range []Dialect{DialectSQLite, DialectPostgres} {
		for _, ft := range manifest.FieldTypes {
			typ, err := ColumnType(ft, d)
			require.NoError(t, err, "%s/%s", d, ft)
			assert.NotEmpty(t, typ)
		}
	}

	_, err := ColumnType("string", DialectSQLite)
	assert.Error(t, err)
}

func TestSchemaStatements_OrdersReferencedTablesFirst(t *testing.T) {
	t.Parallel()

	// "orders" sorts before "users" but references it.
	user := manifest.NewDefinition("User", "user.ts")
	user.Collection = "users"
	user.Fields.Set("email", manifest.FieldDefinition{Type: manifest.FieldText, Required: true, Index: true})

	order := manifest.NewDefinition("Order", "order.ts")
	order.Collection = "orders"
	order.Fields.Set("userId", manifest.FieldDefinition{Type: manifest.FieldForeignKey, Related: "User"})
	order.Fields.Set("parentId", manifest.FieldDefinition{Type: manifest.FieldForeignKey, Related: "Order"})

	m := testManifest(user, order)
	stmts, err := SchemaStatements(m, DialectSQLite)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS users")
	assert.Contains(t, stmts[1], "CREATE INDEX IF NOT EXISTS idx_users_email")
	assert.Contains(t, stmts[2], "CREATE TABLE IF NOT EXISTS orders")
	assert.Contains(t, stmts[2], "parent_id TEXT REFERENCES orders(id)")

	script, err := Schema(m, DialectSQLite)
	require.NoError(t, err)

	db := openSQLite(t)
	_, err = db.Exec(script)
	require.NoError(t, err)
}

func TestCreateTable_SkipsBuiltinColumns(t *testing.T) {
	t.Parallel()

	def := manifest.NewDefinition("Page", "page.ts")
	def.Collection = "pages"
	def.Fields.Set("slug", manifest.FieldDefinition{Type: manifest.FieldText})
	def.Fields.Set("title", manifest.FieldDefinition{Type: manifest.FieldText})

	stmt, err := CreateTable(def, nil, DialectSQLite)
	require.NoError(t, err)
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS pages (id TEXT PRIMARY KEY, slug TEXT NOT NULL, context TEXT NOT NULL DEFAULT '', title TEXT, UNIQUE(slug, context));",
		stmt)
}

func TestParseDialect(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Dialect{
		"":           DialectSQLite,
		"sqlite3":    DialectSQLite,
		"Postgres":   DialectPostgres,
		"postgresql": DialectPostgres,
		"pgx":        DialectPostgres,
	} {
		got, err := ParseDialect(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDialect("mysql")
	assert.ErrorIs(t, err, ErrUnknownDialect)
}
