package cli

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for schema, endpoints and tools commands:
// - schema prints DDL with referenced tables first
// - --dialect and --object narrow the output; unknown dialects fail
// - schema --apply creates the tables in a SQLite database
// - endpoints lists REST routes, CLI commands and MCP actions per object
// - endpoints --json matches the decorator settings
// - tools prints tool definitions for AI-callable methods only

func TestSchema_PrintsOrderedDDL(t *testing.T) {
	t.Parallel()

	dir := copyFixture(t, "shop")
	stdout, stderr, err := runCLI(t, dir, "schema")
	require.NoError(t, err, stderr)

	categories := strings.Index(stdout, "CREATE TABLE IF NOT EXISTS categories ")
	products := strings.Index(stdout, "CREATE TABLE IF NOT EXISTS products ")
	require.NotEqual(t, -1, categories)
	require.NotEqual(t, -1, products)
	assert.Less(t, categories, products)
	assert.Contains(t, stdout, "REFERENCES categories(id)")
	assert.Contains(t, stdout, "CREATE INDEX IF NOT EXISTS")
}

func TestSchema_DialectAndObject(t *testing.T) {
	t.Parallel()

	dir := copyFixture(t, "shop")
	stdout, stderr, err := runCLI(t, dir, "schema", "--dialect", "postgres", "--object", "products")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "CREATE TABLE IF NOT EXISTS products ")
	assert.Contains(t, stdout, "NUMERIC")
	assert.Contains(t, stdout, "BOOLEAN")
	assert.NotContains(t, stdout, "CREATE TABLE IF NOT EXISTS categories ")

	_, _, err = runCLI(t, dir, "schema", "--dialect", "oracle")
	assert.Error(t, err)

	_, _, err = runCLI(t, dir, "schema", "--object", "Invoice")
	assert.Error(t, err)
}

func TestSchema_Apply(t *testing.T) {
	t.Parallel()

	dir := copyFixture(t, "shop")
	dbPath := filepath.Join(t.TempDir(), "app.db")

	stdout, stderr, err := runCLI(t, dir, "schema", "--apply", dbPath)
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "Applied")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()
	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"categories", "products"}, tables)

	// Test: applying again is harmless
	_, _, err = runCLI(t, dir, "schema", "--apply", "sqlite://"+dbPath)
	require.NoError(t, err)

	// Test: an explicit dialect must agree with the target
	_, _, err = runCLI(t, dir, "schema", "--apply", dbPath, "--dialect", "postgres")
	assert.Error(t, err)
}

func TestEndpoints_Text(t *testing.T) {
	t.Parallel()

	dir := copyFixture(t, "shop")
	stdout, stderr, err := runCLI(t, dir, "endpoints")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "Category (categories)")
	assert.Contains(t, stdout, "Product (products)")
	assert.Contains(t, stdout, "GET    /api/v1/products")
	assert.Contains(t, stdout, "POST   /api/v1/products/:id/restock")
	assert.NotContains(t, stdout, "DELETE /api/v1/products/:id")
	assert.Contains(t, stdout, "(disabled)")
}

func TestEndpoints_JSON(t *testing.T) {
	t.Parallel()

	dir := copyFixture(t, "shop")
	stdout, stderr, err := runCLI(t, dir, "endpoints", "--json", "--prefix", "", "--object", "Product")
	require.NoError(t, err, stderr)

	var got []objectSurfaces
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 1)

	product := got[0]
	assert.Equal(t, "Product", product.Object)
	var routes []string
	for _, e := range product.Endpoints {
		routes = append(routes, e.Method+" "+e.Path)
	}
	assert.Equal(t, []string{
		"GET /products",
		"GET /products/:id",
		"POST /products",
		"POST /products/:id/restock",
	}, routes)
	assert.Contains(t, product.Commands, "product list")
	assert.Contains(t, product.MCPActions, "products_update")
	assert.NotContains(t, product.MCPActions, "products_delete")
}

func TestTools(t *testing.T) {
	t.Parallel()

	dir := copyFixture(t, "shop")
	stdout, stderr, err := runCLI(t, dir, "tools")
	require.NoError(t, err, stderr)

	var got []objectTools
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Product", got[0].Object)
	require.Len(t, got[0].Tools, 1)

	restock := got[0].Tools[0]
	assert.Equal(t, "restock", restock.Name)
	assert.Equal(t, "Adds units to the stock count.", restock.Description)
	require.NotNil(t, restock.Parameters)
	assert.Equal(t, []string{"quantity"}, restock.Parameters.Required)

	stdout, _, err = runCLI(t, dir, "tools", "--all")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Len(t, got, 2)
}
