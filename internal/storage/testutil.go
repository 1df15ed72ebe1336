package storage

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestStore creates a manifest store on an in-memory SQLite database.
// Cleanup is registered with t.Cleanup().
func NewTestStore(t testing.TB) *ManifestStore {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Each pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	store, err := NewManifestStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// NewTestStoreFile creates a file-backed manifest store in t.TempDir().
// Use it to test persistence across reopen.
func NewTestStoreFile(t testing.TB) (*ManifestStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenManifestStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}
