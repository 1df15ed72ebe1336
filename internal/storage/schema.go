// Package storage persists scanned manifests in a SQLite cache and applies
// generated DDL to target databases.
package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the version of the cache schema below.
const SchemaVersion = "2"

const createManifestsTable = `
CREATE TABLE IF NOT EXISTS manifests (
	manifest_id  TEXT PRIMARY KEY,
	fingerprint  TEXT NOT NULL UNIQUE,
	package_name TEXT NOT NULL DEFAULT '',
	version      TEXT NOT NULL,
	object_count INTEGER NOT NULL,
	data         BLOB NOT NULL,
	diagnostics  BLOB NOT NULL DEFAULT '{}',
	created_at   TEXT NOT NULL,
	used_at      TEXT NOT NULL
)`

const createCacheMetadataTable = `
CREATE TABLE IF NOT EXISTS cache_metadata (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_manifests_used_at ON manifests (used_at)`,
}

// CreateSchema creates the cache tables in one transaction. It is idempotent.
// A cache written by another schema version is discarded, since every entry
// can be rebuilt by rescanning.
func CreateSchema(db *sql.DB) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	if version != "0" && version != SchemaVersion {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS manifests`); err != nil {
			return fmt.Errorf("failed to drop stale manifests table: %w", err)
		}
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"manifests", createManifestsTable},
		{"cache_metadata", createCacheMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT INTO cache_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		WHERE cache_metadata.value <> excluded.value`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("failed to bootstrap cache_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the cache schema version, or "0" for a database
// without the cache tables.
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='cache_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check cache_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM cache_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
