package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/happyvertical/smrt-sub009/internal/manifest"
	_ "github.com/mattn/go-sqlite3"
)

// timeFormat sorts lexicographically in time order for UTC times.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ManifestEntry describes one cached manifest without its payload.
type ManifestEntry struct {
	ID          string
	Fingerprint string
	PackageName string
	Version     string
	ObjectCount int
	CreatedAt   time.Time
	UsedAt      time.Time
}

// CachedScan is a cached manifest plus the per-file problems found while it
// was built. They are replayed on a hit so a cached scan reports the same
// errors and warnings as a fresh one.
type CachedScan struct {
	Manifest *manifest.Manifest
	Errors   []manifest.ScanError
	Warnings []manifest.Diagnostic
}

type scanDiagnostics struct {
	Errors   []manifest.ScanError  `json:"errors,omitempty"`
	Warnings []manifest.Diagnostic `json:"warnings,omitempty"`
}

// ManifestStore caches manifests keyed by source fingerprint, so an unchanged
// project can skip rescanning.
type ManifestStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenManifestStore opens (creating if needed) the cache database at path.
func OpenManifestStore(path string) (*ManifestStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	store, err := NewManifestStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewManifestStore wraps an open SQLite database, creating the cache schema.
func NewManifestStore(db *sql.DB) (*ManifestStore, error) {
	if err := CreateSchema(db); err != nil {
		return nil, err
	}
	return &ManifestStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the underlying database.
func (s *ManifestStore) Close() error {
	return s.db.Close()
}

// Get returns the scan cached under fingerprint. The boolean is false on a
// miss. A hit refreshes the entry's used_at so Prune keeps it.
func (s *ManifestStore) Get(ctx context.Context, fingerprint string) (*CachedScan, bool, error) {
	var data, diagData []byte
	err := squirrel.Select("data", "diagnostics").
		From("manifests").
		Where(squirrel.Eq{"fingerprint": fingerprint}).
		PlaceholderFormat(squirrel.Question).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&data, &diagData)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cached manifest: %w", err)
	}

	m, err := manifest.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached manifest: %w", err)
	}
	var diags scanDiagnostics
	if err := json.Unmarshal(diagData, &diags); err != nil {
		return nil, false, fmt.Errorf("decode cached diagnostics: %w", err)
	}

	_, err = squirrel.Update("manifests").
		Set("used_at", s.timestamp()).
		Where(squirrel.Eq{"fingerprint": fingerprint}).
		PlaceholderFormat(squirrel.Question).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("touch cached manifest: %w", err)
	}
	return &CachedScan{Manifest: m, Errors: diags.Errors, Warnings: diags.Warnings}, true, nil
}

// Put stores scan under fingerprint, replacing any previous entry.
func (s *ManifestStore) Put(ctx context.Context, fingerprint string, scan *CachedScan) error {
	m := scan.Manifest
	data, err := manifest.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	diagData, err := json.Marshal(scanDiagnostics{Errors: scan.Errors, Warnings: scan.Warnings})
	if err != nil {
		return fmt.Errorf("encode diagnostics: %w", err)
	}

	now := s.timestamp()
	_, err = squirrel.Insert("manifests").
		Columns("manifest_id", "fingerprint", "package_name", "version", "object_count", "data", "diagnostics", "created_at", "used_at").
		Values(uuid.New().String(), fingerprint, m.PackageName, m.Version, len(m.Objects), data, diagData, now, now).
		Suffix("ON CONFLICT(fingerprint) DO UPDATE SET package_name = excluded.package_name, version = excluded.version, object_count = excluded.object_count, data = excluded.data, diagnostics = excluded.diagnostics, used_at = excluded.used_at").
		PlaceholderFormat(squirrel.Question).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert manifest: %w", err)
	}
	return nil
}

// List returns cached entries, most recently used first.
func (s *ManifestStore) List(ctx context.Context) ([]ManifestEntry, error) {
	rows, err := squirrel.Select("manifest_id", "fingerprint", "package_name", "version", "object_count", "created_at", "used_at").
		From("manifests").
		OrderBy("used_at DESC", "created_at DESC").
		PlaceholderFormat(squirrel.Question).
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query manifests: %w", err)
	}
	defer rows.Close()

	var entries []ManifestEntry
	for rows.Next() {
		var e ManifestEntry
		var created, used string
		if err := rows.Scan(&e.ID, &e.Fingerprint, &e.PackageName, &e.Version, &e.ObjectCount, &created, &used); err != nil {
			return nil, fmt.Errorf("scan manifest row: %w", err)
		}
		e.CreatedAt, _ = time.Parse(timeFormat, created)
		e.UsedAt, _ = time.Parse(timeFormat, used)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return entries, nil
}

// Prune keeps the keep most recently used entries and deletes the rest,
// returning how many were removed. keep <= 0 keeps everything.
func (s *ManifestStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	keepIDs := squirrel.Select("manifest_id").
		From("manifests").
		OrderBy("used_at DESC", "created_at DESC").
		Limit(uint64(keep))
	sub, args, err := keepIDs.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build prune query: %w", err)
	}

	res, err := squirrel.Delete("manifests").
		Where("manifest_id NOT IN ("+sub+")", args...).
		PlaceholderFormat(squirrel.Question).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune manifests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune manifests: %w", err)
	}
	return n, nil
}

func (s *ManifestStore) timestamp() string {
	return s.now().UTC().Format(timeFormat)
}
