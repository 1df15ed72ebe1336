package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/projection"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Target is a database generated DDL can be applied to.
type Target struct {
	DB      *sql.DB
	Dialect projection.Dialect
}

// OpenTarget opens dsn with the driver its form implies: postgres:// and
// postgresql:// URLs use pgx, anything else is a SQLite path (an optional
// sqlite:// or file: prefix is accepted).
func OpenTarget(dsn string) (*Target, error) {
	driver, source, dialect := "sqlite3", dsn, projection.DialectSQLite
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver, dialect = "pgx", projection.DialectPostgres
	case strings.HasPrefix(dsn, "sqlite://"):
		source = strings.TrimPrefix(dsn, "sqlite://")
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s target: %w", dialect, err)
	}
	return &Target{DB: db, Dialect: dialect}, nil
}

// Close closes the target database.
func (t *Target) Close() error {
	return t.DB.Close()
}

// ApplySchema executes statements in order inside one transaction. Either
// every statement applies or none does. It returns the number executed.
func ApplySchema(ctx context.Context, db *sql.DB, statements []string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to execute statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return len(statements), nil
}
