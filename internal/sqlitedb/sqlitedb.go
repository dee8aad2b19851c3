// Package sqlitedb opens modernc.org/sqlite databases with the pragmas and
// versioned schema bootstrap shared by the SQLite-backed modules.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Schema is a versioned list of idempotent DDL statements.
type Schema struct {
	Version    int
	Statements []string
}

// Options configures Open.
type Options struct {
	Path        string
	WAL         bool
	BusyTimeout int // milliseconds
	Schema      Schema
}

// Open opens the database at opts.Path, applies pragmas and migrates the
// schema. The caller owns the returned *sql.DB.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", opts.Path, err)
	}

	// One connection keeps PRAGMAs consistent and serialises writers.
	db.SetMaxOpenConns(1)

	if opts.WAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", opts.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := Migrate(ctx, db, opts.Schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies schema when the recorded version is older.
func Migrate(ctx context.Context, db *sql.DB, schema Schema) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}
	if current >= schema.Version {
		return nil
	}

	for _, stmt := range schema.Statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schema.Version); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}
	return nil
}
