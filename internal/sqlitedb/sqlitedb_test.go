package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"
)

var testSchema = Schema{
	Version: 1,
	Statements: []string{
		`CREATE TABLE IF NOT EXISTS things (id TEXT PRIMARY KEY)`,
	},
}

func TestOpen_CreatesNestedDirectoryAndSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a", "b", "test.db")
	db, err := Open(context.Background(), Options{Path: path, WAL: true, BusyTimeout: 1000, Schema: testSchema})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO things (id) VALUES ('x')`); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestMigrate_SkipsAppliedVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), Options{Path: path, Schema: testSchema})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	// A broken statement at the same version must not run.
	broken := Schema{Version: 1, Statements: []string{"NOT SQL"}}
	if err := Migrate(context.Background(), db, broken); err != nil {
		t.Errorf("Migrate() at applied version error = %v", err)
	}

	newer := Schema{Version: 2, Statements: []string{"NOT SQL"}}
	if err := Migrate(context.Background(), db, newer); err == nil {
		t.Error("Migrate() with broken newer schema returned nil")
	}
}
