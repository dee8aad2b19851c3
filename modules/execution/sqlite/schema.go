package sqlite

import (
	"context"
	"database/sql"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/sqlitedb"
)

// schema is applied in order; every statement is idempotent.
var schema = sqlitedb.Schema{
	Version: 1,
	Statements: []string{
		`CREATE TABLE IF NOT EXISTS job_executions (
			id              TEXT    PRIMARY KEY,
			job_name        TEXT    NOT NULL,
			started_at      TEXT    NOT NULL,
			completed_at    TEXT,
			status          TEXT    NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
			processed_count INTEGER NOT NULL DEFAULT 0,
			error_count     INTEGER NOT NULL DEFAULT 0,
			errors          TEXT    NOT NULL DEFAULT '[]',
			metadata        TEXT    NOT NULL DEFAULT '{}'
		)`,

		// The lock: at most one running row per job.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_executions_running
			ON job_executions(job_name) WHERE status = 'running'`,

		`CREATE INDEX IF NOT EXISTS idx_job_executions_job_started
			ON job_executions(job_name, started_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_job_executions_started
			ON job_executions(started_at)`,
	},
}

// Open opens and migrates the execution database described by cfg.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg.defaults()
	return sqlitedb.Open(ctx, sqlitedb.Options{
		Path:        cfg.Path,
		WAL:         cfg.walEnabled(),
		BusyTimeout: cfg.BusyTimeout,
		Schema:      schema,
	})
}
