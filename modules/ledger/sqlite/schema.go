package sqlite

import (
	"context"
	"database/sql"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/sqlitedb"
)

var schema = sqlitedb.Schema{
	Version: 1,
	Statements: []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id           TEXT    PRIMARY KEY,
			user_id      TEXT    NOT NULL,
			account_id   TEXT    NOT NULL DEFAULT '',
			type         TEXT    NOT NULL CHECK (type IN ('income', 'expense')),
			amount       INTEGER NOT NULL,
			category     TEXT    NOT NULL DEFAULT '',
			description  TEXT    NOT NULL DEFAULT '',
			date         TEXT    NOT NULL,
			recurring_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,

		`CREATE TABLE IF NOT EXISTS recurring_transactions (
			id          TEXT    PRIMARY KEY,
			user_id     TEXT    NOT NULL,
			account_id  TEXT    NOT NULL DEFAULT '',
			type        TEXT    NOT NULL CHECK (type IN ('income', 'expense')),
			amount      INTEGER NOT NULL,
			category    TEXT    NOT NULL DEFAULT '',
			description TEXT    NOT NULL DEFAULT '',
			frequency   TEXT    NOT NULL,
			start_date  TEXT    NOT NULL,
			next_date   TEXT    NOT NULL,
			end_date    TEXT,
			active      INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recurring_due ON recurring_transactions(active, next_date)`,

		`CREATE TABLE IF NOT EXISTS goals (
			id                     TEXT    PRIMARY KEY,
			user_id                TEXT    NOT NULL,
			name                   TEXT    NOT NULL,
			target                 INTEGER NOT NULL,
			current                INTEGER NOT NULL DEFAULT 0,
			deadline               TEXT,
			status                 TEXT    NOT NULL DEFAULT 'active',
			auto_contribution      INTEGER NOT NULL DEFAULT 0,
			contribution_frequency TEXT    NOT NULL DEFAULT '',
			next_contribution      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_status ON goals(status)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id        TEXT    PRIMARY KEY,
			user_id   TEXT    NOT NULL,
			name      TEXT    NOT NULL DEFAULT '',
			category  TEXT    NOT NULL,
			amount    INTEGER NOT NULL,
			period    TEXT    NOT NULL DEFAULT 'monthly',
			threshold REAL    NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS budget_alerts (
			budget_id TEXT NOT NULL,
			period    TEXT NOT NULL,
			kind      TEXT NOT NULL,
			sent_at   TEXT NOT NULL,
			PRIMARY KEY (budget_id, period, kind)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT    PRIMARY KEY,
			user_id    TEXT    NOT NULL,
			kind       TEXT    NOT NULL,
			title      TEXT    NOT NULL,
			message    TEXT    NOT NULL,
			data       TEXT    NOT NULL DEFAULT '{}',
			read       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
	},
}

// Open opens and migrates the ledger database described by cfg.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	cfg.defaults()
	return sqlitedb.Open(ctx, sqlitedb.Options{
		Path:        cfg.Path,
		WAL:         cfg.walEnabled(),
		BusyTimeout: cfg.BusyTimeout,
		Schema:      schema,
	})
}
