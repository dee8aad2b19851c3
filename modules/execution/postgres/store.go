package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const columns = `id, job_name, started_at, completed_at, status, processed_count, error_count, errors, metadata`

const (
	reclaimQuery = `
		UPDATE job_executions
		SET status = 'failed', completed_at = $1, error_count = 1, errors = $2
		WHERE job_name = $3 AND status = 'running' AND started_at < $4`

	insertRunningQuery = `
		INSERT INTO job_executions (id, job_name, started_at, status)
		VALUES ($1, $2, $3, 'running')
		ON CONFLICT DO NOTHING
		RETURNING id`

	markCompletedQuery = `
		UPDATE job_executions
		SET status = 'completed', completed_at = $1, processed_count = $2, error_count = $3, errors = $4, metadata = $5
		WHERE id = $6 AND status = 'running'`

	markFailedQuery = `
		UPDATE job_executions
		SET status = 'failed', completed_at = $1, error_count = 1, errors = $2
		WHERE id = $3 AND status = 'running'`

	statusQuery = `SELECT status FROM job_executions WHERE id = $1`

	lastExecutionQuery = `
		SELECT ` + columns + ` FROM job_executions
		WHERE job_name = $1 AND status IN ('completed', 'failed')
		ORDER BY started_at DESC, seq DESC
		LIMIT 1`

	recentExecutionsQuery = `
		SELECT ` + columns + ` FROM job_executions
		WHERE job_name = $1
		ORDER BY started_at DESC, seq DESC
		LIMIT $2`

	purgeQuery = `DELETE FROM job_executions WHERE started_at < $1`
)

// Store is an execution.Store backed by PostgreSQL.
type Store struct {
	db   DB
	opts execution.Options
}

var _ execution.Store = (*Store)(nil)

// NewStore wraps a migrated database.
func NewStore(db DB, opts ...execution.Option) *Store {
	return &Store{db: db, opts: execution.BuildOptions(opts...)}
}

// AcquireLock reclaims a stale running row and inserts a new one in a single
// transaction. Concurrent callers serialise on idx_job_executions_running.
func (s *Store) AcquireLock(ctx context.Context, jobName string) (*execution.Execution, error) {
	now := s.opts.Now().UTC()
	exec := &execution.Execution{
		ID:        execution.NewID(),
		JobName:   jobName,
		StartedAt: now,
		Status:    execution.StatusRunning,
	}

	acquired := false
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, reclaimQuery,
			now, []string{execution.StaleLockMessage(s.opts.StaleAfter)}, jobName, now.Add(-s.opts.StaleAfter))
		if err != nil {
			return fmt.Errorf("reclaim stale lock: %w", err)
		}
		if n := tag.RowsAffected(); n > 0 {
			s.opts.Logger.Warn("execution: reclaimed stale lock", "job", jobName, "rows", n)
		}

		var id string
		err = tx.QueryRow(ctx, insertRunningQuery, exec.ID, jobName, now).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert running row: %w", err)
		}
		acquired = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: acquire %s: %w", jobName, err)
	}
	if !acquired {
		return nil, nil
	}
	return exec, nil
}

// MarkCompleted implements execution.Store.
func (s *Store) MarkCompleted(ctx context.Context, id string, processed, errorCount int, errs []string, metadata map[string]any) error {
	if errs == nil {
		errs = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	tag, err := s.db.Exec(ctx, markCompletedQuery,
		s.opts.Now().UTC(), processed, errorCount, errs, metadata, id)
	if err != nil {
		return fmt.Errorf("postgres: mark completed: %w", err)
	}
	return s.checkTransition(ctx, tag, id)
}

// MarkFailed implements execution.Store.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	tag, err := s.db.Exec(ctx, markFailedQuery, s.opts.Now().UTC(), []string{message}, id)
	if err != nil {
		return fmt.Errorf("postgres: mark failed: %w", err)
	}
	return s.checkTransition(ctx, tag, id)
}

func (s *Store) checkTransition(ctx context.Context, tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status string
	err := s.db.QueryRow(ctx, statusQuery, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres: execution %s: %w", id, execution.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("postgres: read status: %w", err)
	}
	return fmt.Errorf("postgres: execution %s is %s: %w", id, status, execution.ErrAlreadyFinished)
}

// LastExecution implements execution.Store.
func (s *Store) LastExecution(ctx context.Context, jobName string) (*execution.Execution, error) {
	exec, err := scanExecution(s.db.QueryRow(ctx, lastExecutionQuery, jobName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: last execution: %w", err)
	}
	return exec, nil
}

// RecentExecutions implements execution.Store.
func (s *Store) RecentExecutions(ctx context.Context, jobName string, limit int) ([]execution.Execution, error) {
	rows, err := s.db.Query(ctx, recentExecutionsQuery, jobName, execution.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("postgres: recent executions: %w", err)
	}
	defer rows.Close()

	out := []execution.Execution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		out = append(out, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate executions: %w", err)
	}
	return out, nil
}

// Purge implements execution.Store.
func (s *Store) Purge(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, purgeQuery, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres: purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanExecution(row pgx.Row) (*execution.Execution, error) {
	var (
		exec   execution.Execution
		status string
	)
	if err := row.Scan(&exec.ID, &exec.JobName, &exec.StartedAt, &exec.CompletedAt, &status,
		&exec.ProcessedCount, &exec.ErrorCount, &exec.Errors, &exec.Metadata); err != nil {
		return nil, err
	}
	exec.Status = execution.Status(status)
	exec.StartedAt = exec.StartedAt.UTC()
	if exec.CompletedAt != nil {
		t := exec.CompletedAt.UTC()
		exec.CompletedAt = &t
	}
	if len(exec.Errors) == 0 {
		exec.Errors = nil
	}
	if len(exec.Metadata) == 0 {
		exec.Metadata = nil
	}
	return &exec, nil
}
