package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// timeLayout is fixed-width so that text comparison orders timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const columns = `id, job_name, started_at, completed_at, status, processed_count, error_count, errors, metadata`

const (
	reclaimQuery = `
		UPDATE job_executions
		SET status = 'failed', completed_at = ?, error_count = 1, errors = ?
		WHERE job_name = ? AND status = 'running' AND started_at < ?`

	insertRunningQuery = `
		INSERT INTO job_executions (id, job_name, started_at, status)
		VALUES (?, ?, ?, 'running')
		ON CONFLICT DO NOTHING`

	markCompletedQuery = `
		UPDATE job_executions
		SET status = 'completed', completed_at = ?, processed_count = ?, error_count = ?, errors = ?, metadata = ?
		WHERE id = ? AND status = 'running'`

	markFailedQuery = `
		UPDATE job_executions
		SET status = 'failed', completed_at = ?, error_count = 1, errors = ?
		WHERE id = ? AND status = 'running'`

	statusQuery = `SELECT status FROM job_executions WHERE id = ?`

	lastExecutionQuery = `
		SELECT ` + columns + ` FROM job_executions
		WHERE job_name = ? AND status IN ('completed', 'failed')
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1`

	recentExecutionsQuery = `
		SELECT ` + columns + ` FROM job_executions
		WHERE job_name = ?
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`

	purgeQuery = `DELETE FROM job_executions WHERE started_at < ?`
)

// Store is an execution.Store backed by SQLite. The running-row lock relies
// on the partial unique index idx_job_executions_running.
type Store struct {
	db   *sql.DB
	opts execution.Options
}

// Compile-time interface check.
var _ execution.Store = (*Store)(nil)

// NewStore wraps an already-migrated database.
func NewStore(db *sql.DB, opts ...execution.Option) *Store {
	return &Store{db: db, opts: execution.BuildOptions(opts...)}
}

// AcquireLock implements execution.Store.
func (s *Store) AcquireLock(ctx context.Context, jobName string) (*execution.Execution, error) {
	now := s.opts.Now().UTC()

	staleErrs, err := encodeErrors([]string{execution.StaleLockMessage(s.opts.StaleAfter)})
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin acquire: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, reclaimQuery,
		formatTime(now), staleErrs, jobName, formatTime(now.Add(-s.opts.StaleAfter)))
	if err != nil {
		return nil, fmt.Errorf("sqlite: reclaim stale lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.opts.Logger.Warn("execution: reclaimed stale lock", "job", jobName, "rows", n)
	}

	exec := &execution.Execution{
		ID:        execution.NewID(),
		JobName:   jobName,
		StartedAt: now,
		Status:    execution.StatusRunning,
	}
	res, err = tx.ExecContext(ctx, insertRunningQuery, exec.ID, jobName, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert running row: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert running row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit acquire: %w", err)
	}
	if inserted == 0 {
		return nil, nil
	}
	return exec, nil
}

// MarkCompleted implements execution.Store.
func (s *Store) MarkCompleted(ctx context.Context, id string, processed, errorCount int, errs []string, metadata map[string]any) error {
	errsJSON, err := encodeErrors(errs)
	if err != nil {
		return err
	}
	metaJSON, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, markCompletedQuery,
		formatTime(s.opts.Now().UTC()), processed, errorCount, errsJSON, metaJSON, id)
	if err != nil {
		return fmt.Errorf("sqlite: mark completed: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// MarkFailed implements execution.Store.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	errsJSON, err := encodeErrors([]string{message})
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, markFailedQuery, formatTime(s.opts.Now().UTC()), errsJSON, id)
	if err != nil {
		return fmt.Errorf("sqlite: mark failed: %w", err)
	}
	return s.checkTransition(ctx, res, id)
}

// checkTransition turns a zero-row update into ErrNotFound or
// ErrAlreadyFinished.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, statusQuery, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: execution %s: %w", id, execution.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlite: read status: %w", err)
	}
	return fmt.Errorf("sqlite: execution %s is %s: %w", id, status, execution.ErrAlreadyFinished)
}

// LastExecution implements execution.Store.
func (s *Store) LastExecution(ctx context.Context, jobName string) (*execution.Execution, error) {
	exec, err := scanExecution(s.db.QueryRowContext(ctx, lastExecutionQuery, jobName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: last execution: %w", err)
	}
	return exec, nil
}

// RecentExecutions implements execution.Store.
func (s *Store) RecentExecutions(ctx context.Context, jobName string, limit int) ([]execution.Execution, error) {
	rows, err := s.db.QueryContext(ctx, recentExecutionsQuery, jobName, execution.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent executions: %w", err)
	}
	defer rows.Close()

	out := []execution.Execution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan execution: %w", err)
		}
		out = append(out, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate executions: %w", err)
	}
	return out, nil
}

// Purge implements execution.Store.
func (s *Store) Purge(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, purgeQuery, formatTime(before.UTC()))
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: purge rows affected: %w", err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (*execution.Execution, error) {
	var (
		exec      execution.Execution
		started   string
		completed sql.NullString
		status    string
		errsJSON  string
		metaJSON  string
	)
	if err := row.Scan(&exec.ID, &exec.JobName, &started, &completed, &status,
		&exec.ProcessedCount, &exec.ErrorCount, &errsJSON, &metaJSON); err != nil {
		return nil, err
	}

	var err error
	if exec.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("started_at: %w", err)
	}
	if completed.Valid {
		t, err := time.Parse(timeLayout, completed.String)
		if err != nil {
			return nil, fmt.Errorf("completed_at: %w", err)
		}
		exec.CompletedAt = &t
	}
	exec.Status = execution.Status(status)

	if err := json.Unmarshal([]byte(errsJSON), &exec.Errors); err != nil {
		return nil, fmt.Errorf("errors: %w", err)
	}
	if len(exec.Errors) == 0 {
		exec.Errors = nil
	}
	if err := json.Unmarshal([]byte(metaJSON), &exec.Metadata); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	if len(exec.Metadata) == 0 {
		exec.Metadata = nil
	}
	return &exec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func encodeErrors(errs []string) (string, error) {
	if errs == nil {
		errs = []string{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode errors: %w", err)
	}
	return string(b), nil
}

func encodeMetadata(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode metadata: %w", err)
	}
	return string(b), nil
}
