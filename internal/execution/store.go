package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultStaleAfter is how long a running row may live before the next
	// acquisition attempt reclaims it.
	DefaultStaleAfter = 30 * time.Minute

	// DefaultRetention is how long rows are kept, measured from started_at.
	DefaultRetention = 90 * 24 * time.Hour

	// DefaultHistoryLimit and MaxHistoryLimit bound RecentExecutions.
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

var (
	// ErrNotFound is returned when an execution ID does not exist.
	ErrNotFound = errors.New("execution: not found")

	// ErrAlreadyFinished is returned when marking a row that already
	// reached a terminal status.
	ErrAlreadyFinished = errors.New("execution: already finished")
)

// Store persists executions and arbitrates the per-job lock.
type Store interface {
	// AcquireLock inserts a running row for jobName and returns it. A running
	// row older than the stale window is first rewritten to failed. When a
	// live running row exists, it returns (nil, nil).
	AcquireLock(ctx context.Context, jobName string) (*Execution, error)

	// MarkCompleted moves a running row to completed with final counters.
	MarkCompleted(ctx context.Context, id string, processed, errorCount int, errs []string, metadata map[string]any) error

	// MarkFailed moves a running row to failed with a single error message.
	MarkFailed(ctx context.Context, id string, message string) error

	// LastExecution returns the most recent completed or failed row for
	// jobName, or (nil, nil) if there is none.
	LastExecution(ctx context.Context, jobName string) (*Execution, error)

	// RecentExecutions returns up to limit rows of any status, newest first.
	RecentExecutions(ctx context.Context, jobName string, limit int) ([]Execution, error)

	// Purge deletes rows that started before the cutoff and returns how many
	// were removed.
	Purge(ctx context.Context, before time.Time) (int, error)
}

// Options tune store behaviour shared by every backend.
type Options struct {
	StaleAfter time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

// Option configures Options.
type Option func(*Options)

// WithStaleAfter overrides DefaultStaleAfter.
func WithStaleAfter(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.StaleAfter = d
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithLogger sets the logger used to report reclaimed locks.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{
		StaleAfter: DefaultStaleAfter,
		Now:        time.Now,
		Logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// StaleLockMessage is the error recorded on a reclaimed running row.
func StaleLockMessage(staleAfter time.Duration) string {
	return fmt.Sprintf("stale lock: timed out after %s", staleAfter)
}

// ClampLimit maps a requested history size into [1, MaxHistoryLimit],
// using DefaultHistoryLimit for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

// NewID returns a fresh execution ID.
func NewID() string {
	return uuid.NewString()
}
