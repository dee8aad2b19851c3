// Package execution defines the durable record of job runs and the Store
// contract that doubles as the scheduler's per-job lock.
//
// A row with status running is the lock for its job. Stores guarantee that
// at most one such row exists per job name, reclaim rows that have been
// running longer than the stale window, and allow exactly one terminal
// transition per row.
package execution

import "time"

// Status is the lifecycle state of an execution row.
type Status string

// Execution statuses.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Execution is one run attempt of a job.
type Execution struct {
	ID             string         `json:"id"`
	JobName        string         `json:"job_name"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Status         Status         `json:"status"`
	ProcessedCount int            `json:"processed_count"`
	ErrorCount     int            `json:"error_count"`
	Errors         []string       `json:"errors,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Terminal reports whether the execution has reached completed or failed.
func (e *Execution) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}

// Duration returns how long the run took, or zero while it is running.
func (e *Execution) Duration() time.Duration {
	if e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// IsStale reports whether a running execution started longer than staleAfter
// before now.
func (e *Execution) IsStale(now time.Time, staleAfter time.Duration) bool {
	return e.Status == StatusRunning && now.Sub(e.StartedAt) > staleAfter
}
