package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// JobStatus describes one job for operators.
type JobStatus struct {
	Name          string               `json:"name"`
	Schedule      string               `json:"schedule"`
	Description   string               `json:"description"`
	Enabled       bool                 `json:"enabled"`
	Scheduled     bool                 `json:"scheduled"`
	NextRun       *time.Time           `json:"next_run,omitempty"`
	LastExecution *execution.Execution `json:"last_execution,omitempty"`
}

// Status is the scheduler-wide view returned by GetAllJobStatuses.
type Status struct {
	Running bool        `json:"running"`
	Jobs    []JobStatus `json:"jobs"`
}

// Toggle is the outcome of an enable or disable call.
type Toggle struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Admin is the operator surface over a Scheduler. Every call checks the job
// name against the registry before touching the store.
type Admin struct {
	scheduler *Scheduler
}

// NewAdmin creates an Admin for s.
func NewAdmin(s *Scheduler) *Admin {
	return &Admin{scheduler: s}
}

// Running reports whether the scheduler's timers are active.
func (a *Admin) Running() bool {
	return a.scheduler.Running()
}

// Jobs returns the registered job names.
func (a *Admin) Jobs() []string {
	return a.scheduler.registry.Names()
}

// GetAllJobStatuses returns every job with its last finished run.
func (a *Admin) GetAllJobStatuses(ctx context.Context) (Status, error) {
	defs := a.scheduler.registry.List()
	status := Status{
		Running: a.scheduler.Running(),
		Jobs:    make([]JobStatus, 0, len(defs)),
	}
	for _, def := range defs {
		js := JobStatus{
			Name:        def.Name,
			Schedule:    def.Schedule,
			Description: def.Description,
			Enabled:     def.Enabled,
			Scheduled:   a.scheduler.Bound(def.Name),
		}
		if next, ok := a.scheduler.Next(def.Name); ok {
			js.NextRun = &next
		}
		last, err := a.scheduler.store.LastExecution(ctx, def.Name)
		if err != nil {
			return Status{}, fmt.Errorf("cron: last execution of %q: %w", def.Name, err)
		}
		js.LastExecution = last
		status.Jobs = append(status.Jobs, js)
	}
	return status, nil
}

// GetJobHistory returns up to limit recent runs of name, newest first.
// The limit is clamped to [1, execution.MaxHistoryLimit].
func (a *Admin) GetJobHistory(ctx context.Context, name string, limit int) ([]execution.Execution, error) {
	if err := a.ValidateJob(name); err != nil {
		return nil, err
	}
	rows, err := a.scheduler.store.RecentExecutions(ctx, name, execution.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("cron: history of %q: %w", name, err)
	}
	if rows == nil {
		rows = []execution.Execution{}
	}
	return rows, nil
}

// TriggerJob runs name now and returns its result, including skipped and
// failed runs.
func (a *Admin) TriggerJob(ctx context.Context, name string) (Result, error) {
	if err := a.ValidateJob(name); err != nil {
		return Result{}, err
	}
	return a.scheduler.Trigger(ctx, name)
}

// EnableJob enables name and binds its timer when the scheduler is running.
func (a *Admin) EnableJob(name string) (Toggle, error) {
	return a.toggle(name, true)
}

// DisableJob disables name and unbinds its timer.
func (a *Admin) DisableJob(name string) (Toggle, error) {
	return a.toggle(name, false)
}

func (a *Admin) toggle(name string, enabled bool) (Toggle, error) {
	if err := a.ValidateJob(name); err != nil {
		return Toggle{}, err
	}
	if err := a.scheduler.SetEnabled(name, enabled); err != nil {
		return Toggle{}, err
	}
	return Toggle{Name: name, Enabled: enabled}, nil
}

// ValidateJob returns ErrUnknownJob unless name is registered.
func (a *Admin) ValidateJob(name string) error {
	if !a.scheduler.registry.Has(name) {
		return unknownJob(name)
	}
	return nil
}
