// Package cron runs recurring background jobs. Every run, whether fired by
// a cron timer or requested through the admin surface, passes through the
// Coordinator, which takes the per-job lock from the execution store before
// invoking the job's handler and records the outcome afterwards.
package cron

import (
	"context"
	"maps"
	"slices"
)

// Result is what a handler reports back after a run.
type Result struct {
	ProcessedCount int            `json:"processed_count"`
	ErrorCount     int            `json:"error_count"`
	Errors         []string       `json:"errors,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// metaSkipped marks a result produced because the lock was already held.
const metaSkipped = "skipped"

// SkippedResult is returned when a run was refused because another run of
// the same job is still live.
func SkippedResult() Result {
	return Result{Metadata: map[string]any{metaSkipped: true}}
}

// Skipped reports whether r came from a refused run.
func (r Result) Skipped() bool {
	v, _ := r.Metadata[metaSkipped].(bool)
	return v
}

func (r Result) clone() Result {
	r.Errors = slices.Clone(r.Errors)
	r.Metadata = maps.Clone(r.Metadata)
	return r
}

// Handler performs one unit of background work.
//
// The context carries request-scoped values such as the trace span. It is
// never cancelled by the scheduler: a run that has started always runs to
// completion.
type Handler func(ctx context.Context) (Result, error)

// Definition describes a registered job. Schedule and Description are set
// in code; Enabled may be toggled at runtime.
type Definition struct {
	Name        string
	Schedule    string
	Description string
	Enabled     bool
	Handler     Handler
}

// Trigger labels how a run was requested.
type Trigger string

// Triggers.
const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)
