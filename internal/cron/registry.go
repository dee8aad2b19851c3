package cron

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Registry is the catalog of known jobs, keyed by name.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]*Definition
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		defs:   make(map[string]*Definition),
		logger: logger,
	}
}

// Register stores def, replacing any earlier definition with the same
// name. A definition with an invalid schedule is logged and discarded; the
// returned error lets callers that care react to it.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("cron: job name is required")
	}
	if def.Handler == nil {
		return fmt.Errorf("cron: job %q has no handler", def.Name)
	}
	if err := ValidateSchedule(def.Schedule); err != nil {
		r.logger.Error("cron: discarding job with invalid schedule",
			"job", def.Name,
			"schedule", def.Schedule,
			"error", err,
		)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		r.logger.Warn("cron: replacing job definition", "job", def.Name)
	}
	d := def
	r.defs[def.Name] = &d
	return nil
}

// Get returns a copy of the named definition.
func (r *Registry) Get(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.defs[name]
	if !ok {
		return Definition{}, unknownJob(name)
	}
	return *d, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// List returns copies of all definitions sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b Definition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Names returns the registered job names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetEnabled flips the enabled flag of a registered job.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.defs[name]
	if !ok {
		return unknownJob(name)
	}
	d.Enabled = enabled
	return nil
}
