package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner executes a job by name. Coordinator implements it.
type Runner interface {
	Execute(ctx context.Context, name string, trigger Trigger) (Result, error)
}

// BinderConfig holds optional Binder settings.
type BinderConfig struct {
	// Location is the time zone schedules are evaluated in. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// Binder owns one cron timer per enabled job while the scheduler runs.
type Binder struct {
	mu       sync.Mutex
	registry *Registry
	runner   Runner
	logger   *slog.Logger
	location *time.Location

	cron    *cron.Cron
	entries map[string]cron.EntryID
	running bool
}

// NewBinder creates a stopped binder.
func NewBinder(registry *Registry, runner Runner, cfg BinderConfig) *Binder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Binder{
		registry: registry,
		runner:   runner,
		logger:   cfg.Logger,
		location: cfg.Location,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start binds a timer for every enabled job. Starting a running binder logs
// a warning and does nothing.
func (b *Binder) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		b.logger.Warn("cron: scheduler already running")
		return nil
	}

	b.cron = cron.New(cron.WithParser(parser), cron.WithLocation(b.location))
	b.entries = make(map[string]cron.EntryID)
	for _, def := range b.registry.List() {
		if !def.Enabled {
			continue
		}
		if err := b.bindLocked(def); err != nil {
			b.cron = nil
			b.entries = make(map[string]cron.EntryID)
			return err
		}
	}

	b.cron.Start()
	b.running = true
	b.logger.Info("cron: scheduler started", "jobs", len(b.entries), "timezone", b.location.String())
	return nil
}

// Stop cancels all timers. Runs already in progress are not waited for.
func (b *Binder) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return
	}
	b.cron.Stop()
	b.cron = nil
	b.entries = make(map[string]cron.EntryID)
	b.running = false
	b.logger.Info("cron: scheduler stopped")
}

// Running reports whether timers are active.
func (b *Binder) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Bind adds a timer for name if the binder is running and none is bound.
func (b *Binder) Bind(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}
	if _, bound := b.entries[name]; bound {
		return nil
	}
	def, err := b.registry.Get(name)
	if err != nil {
		return err
	}
	return b.bindLocked(def)
}

// Unbind removes the timer for name, if any.
func (b *Binder) Unbind(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.entries[name]
	if !ok {
		return
	}
	b.cron.Remove(id)
	delete(b.entries, name)
	b.logger.Debug("cron: timer unbound", "job", name)
}

// Bound reports whether a timer is bound for name.
func (b *Binder) Bound(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[name]
	return ok
}

// Next returns the next scheduled fire time for name.
func (b *Binder) Next(name string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.entries[name]
	if !ok {
		return time.Time{}, false
	}
	entry := b.cron.Entry(id)
	if !entry.Valid() {
		return time.Time{}, false
	}
	if entry.Next.IsZero() {
		return entry.Schedule.Next(time.Now().In(b.location)), true
	}
	return entry.Next, true
}

// bindLocked must be called with b.mu held.
func (b *Binder) bindLocked(def Definition) error {
	name := def.Name
	id, err := b.cron.AddFunc(def.Schedule, func() { b.fire(name) })
	if err != nil {
		return fmt.Errorf("cron: binding %q: %w", name, err)
	}
	b.entries[name] = id
	b.logger.Debug("cron: timer bound", "job", name, "schedule", def.Schedule)
	return nil
}

// fire runs on a goroutine of its own for every tick. Nothing it does may
// escape into the timer loop.
func (b *Binder) fire(name string) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("cron: scheduled run panicked", "job", name, "panic", r)
		}
	}()

	if _, err := b.runner.Execute(context.Background(), name, TriggerScheduled); err != nil {
		b.logger.Error("cron: scheduled run failed", "job", name, "error", err)
	}
}
