package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// Config wires a Scheduler.
type Config struct {
	// Store is required.
	Store execution.Store

	// Location is the time zone schedules fire in. Defaults to UTC.
	Location *time.Location

	Logger         *slog.Logger
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
}

// Scheduler ties together the registry, the timer binder and the
// coordinator for one process.
type Scheduler struct {
	registry    *Registry
	binder      *Binder
	coordinator *Coordinator
	store       execution.Store
	logger      *slog.Logger
}

// NewScheduler builds a stopped scheduler with an empty registry.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, errors.New("cron: scheduler requires an execution store")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	registry := NewRegistry(cfg.Logger)
	coordinator := NewCoordinator(registry, cfg.Store, CoordinatorConfig{
		Logger:         cfg.Logger,
		Metrics:        cfg.Metrics,
		TracerProvider: cfg.TracerProvider,
	})
	binder := NewBinder(registry, coordinator, BinderConfig{
		Location: cfg.Location,
		Logger:   cfg.Logger,
	})

	return &Scheduler{
		registry:    registry,
		binder:      binder,
		coordinator: coordinator,
		store:       cfg.Store,
		logger:      cfg.Logger,
	}, nil
}

// Register adds a job definition. See Registry.Register.
func (s *Scheduler) Register(def Definition) error {
	prev, prevErr := s.registry.Get(def.Name)
	if err := s.registry.Register(def); err != nil {
		return err
	}
	if def.Enabled {
		// A bound timer keeps the schedule it was built with.
		if prevErr == nil && prev.Schedule != def.Schedule {
			s.binder.Unbind(def.Name)
		}
		return s.binder.Bind(def.Name)
	}
	s.binder.Unbind(def.Name)
	return nil
}

// Start begins firing timers for enabled jobs.
func (s *Scheduler) Start() error {
	return s.binder.Start()
}

// Stop cancels future ticks. In-flight runs continue to completion.
func (s *Scheduler) Stop(_ context.Context) error {
	s.binder.Stop()
	return nil
}

// Running reports whether timers are active.
func (s *Scheduler) Running() bool {
	return s.binder.Running()
}

// Execute runs a job through the coordinator.
func (s *Scheduler) Execute(ctx context.Context, name string, trigger Trigger) (Result, error) {
	return s.coordinator.Execute(ctx, name, trigger)
}

// Trigger runs a job immediately on behalf of an operator.
func (s *Scheduler) Trigger(ctx context.Context, name string) (Result, error) {
	return s.coordinator.Trigger(ctx, name)
}

// SetEnabled updates a job's flag and, while running, binds or unbinds its
// timer to match.
func (s *Scheduler) SetEnabled(name string, enabled bool) error {
	if err := s.registry.SetEnabled(name, enabled); err != nil {
		return err
	}
	if enabled {
		if err := s.binder.Bind(name); err != nil {
			return err
		}
	} else {
		s.binder.Unbind(name)
	}
	s.logger.Info("cron: job toggled", "job", name, "enabled", enabled)
	return nil
}

// Registry returns the job catalog.
func (s *Scheduler) Registry() *Registry { return s.registry }

// Store returns the execution store.
func (s *Scheduler) Store() execution.Store { return s.store }

// Bound reports whether a timer is currently bound for name.
func (s *Scheduler) Bound(name string) bool { return s.binder.Bound(name) }

// Next returns the next fire time for name while its timer is bound.
func (s *Scheduler) Next(name string) (time.Time, bool) { return s.binder.Next(name) }
