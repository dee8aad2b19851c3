package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

const tracerName = "github.com/ashutoshgairola/Riddhi-sub001/internal/cron"

// CoordinatorConfig holds optional Coordinator dependencies.
type CoordinatorConfig struct {
	Logger         *slog.Logger
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
}

// Coordinator runs jobs under the store's per-job lock and records every
// outcome. Scheduled ticks and manual triggers both go through Execute.
type Coordinator struct {
	registry *Registry
	store    execution.Store
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// NewCoordinator creates a coordinator over registry and store.
func NewCoordinator(registry *Registry, store execution.Store, cfg CoordinatorConfig) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	return &Coordinator{
		registry: registry,
		store:    store,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.TracerProvider.Tracer(tracerName),
	}
}

// Execute runs the named job once.
//
// If another run of the job is live, Execute returns SkippedResult without
// calling the handler. A handler error or panic is recorded as a failed
// execution and reported through the returned Result, as is a result the
// store refuses to record. The error return is reserved for unknown jobs and
// storage failures that leave no terminal record.
func (c *Coordinator) Execute(ctx context.Context, name string, trigger Trigger) (Result, error) {
	def, err := c.registry.Get(name)
	if err != nil {
		return Result{}, err
	}

	// Once the lock is taken the run must finish and be recorded even if the
	// caller goes away.
	ctx = context.WithoutCancel(ctx)
	ctx, span := c.tracer.Start(ctx, "cron.execute", trace.WithAttributes(
		attribute.String("job", name),
		attribute.String("trigger", string(trigger)),
	))
	defer span.End()

	logger := c.logger.With("job", name, "trigger", string(trigger))

	exec, err := c.store.AcquireLock(ctx, name)
	if err != nil {
		c.finish(span, trigger, name, outcomeError, err)
		return Result{}, fmt.Errorf("cron: acquiring lock for %q: %w", name, err)
	}
	if exec == nil {
		logger.Debug("cron: job still running, skipping")
		c.finish(span, trigger, name, outcomeSkipped, nil)
		return SkippedResult(), nil
	}
	span.SetAttributes(attribute.String("execution_id", exec.ID))
	logger = logger.With("execution_id", exec.ID)
	logger.Debug("cron: job started")

	done := c.metrics.begin(name)
	res, runErr := invoke(ctx, logger, def.Handler)
	elapsed := done()

	if runErr != nil {
		msg := runErr.Error()
		if err := c.store.MarkFailed(ctx, exec.ID, msg); err != nil {
			c.finish(span, trigger, name, outcomeError, err)
			return Result{}, fmt.Errorf("cron: recording failure of %q: %w", name, err)
		}
		logger.Error("cron: job failed", "error", runErr, "duration", elapsed)
		c.finish(span, trigger, name, outcomeFailed, runErr)
		return Result{ErrorCount: 1, Errors: []string{msg}}, nil
	}

	if err := c.store.MarkCompleted(ctx, exec.ID, res.ProcessedCount, res.ErrorCount, res.Errors, res.Metadata); err != nil {
		// The row must still leave running, or the job stays locked until
		// the stale window expires.
		msg := "recording result: " + err.Error()
		if ferr := c.store.MarkFailed(ctx, exec.ID, msg); ferr != nil {
			joined := errors.Join(err, ferr)
			c.finish(span, trigger, name, outcomeError, joined)
			return Result{}, fmt.Errorf("cron: recording completion of %q: %w", name, joined)
		}
		logger.Error("cron: job result could not be recorded", "error", err, "duration", elapsed)
		c.finish(span, trigger, name, outcomeFailed, err)
		return Result{ErrorCount: 1, Errors: []string{msg}}, nil
	}
	logger.Info("cron: job completed",
		"processed", res.ProcessedCount,
		"errors", res.ErrorCount,
		"duration", elapsed,
	)
	c.finish(span, trigger, name, outcomeCompleted, nil)
	return res, nil
}

// Trigger runs the named job on behalf of an operator.
func (c *Coordinator) Trigger(ctx context.Context, name string) (Result, error) {
	return c.Execute(ctx, name, TriggerManual)
}

func (c *Coordinator) finish(span trace.Span, trigger Trigger, name, outcome string, err error) {
	c.metrics.observe(name, trigger, outcome)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// invoke calls h, converting a panic into an error.
func invoke(ctx context.Context, logger *slog.Logger, h Handler) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			logger.Error("cron: handler panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	res, err = h(ctx)
	if err != nil {
		return Result{}, err
	}
	return res.clone(), nil
}
