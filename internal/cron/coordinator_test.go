package cron_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron/crontest"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

type fixture struct {
	store     *crontest.RecordingStore
	scheduler *cron.Scheduler
	registry  *prometheus.Registry
	spans     *tracetest.SpanRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := prometheus.NewRegistry()
	spans := tracetest.NewSpanRecorder()
	store := crontest.NewRecordingStore(execution.NewInMemoryStore(execution.WithLogger(quietLogger())))

	s, err := cron.NewScheduler(cron.Config{
		Store:          store,
		Logger:         quietLogger(),
		Metrics:        cron.NewMetrics(reg),
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	return &fixture{store: store, scheduler: s, registry: reg, spans: spans}
}

func (f *fixture) register(t *testing.T, name string, h cron.Handler) {
	t.Helper()
	require.NoError(t, f.scheduler.Register(cron.Definition{
		Name:     name,
		Schedule: "0 3 * * *",
		Enabled:  true,
		Handler:  h,
	}))
}

func TestCoordinator_CompletedRun(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "daily_cleanup", func(context.Context) (cron.Result, error) {
		return cron.Result{ProcessedCount: 3, ErrorCount: 0}, nil
	})

	res, err := f.scheduler.Trigger(context.Background(), "daily_cleanup")
	require.NoError(t, err)
	assert.Equal(t, cron.Result{ProcessedCount: 3, ErrorCount: 0}, res)

	last, err := f.store.LastExecution(context.Background(), "daily_cleanup")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, execution.StatusCompleted, last.Status)
	assert.Equal(t, 3, last.ProcessedCount)
}

func TestCoordinator_HandlerErrorIsRecorded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "daily_cleanup", func(context.Context) (cron.Result, error) {
		return cron.Result{ProcessedCount: 7}, errors.New("boom")
	})

	res, err := f.scheduler.Execute(context.Background(), "daily_cleanup", cron.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, cron.Result{ProcessedCount: 0, ErrorCount: 1, Errors: []string{"boom"}}, res)

	last, err := f.store.LastExecution(context.Background(), "daily_cleanup")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, execution.StatusFailed, last.Status)
	assert.Equal(t, []string{"boom"}, last.Errors)
}

func TestCoordinator_HandlerPanicIsRecorded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "goal_contributions", func(context.Context) (cron.Result, error) {
		panic("kaboom")
	})

	res, err := f.scheduler.Trigger(context.Background(), "goal_contributions")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, []string{"panic: kaboom"}, res.Errors)

	last, err := f.store.LastExecution(context.Background(), "goal_contributions")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, execution.StatusFailed, last.Status)

	// The lock was released, so the next run proceeds.
	_, err = f.scheduler.Trigger(context.Background(), "goal_contributions")
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.store.Acquires.Load())
	assert.Equal(t, int32(2), f.store.Fails.Load())
}

func TestCoordinator_MutualExclusion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	handler := &crontest.MockHandler{RunFunc: crontest.BlockingHandler(
		cron.Result{ProcessedCount: 1}, started, release,
	)}
	f.register(t, "daily_cleanup", handler.Handle)

	var (
		wg    sync.WaitGroup
		first cron.Result
		ferr  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, ferr = f.scheduler.Trigger(context.Background(), "daily_cleanup")
	}()
	<-started

	second, err := f.scheduler.Execute(context.Background(), "daily_cleanup", cron.TriggerScheduled)
	require.NoError(t, err)
	assert.True(t, second.Skipped())
	assert.Equal(t, 0, second.ProcessedCount)
	assert.Equal(t, 0, second.ErrorCount)

	close(release)
	wg.Wait()
	require.NoError(t, ferr)
	assert.False(t, first.Skipped())
	assert.Equal(t, 1, first.ProcessedCount)
	assert.Equal(t, 1, handler.CallCount())
	assert.Equal(t, int32(1), f.store.Completes.Load())
}

func TestCoordinator_BackToBackTriggers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	f.register(t, "daily_cleanup", crontest.BlockingHandler(cron.Result{ProcessedCount: 3}, started, release))

	results := make(chan cron.Result, 2)
	for range 2 {
		go func() {
			res, err := f.scheduler.Trigger(context.Background(), "daily_cleanup")
			if err != nil {
				t.Errorf("Trigger() error = %v", err)
			}
			results <- res
		}()
	}

	// One trigger enters the handler; the other is refused before it does.
	<-started
	refused := <-results
	close(release)
	admitted := <-results

	assert.True(t, refused.Skipped())
	assert.False(t, admitted.Skipped())
}

func TestCoordinator_UnknownJobTouchesNoStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.scheduler.Trigger(context.Background(), "not_a_real_job")
	assert.ErrorIs(t, err, cron.ErrUnknownJob)
	assert.Equal(t, "unknown job: not_a_real_job", err.Error())
	assert.Zero(t, f.store.Calls())
}

func TestCoordinator_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("database is locked")
	s, err := cron.NewScheduler(cron.Config{
		Store:  &crontest.FailingStore{Err: storeErr},
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	handler := &crontest.MockHandler{}
	require.NoError(t, s.Register(cron.Definition{
		Name: "budget_alerts", Schedule: "0 */6 * * *", Handler: handler.Handle,
	}))

	_, err = s.Trigger(context.Background(), "budget_alerts")
	assert.ErrorIs(t, err, storeErr)
	assert.Zero(t, handler.CallCount())
}

// encodingStore refuses results whose metadata cannot be JSON encoded, as
// the SQL stores do.
type encodingStore struct {
	execution.Store
	failErr error
}

func (s *encodingStore) MarkCompleted(ctx context.Context, id string, processed, errorCount int, errs []string, metadata map[string]any) error {
	if _, err := json.Marshal(metadata); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return s.Store.MarkCompleted(ctx, id, processed, errorCount, errs, metadata)
}

func (s *encodingStore) MarkFailed(ctx context.Context, id string, message string) error {
	if s.failErr != nil {
		return s.failErr
	}
	return s.Store.MarkFailed(ctx, id, message)
}

func TestCoordinator_UnrecordableResultReleasesLock(t *testing.T) {
	t.Parallel()

	store := &encodingStore{Store: execution.NewInMemoryStore(execution.WithLogger(quietLogger()))}
	s, err := cron.NewScheduler(cron.Config{Store: store, Logger: quietLogger()})
	require.NoError(t, err)

	handler := &crontest.MockHandler{RunFunc: func(context.Context) (cron.Result, error) {
		return cron.Result{ProcessedCount: 2, Metadata: map[string]any{"rate": math.NaN()}}, nil
	}}
	require.NoError(t, s.Register(cron.Definition{
		Name: "monthly_reports", Schedule: "0 8 1 * *", Handler: handler.Handle,
	}))

	res, err := s.Trigger(context.Background(), "monthly_reports")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "recording result: "), res.Errors[0])

	last, err := store.LastExecution(context.Background(), "monthly_reports")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, execution.StatusFailed, last.Status)
	assert.NotNil(t, last.CompletedAt)

	res, err = s.Trigger(context.Background(), "monthly_reports")
	require.NoError(t, err)
	assert.False(t, res.Skipped(), "job must not stay locked after an unrecordable result")
	assert.Equal(t, 2, handler.CallCount())
}

func TestCoordinator_UnrecordableResultAndFailedFallback(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("disk I/O error")
	store := &encodingStore{
		Store:   execution.NewInMemoryStore(execution.WithLogger(quietLogger())),
		failErr: storeErr,
	}
	s, err := cron.NewScheduler(cron.Config{Store: store, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, s.Register(cron.Definition{
		Name: "monthly_reports", Schedule: "0 8 1 * *",
		Handler: func(context.Context) (cron.Result, error) {
			return cron.Result{Metadata: map[string]any{"ch": make(chan int)}}, nil
		},
	}))

	_, err = s.Trigger(context.Background(), "monthly_reports")
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "encode metadata")
}

func TestCoordinator_HandlerContextOutlivesCaller(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var handlerErr error
	f.register(t, "monthly_reports", func(ctx context.Context) (cron.Result, error) {
		handlerErr = ctx.Err()
		return cron.Result{ProcessedCount: 1}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.scheduler.Trigger(ctx, "monthly_reports")
	require.NoError(t, err)
	assert.NoError(t, handlerErr)
	assert.Equal(t, 1, res.ProcessedCount)
}

func TestCoordinator_Metrics(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "daily_cleanup", func(context.Context) (cron.Result, error) {
		return cron.Result{ProcessedCount: 1}, nil
	})
	f.register(t, "budget_alerts", func(context.Context) (cron.Result, error) {
		return cron.Result{}, errors.New("boom")
	})

	_, _ = f.scheduler.Trigger(context.Background(), "daily_cleanup")
	_, _ = f.scheduler.Execute(context.Background(), "budget_alerts", cron.TriggerScheduled)

	expected := `
# HELP riddhi_job_executions_total Job runs by trigger and outcome
# TYPE riddhi_job_executions_total counter
riddhi_job_executions_total{job="budget_alerts",outcome="failed",trigger="scheduled"} 1
riddhi_job_executions_total{job="daily_cleanup",outcome="completed",trigger="manual"} 1
`
	err := testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "riddhi_job_executions_total")
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(f.registry, "riddhi_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCoordinator_Span(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "overdue_goals_check", func(context.Context) (cron.Result, error) {
		return cron.Result{ProcessedCount: 2}, nil
	})

	_, err := f.scheduler.Trigger(context.Background(), "overdue_goals_check")
	require.NoError(t, err)

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "cron.execute", ended[0].Name())

	attrs := map[attribute.Key]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "overdue_goals_check", attrs["job"])
	assert.Equal(t, "manual", attrs["trigger"])
	assert.Equal(t, "completed", attrs["outcome"])
	assert.NotEmpty(t, attrs["execution_id"])
}
