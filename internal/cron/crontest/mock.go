// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// MockHandler is a configurable cron.Handler that counts its calls.
type MockHandler struct {
	RunFunc func(ctx context.Context) (cron.Result, error)

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

// Handle implements cron.Handler.
func (m *MockHandler) Handle(ctx context.Context) (cron.Result, error) {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return cron.Result{}, nil
}

// CallCount returns the number of times Handle was called.
func (m *MockHandler) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastCall returns the time of the last Handle call.
func (m *MockHandler) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// BlockingHandler returns a handler that signals on started and then waits
// for release before returning res.
func BlockingHandler(res cron.Result, started chan<- struct{}, release <-chan struct{}) cron.Handler {
	return func(context.Context) (cron.Result, error) {
		started <- struct{}{}
		<-release
		return res, nil
	}
}

// RecordingStore wraps an execution.Store and counts every call.
type RecordingStore struct {
	execution.Store

	Acquires  atomic.Int32
	Completes atomic.Int32
	Fails     atomic.Int32
	Reads     atomic.Int32
}

// NewRecordingStore wraps inner.
func NewRecordingStore(inner execution.Store) *RecordingStore {
	return &RecordingStore{Store: inner}
}

// AcquireLock implements execution.Store.
func (s *RecordingStore) AcquireLock(ctx context.Context, jobName string) (*execution.Execution, error) {
	s.Acquires.Add(1)
	return s.Store.AcquireLock(ctx, jobName)
}

// MarkCompleted implements execution.Store.
func (s *RecordingStore) MarkCompleted(ctx context.Context, id string, processed, errorCount int, errs []string, metadata map[string]any) error {
	s.Completes.Add(1)
	return s.Store.MarkCompleted(ctx, id, processed, errorCount, errs, metadata)
}

// MarkFailed implements execution.Store.
func (s *RecordingStore) MarkFailed(ctx context.Context, id string, message string) error {
	s.Fails.Add(1)
	return s.Store.MarkFailed(ctx, id, message)
}

// LastExecution implements execution.Store.
func (s *RecordingStore) LastExecution(ctx context.Context, jobName string) (*execution.Execution, error) {
	s.Reads.Add(1)
	return s.Store.LastExecution(ctx, jobName)
}

// RecentExecutions implements execution.Store.
func (s *RecordingStore) RecentExecutions(ctx context.Context, jobName string, limit int) ([]execution.Execution, error) {
	s.Reads.Add(1)
	return s.Store.RecentExecutions(ctx, jobName, limit)
}

// Calls returns the total number of store calls observed.
func (s *RecordingStore) Calls() int {
	return int(s.Acquires.Load() + s.Completes.Load() + s.Fails.Load() + s.Reads.Load())
}

// FailingStore is an execution.Store whose every call returns Err.
type FailingStore struct {
	Err error
}

// AcquireLock implements execution.Store.
func (s *FailingStore) AcquireLock(context.Context, string) (*execution.Execution, error) {
	return nil, s.Err
}

// MarkCompleted implements execution.Store.
func (s *FailingStore) MarkCompleted(context.Context, string, int, int, []string, map[string]any) error {
	return s.Err
}

// MarkFailed implements execution.Store.
func (s *FailingStore) MarkFailed(context.Context, string, string) error {
	return s.Err
}

// LastExecution implements execution.Store.
func (s *FailingStore) LastExecution(context.Context, string) (*execution.Execution, error) {
	return nil, s.Err
}

// RecentExecutions implements execution.Store.
func (s *FailingStore) RecentExecutions(context.Context, string, int) ([]execution.Execution, error) {
	return nil, s.Err
}

// Purge implements execution.Store.
func (s *FailingStore) Purge(context.Context, time.Time) (int, error) {
	return 0, s.Err
}
