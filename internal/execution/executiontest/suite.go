package executiontest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// Factory builds a fresh, empty store for one subtest.
type Factory func(t *testing.T, opts ...execution.Option) execution.Store

// epoch is the fake clock origin used by every suite case.
var epoch = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

// RunStoreSuite exercises the behaviour every execution.Store must share.
func RunStoreSuite(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("AcquireInsertsRunningRow", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		exec, err := s.AcquireLock(ctx, "daily_cleanup")
		require.NoError(t, err)
		require.NotNil(t, exec)
		assert.NotEmpty(t, exec.ID)
		assert.Equal(t, "daily_cleanup", exec.JobName)
		assert.Equal(t, execution.StatusRunning, exec.Status)
		assert.Nil(t, exec.CompletedAt)
		assert.True(t, exec.StartedAt.Equal(epoch), "started_at = %v", exec.StartedAt)
	})

	t.Run("ContentionReturnsNil", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		first, err := s.AcquireLock(ctx, "budget_alerts")
		require.NoError(t, err)
		require.NotNil(t, first)

		clock.Advance(time.Minute)
		second, err := s.AcquireLock(ctx, "budget_alerts")
		require.NoError(t, err)
		assert.Nil(t, second)

		// Other job names are independent.
		other, err := s.AcquireLock(ctx, "monthly_reports")
		require.NoError(t, err)
		assert.NotNil(t, other)
	})

	t.Run("ReleaseAllowsNextAcquire", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		first, err := s.AcquireLock(ctx, "goal_contributions")
		require.NoError(t, err)
		require.NotNil(t, first)
		clock.Advance(time.Second)
		require.NoError(t, s.MarkCompleted(ctx, first.ID, 3, 0, nil, nil))

		clock.Advance(time.Second)
		second, err := s.AcquireLock(ctx, "goal_contributions")
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("StaleLockIsReclaimed", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		stuck, err := s.AcquireLock(ctx, "daily_cleanup")
		require.NoError(t, err)
		require.NotNil(t, stuck)

		clock.Advance(31 * time.Minute)
		fresh, err := s.AcquireLock(ctx, "daily_cleanup")
		require.NoError(t, err)
		require.NotNil(t, fresh)
		assert.NotEqual(t, stuck.ID, fresh.ID)

		last, err := s.LastExecution(ctx, "daily_cleanup")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, stuck.ID, last.ID)
		assert.Equal(t, execution.StatusFailed, last.Status)
		require.NotNil(t, last.CompletedAt)
		assert.True(t, last.CompletedAt.Equal(clock.Now()))
		require.NotEmpty(t, last.Errors)
		assert.True(t, strings.HasPrefix(last.Errors[0], "stale lock"), "errors = %v", last.Errors)
	})

	t.Run("LockWithinStaleWindowIsKept", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		_, err := s.AcquireLock(ctx, "daily_cleanup")
		require.NoError(t, err)

		clock.Advance(29 * time.Minute)
		again, err := s.AcquireLock(ctx, "daily_cleanup")
		require.NoError(t, err)
		assert.Nil(t, again)
	})

	t.Run("CustomStaleWindow", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now), execution.WithStaleAfter(5*time.Minute))
		ctx := context.Background()

		_, err := s.AcquireLock(ctx, "budget_alerts")
		require.NoError(t, err)

		clock.Advance(6 * time.Minute)
		again, err := s.AcquireLock(ctx, "budget_alerts")
		require.NoError(t, err)
		assert.NotNil(t, again)
	})

	t.Run("MarkCompletedRecordsCounters", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		exec, err := s.AcquireLock(ctx, "recurring_transactions")
		require.NoError(t, err)
		require.NotNil(t, exec)

		clock.Advance(2 * time.Second)
		meta := map[string]any{"created": float64(4)}
		require.NoError(t, s.MarkCompleted(ctx, exec.ID, 5, 1, []string{"template 7: bad amount"}, meta))

		last, err := s.LastExecution(ctx, "recurring_transactions")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, execution.StatusCompleted, last.Status)
		assert.Equal(t, 5, last.ProcessedCount)
		assert.Equal(t, 1, last.ErrorCount)
		assert.Equal(t, []string{"template 7: bad amount"}, last.Errors)
		assert.Equal(t, meta, last.Metadata)
		require.NotNil(t, last.CompletedAt)
		assert.Equal(t, 2*time.Second, last.Duration())
	})

	t.Run("MarkFailedRecordsMessage", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		exec, err := s.AcquireLock(ctx, "monthly_reports")
		require.NoError(t, err)
		require.NotNil(t, exec)

		require.NoError(t, s.MarkFailed(ctx, exec.ID, "database unavailable"))

		last, err := s.LastExecution(ctx, "monthly_reports")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, execution.StatusFailed, last.Status)
		assert.Equal(t, []string{"database unavailable"}, last.Errors)
		assert.Equal(t, 1, last.ErrorCount)
	})

	t.Run("SingleTerminalTransition", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		exec, err := s.AcquireLock(ctx, "overdue_goals_check")
		require.NoError(t, err)
		require.NotNil(t, exec)
		require.NoError(t, s.MarkCompleted(ctx, exec.ID, 1, 0, nil, nil))

		err = s.MarkFailed(ctx, exec.ID, "late failure")
		assert.True(t, errors.Is(err, execution.ErrAlreadyFinished), "err = %v", err)
		err = s.MarkCompleted(ctx, exec.ID, 9, 0, nil, nil)
		assert.True(t, errors.Is(err, execution.ErrAlreadyFinished), "err = %v", err)

		last, err := s.LastExecution(ctx, "overdue_goals_check")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, execution.StatusCompleted, last.Status)
		assert.Equal(t, 1, last.ProcessedCount)
	})

	t.Run("MarkUnknownID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.MarkCompleted(ctx, "no-such-id", 0, 0, nil, nil)
		assert.True(t, errors.Is(err, execution.ErrNotFound), "err = %v", err)
		err = s.MarkFailed(ctx, "no-such-id", "boom")
		assert.True(t, errors.Is(err, execution.ErrNotFound), "err = %v", err)
	})

	t.Run("LastExecutionIgnoresRunning", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		none, err := s.LastExecution(ctx, "budget_alerts")
		require.NoError(t, err)
		assert.Nil(t, none)

		done, err := s.AcquireLock(ctx, "budget_alerts")
		require.NoError(t, err)
		require.NoError(t, s.MarkCompleted(ctx, done.ID, 2, 0, nil, nil))

		clock.Advance(time.Hour)
		running, err := s.AcquireLock(ctx, "budget_alerts")
		require.NoError(t, err)
		require.NotNil(t, running)

		last, err := s.LastExecution(ctx, "budget_alerts")
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.Equal(t, done.ID, last.ID)
	})

	t.Run("RecentExecutionsNewestFirst", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		var ids []string
		for range 5 {
			exec, err := s.AcquireLock(ctx, "daily_cleanup")
			require.NoError(t, err)
			require.NotNil(t, exec)
			require.NoError(t, s.MarkCompleted(ctx, exec.ID, 1, 0, nil, nil))
			ids = append(ids, exec.ID)
			clock.Advance(time.Minute)
		}
		running, err := s.AcquireLock(ctx, "daily_cleanup")
		require.NoError(t, err)
		require.NotNil(t, running)

		got, err := s.RecentExecutions(ctx, "daily_cleanup", 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, running.ID, got[0].ID)
		assert.Equal(t, execution.StatusRunning, got[0].Status)
		assert.Equal(t, ids[4], got[1].ID)
		assert.Equal(t, ids[3], got[2].ID)

		all, err := s.RecentExecutions(ctx, "daily_cleanup", 0)
		require.NoError(t, err)
		assert.Len(t, all, 6)

		empty, err := s.RecentExecutions(ctx, "never_ran", 10)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("PurgeRemovesOldRows", func(t *testing.T) {
		clock := NewClock(epoch)
		s := newStore(t, execution.WithClock(clock.Now))
		ctx := context.Background()

		old, err := s.AcquireLock(ctx, "monthly_reports")
		require.NoError(t, err)
		require.NoError(t, s.MarkCompleted(ctx, old.ID, 1, 0, nil, nil))

		clock.Advance(91 * 24 * time.Hour)
		recent, err := s.AcquireLock(ctx, "monthly_reports")
		require.NoError(t, err)
		require.NoError(t, s.MarkCompleted(ctx, recent.ID, 1, 0, nil, nil))

		n, err := s.Purge(ctx, clock.Now().Add(-execution.DefaultRetention))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		rows, err := s.RecentExecutions(ctx, "monthly_reports", 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, recent.ID, rows[0].ID)
	})

	t.Run("ConcurrentAcquireYieldsOneWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		const workers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
			errs    []error
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				exec, err := s.AcquireLock(ctx, "goal_contributions")
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				if exec != nil {
					winners++
				}
			}()
		}
		wg.Wait()

		assert.Empty(t, errs)
		assert.Equal(t, 1, winners)
	})
}
