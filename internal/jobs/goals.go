package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/ledger"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

// GoalStore is the ledger access the goal jobs need.
type GoalStore interface {
	DueContributions(ctx context.Context, asOf time.Time) ([]ledger.Goal, error)
	ApplyContribution(ctx context.Context, goalID string, amount int64, next *time.Time, status ledger.GoalStatus) error
	OverdueGoals(ctx context.Context, asOf time.Time) ([]ledger.Goal, error)
	MarkGoalOverdue(ctx context.Context, goalID string) error
}

// GoalContributions adds each due automatic contribution to its goal,
// capped at the goal's target.
type GoalContributions struct {
	Store    GoalStore
	Notifier notify.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// Run implements cron.Handler.
func (j *GoalContributions) Run(ctx context.Context) (cron.Result, error) {
	now := j.Now()
	goals, err := j.Store.DueContributions(ctx, now)
	if err != nil {
		return cron.Result{}, fmt.Errorf("listing due contributions: %w", err)
	}

	var b batch
	var total int64
	completed := 0
	for _, g := range goals {
		amount, done, err := j.contribute(ctx, g, now)
		if err != nil {
			b.fail("goal", g.ID, err)
			continue
		}
		total += amount
		if done {
			completed++
		}
		b.ok()
	}
	b.set("contributed", total)
	b.set("completed", completed)
	return b.result(), nil
}

func (j *GoalContributions) contribute(ctx context.Context, g ledger.Goal, now time.Time) (int64, bool, error) {
	amount := min(g.AutoContribution, g.Remaining())
	reached := g.Current+amount >= g.Target

	status := ledger.GoalActive
	var next *time.Time
	if reached {
		status = ledger.GoalCompleted
	} else {
		from := now
		if g.NextContribution != nil {
			from = *g.NextContribution
		}
		n := ledger.NextOccurrence(from, g.ContributionFrequency, from.Day())
		next = &n
	}

	if err := j.Store.ApplyContribution(ctx, g.ID, amount, next, status); err != nil {
		return 0, false, fmt.Errorf("applying contribution: %w", err)
	}
	if !reached {
		return amount, false, nil
	}

	j.Logger.Info("jobs: goal reached", "goal", g.ID, "user", g.UserID)
	err := notifyUser(ctx, j.Notifier, now, notify.Notification{
		UserID:  g.UserID,
		Kind:    notify.KindGoalCompleted,
		Title:   "Goal reached",
		Message: fmt.Sprintf("You reached your goal %q.", g.Name),
		Data:    map[string]any{"goal_id": g.ID, "target": g.Target},
	})
	return amount, true, err
}

// OverdueGoals marks active goals whose deadline passed short of target.
// A goal is notified once: the status change removes it from later scans.
type OverdueGoals struct {
	Store    GoalStore
	Notifier notify.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// Run implements cron.Handler.
func (j *OverdueGoals) Run(ctx context.Context) (cron.Result, error) {
	now := j.Now()
	goals, err := j.Store.OverdueGoals(ctx, now)
	if err != nil {
		return cron.Result{}, fmt.Errorf("listing overdue goals: %w", err)
	}

	var b batch
	for _, g := range goals {
		if err := j.Store.MarkGoalOverdue(ctx, g.ID); err != nil {
			b.fail("goal", g.ID, err)
			continue
		}
		err := notifyUser(ctx, j.Notifier, now, notify.Notification{
			UserID:  g.UserID,
			Kind:    notify.KindGoalOverdue,
			Title:   "Goal deadline passed",
			Message: fmt.Sprintf("Your goal %q passed its deadline with %d still to go.", g.Name, g.Remaining()),
			Data:    map[string]any{"goal_id": g.ID, "remaining": g.Remaining()},
		})
		if err != nil {
			b.fail("goal", g.ID, err)
			continue
		}
		b.ok()
	}
	return b.result(), nil
}
