// Package jobs implements the finance tracker's scheduled jobs. Each job
// works through a narrow store interface and reports per-entity failures in
// its result instead of aborting the batch.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

// Job names.
const (
	NameRecurringTransactions = "recurring_transactions"
	NameGoalContributions     = "goal_contributions"
	NameMonthlyReports        = "monthly_reports"
	NameBudgetAlerts          = "budget_alerts"
	NameOverdueGoalsCheck     = "overdue_goals_check"
)

// Names lists every job this package provides.
var Names = []string{
	NameRecurringTransactions,
	NameGoalContributions,
	NameMonthlyReports,
	NameBudgetAlerts,
	NameOverdueGoalsCheck,
}

// Ledger is everything the jobs need from the finance store.
type Ledger interface {
	RecurringStore
	GoalStore
	ReportStore
	BudgetStore
}

// Deps are shared by all jobs.
type Deps struct {
	Ledger   Ledger
	Notifier notify.Notifier
	Logger   *slog.Logger

	// Now defaults to time.Now. Its location decides calendar boundaries.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = notify.Discard
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Definitions returns the job catalog bound to deps. The enabled map
// overrides the default of enabled for any listed name.
func Definitions(deps Deps, enabled map[string]bool) []cron.Definition {
	deps = deps.withDefaults()

	defs := []cron.Definition{
		{
			Name:        NameRecurringTransactions,
			Schedule:    "0 0 * * *",
			Description: "Create transactions for recurring templates that are due",
			Handler:     (&RecurringTransactions{Store: deps.Ledger, Now: deps.Now, Logger: deps.Logger}).Run,
		},
		{
			Name:        NameGoalContributions,
			Schedule:    "0 1 * * *",
			Description: "Apply automatic contributions to savings goals",
			Handler:     (&GoalContributions{Store: deps.Ledger, Notifier: deps.Notifier, Now: deps.Now, Logger: deps.Logger}).Run,
		},
		{
			Name:        NameMonthlyReports,
			Schedule:    "0 8 1 * *",
			Description: "Send each user a summary of the previous month",
			Handler:     (&MonthlyReports{Store: deps.Ledger, Notifier: deps.Notifier, Now: deps.Now, Logger: deps.Logger}).Run,
		},
		{
			Name:        NameBudgetAlerts,
			Schedule:    "0 */6 * * *",
			Description: "Warn users whose spending approaches or exceeds a budget",
			Handler:     (&BudgetAlerts{Store: deps.Ledger, Notifier: deps.Notifier, Now: deps.Now, Logger: deps.Logger}).Run,
		},
		{
			Name:        NameOverdueGoalsCheck,
			Schedule:    "0 9 * * *",
			Description: "Flag goals that missed their deadline",
			Handler:     (&OverdueGoals{Store: deps.Ledger, Notifier: deps.Notifier, Now: deps.Now, Logger: deps.Logger}).Run,
		},
	}

	for i := range defs {
		defs[i].Enabled = true
		if v, ok := enabled[defs[i].Name]; ok {
			defs[i].Enabled = v
		}
	}
	return defs
}

// batch accumulates per-entity outcomes into a cron.Result.
type batch struct {
	processed int
	errs      []string
	meta      map[string]any
}

func (b *batch) ok() { b.processed++ }

func (b *batch) fail(entity, id string, err error) {
	b.errs = append(b.errs, fmt.Sprintf("%s %s: %v", entity, id, err))
}

func (b *batch) set(key string, v any) {
	if b.meta == nil {
		b.meta = make(map[string]any)
	}
	b.meta[key] = v
}

func (b *batch) result() cron.Result {
	return cron.Result{
		ProcessedCount: b.processed,
		ErrorCount:     len(b.errs),
		Errors:         b.errs,
		Metadata:       b.meta,
	}
}

// notifyUser sends n, filling in defaults.
func notifyUser(ctx context.Context, to notify.Notifier, now time.Time, n notify.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if err := to.Notify(ctx, n); err != nil {
		return fmt.Errorf("notifying: %w", err)
	}
	return nil
}
