package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/ledger"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

var quiet = slog.New(slog.DiscardHandler)

func TestDefinitions(t *testing.T) {
	t.Parallel()

	defs := Definitions(Deps{Ledger: newFakeLedger()}, map[string]bool{NameBudgetAlerts: false})
	require.Len(t, defs, len(Names))

	reg := cron.NewRegistry(quiet)
	for _, d := range defs {
		require.NoError(t, reg.Register(d), d.Name)
		assert.NotEmpty(t, d.Description)
		assert.Equal(t, d.Name != NameBudgetAlerts, d.Enabled, d.Name)
	}
	assert.Equal(t, []string{
		NameBudgetAlerts, NameGoalContributions, NameMonthlyReports,
		NameOverdueGoalsCheck, NameRecurringTransactions,
	}, reg.Names())
}

func TestRecurringTransactions_CatchUpAndAdvance(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.recurring["rent"] = &ledger.RecurringTransaction{
		ID: "rent", UserID: "u1", Type: ledger.Expense, Amount: 120000, Category: "housing",
		Frequency: ledger.Monthly, StartDate: day(2025, 1, 31), NextDate: day(2025, 1, 31), Active: true,
	}
	fl.recurring["gym"] = &ledger.RecurringTransaction{
		ID: "gym", UserID: "u1", Type: ledger.Expense, Amount: 1500,
		Frequency: ledger.Weekly, StartDate: day(2025, 3, 1), NextDate: day(2025, 4, 1), Active: true,
	}

	j := &RecurringTransactions{Store: fl, Now: fixedNow(day(2025, 3, 31)), Logger: quiet}
	res, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.ProcessedCount)
	assert.Zero(t, res.ErrorCount)
	assert.Equal(t, 3, res.Metadata["created"])

	var dates []string
	for _, tx := range fl.transactions {
		dates = append(dates, tx.Date.Format(time.DateOnly))
		assert.Equal(t, "rent", tx.RecurringID)
		assert.NotEmpty(t, tx.ID)
	}
	assert.Equal(t, []string{"2025-01-31", "2025-02-28", "2025-03-31"}, dates)
	assert.Equal(t, day(2025, 4, 30), fl.recurring["rent"].NextDate)
	assert.True(t, fl.recurring["rent"].Active)
}

func TestRecurringTransactions_CatchUpIsBounded(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.recurring["coffee"] = &ledger.RecurringTransaction{
		ID: "coffee", Frequency: ledger.Daily, NextDate: day(2025, 1, 1), Active: true,
	}
	j := &RecurringTransactions{Store: fl, Now: fixedNow(day(2025, 6, 1)), Logger: quiet}
	_, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, fl.transactions, MaxCatchUp)
	assert.Equal(t, day(2025, 2, 1), fl.recurring["coffee"].NextDate)
}

func TestRecurringTransactions_DeactivatesPastEndDate(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.recurring["loan"] = &ledger.RecurringTransaction{
		ID: "loan", Frequency: ledger.Monthly, StartDate: day(2025, 1, 15),
		NextDate: day(2025, 2, 15), EndDate: ptr(day(2025, 3, 1)), Active: true,
	}
	j := &RecurringTransactions{Store: fl, Now: fixedNow(day(2025, 5, 1)), Logger: quiet}
	res, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, fl.transactions, 1)
	assert.False(t, fl.recurring["loan"].Active)
	assert.Equal(t, 1, res.Metadata["deactivated"])
}

func TestRecurringTransactions_PerTemplateFailure(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.recurring["a"] = &ledger.RecurringTransaction{ID: "a", Frequency: ledger.Monthly, NextDate: day(2025, 3, 1), Active: true}
	fl.recurring["b"] = &ledger.RecurringTransaction{ID: "b", Frequency: ledger.Monthly, NextDate: day(2025, 3, 1), Active: true}
	fl.recurring["c"] = &ledger.RecurringTransaction{ID: "c", Frequency: "fortnightly-ish", NextDate: day(2025, 3, 1), Active: true}
	fl.failCreate["a"] = true

	j := &RecurringTransactions{Store: fl, Now: fixedNow(day(2025, 3, 2)), Logger: quiet}
	res, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.ProcessedCount)
	assert.Equal(t, 2, res.ErrorCount)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "recurring a")
	assert.Contains(t, res.Errors[1], "unknown frequency")
}

func TestRecurringTransactions_PartialBookingAdvances(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.recurring["rent"] = &ledger.RecurringTransaction{
		ID: "rent", Frequency: ledger.Monthly, NextDate: day(2025, 1, 1), Active: true,
	}
	fl.createLimit["rent"] = 2

	j := &RecurringTransactions{Store: fl, Now: fixedNow(day(2025, 4, 2)), Logger: quiet}
	res, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.ErrorCount)
	assert.Len(t, fl.transactions, 2)
	assert.Equal(t, day(2025, 3, 1), fl.recurring["rent"].NextDate)
}

func TestRecurringTransactions_PartialBookingReportsAdvanceFailure(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.recurring["rent"] = &ledger.RecurringTransaction{
		ID: "rent", Frequency: ledger.Monthly, NextDate: day(2025, 1, 1), Active: true,
	}
	fl.createLimit["rent"] = 1
	fl.failAdvance = errors.New("database is locked")

	j := &RecurringTransactions{Store: fl, Now: fixedNow(day(2025, 4, 2)), Logger: quiet}
	res, err := j.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "creating transaction for 2025-02-01")
	assert.Contains(t, res.Errors[0], "advancing past booked occurrences: database is locked")
}

func TestRecurringTransactions_ListFailureFailsRun(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.failList = errors.New("ledger offline")
	j := &RecurringTransactions{Store: fl, Now: fixedNow(day(2025, 3, 2)), Logger: quiet}
	_, err := j.Run(context.Background())
	assert.ErrorContains(t, err, "ledger offline")
}

func TestGoalContributions(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.goals["car"] = &ledger.Goal{
		ID: "car", UserID: "u1", Name: "Car", Target: 10000, Current: 2000, Status: ledger.GoalActive,
		AutoContribution: 500, ContributionFrequency: ledger.Monthly, NextContribution: ptr(day(2025, 3, 1)),
	}
	fl.goals["trip"] = &ledger.Goal{
		ID: "trip", UserID: "u2", Name: "Trip", Target: 1000, Current: 900, Status: ledger.GoalActive,
		AutoContribution: 250, ContributionFrequency: ledger.Weekly, NextContribution: ptr(day(2025, 3, 1)),
	}
	fl.goals["later"] = &ledger.Goal{
		ID: "later", Target: 1000, Status: ledger.GoalActive,
		AutoContribution: 100, ContributionFrequency: ledger.Monthly, NextContribution: ptr(day(2025, 4, 1)),
	}
	box := &inbox{}

	j := &GoalContributions{Store: fl, Notifier: box, Now: fixedNow(day(2025, 3, 1)), Logger: quiet}
	res, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.ProcessedCount)
	assert.Equal(t, int64(600), res.Metadata["contributed"])
	assert.Equal(t, 1, res.Metadata["completed"])

	assert.Equal(t, int64(2500), fl.goals["car"].Current)
	assert.Equal(t, day(2025, 4, 1), *fl.goals["car"].NextContribution)

	assert.Equal(t, int64(1000), fl.goals["trip"].Current, "contribution is capped at target")
	assert.Equal(t, ledger.GoalCompleted, fl.goals["trip"].Status)
	assert.Equal(t, []notify.Kind{notify.KindGoalCompleted}, box.kinds())
	assert.Equal(t, int64(0), fl.goals["later"].Current)
}

func TestOverdueGoals_NotifiesOnce(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.goals["house"] = &ledger.Goal{
		ID: "house", UserID: "u1", Name: "House", Target: 5000, Current: 1000,
		Status: ledger.GoalActive, Deadline: ptr(day(2025, 1, 1)),
	}
	fl.goals["done"] = &ledger.Goal{
		ID: "done", Target: 5000, Current: 5000, Status: ledger.GoalActive, Deadline: ptr(day(2025, 1, 1)),
	}
	box := &inbox{}
	j := &OverdueGoals{Store: fl, Notifier: box, Now: fixedNow(day(2025, 2, 1)), Logger: quiet}

	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProcessedCount)
	assert.Equal(t, ledger.GoalOverdue, fl.goals["house"].Status)

	res, err = j.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.ProcessedCount)
	assert.Len(t, box.sent, 1)
	assert.Equal(t, int64(4000), box.sent[0].Data["remaining"])
}

func TestOverdueGoals_NotifyFailureIsPerEntity(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.goals["house"] = &ledger.Goal{
		ID: "house", Target: 5000, Status: ledger.GoalActive, Deadline: ptr(day(2025, 1, 1)),
	}
	j := &OverdueGoals{Store: fl, Notifier: &inbox{err: errors.New("smtp down")}, Now: fixedNow(day(2025, 2, 1)), Logger: quiet}

	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Contains(t, res.Errors[0], "smtp down")
}

func TestBuildReport(t *testing.T) {
	t.Parallel()

	r := BuildReport(day(2025, 2, 1), ledger.Summary{
		Income:   100000,
		Expenses: 75000,
		Categories: []ledger.CategoryTotal{
			{Category: "food", Amount: 20000},
			{Category: "rent", Amount: 40000},
			{Category: "fun", Amount: 5000},
			{Category: "travel", Amount: 4000},
			{Category: "gifts", Amount: 3000},
			{Category: "misc", Amount: 3000},
		},
	})

	assert.Equal(t, "2025-02", r.Month)
	assert.Equal(t, int64(25000), r.Net)
	assert.InDelta(t, 0.25, r.SavingsRate, 1e-9)
	require.Len(t, r.TopCategories, 5)
	assert.Equal(t, "rent", r.TopCategories[0].Category)
	assert.Equal(t, "gifts", r.TopCategories[4].Category)

	zero := BuildReport(day(2025, 2, 1), ledger.Summary{Expenses: 10})
	assert.Zero(t, zero.SavingsRate)
}

func TestMonthlyReports(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.users = []string{"u1", "u2"}
	fl.summaries["u1"] = ledger.Summary{Income: 5000, Expenses: 4000}
	box := &inbox{}

	j := &MonthlyReports{Store: fl, Notifier: box, Now: fixedNow(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)), Logger: quiet}
	res, err := j.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.ProcessedCount)
	assert.Equal(t, 1, res.ErrorCount)
	assert.Equal(t, "2025-02", res.Metadata["month"])
	require.Len(t, box.sent, 1)
	assert.Equal(t, notify.KindMonthlyReport, box.sent[0].Kind)
	assert.Equal(t, "u1", box.sent[0].UserID)
	assert.Equal(t, int64(1000), box.sent[0].Data["net"])
	assert.NotEmpty(t, box.sent[0].ID)
}

func TestAlertLevel(t *testing.T) {
	t.Parallel()

	b := ledger.Budget{Limit: 1000}
	tests := []struct {
		spent int64
		want  notify.Kind
	}{
		{0, ""},
		{799, ""},
		{800, notify.KindBudgetWarning},
		{999, notify.KindBudgetWarning},
		{1000, notify.KindBudgetExceeded},
		{5000, notify.KindBudgetExceeded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlertLevel(b, tt.spent), "spent=%d", tt.spent)
	}
	assert.Equal(t, notify.Kind(""), AlertLevel(ledger.Budget{}, 10))
}

func TestBudgetAlerts_OncePerPeriodAndLevel(t *testing.T) {
	t.Parallel()

	fl := newFakeLedger()
	fl.budgets = []ledger.Budget{
		{ID: "b1", UserID: "u1", Name: "Groceries", Category: "food", Limit: 1000, Period: ledger.PeriodMonthly},
		{ID: "b2", UserID: "u1", Name: "Fun", Category: "fun", Limit: 1000, Period: ledger.PeriodMonthly},
	}
	fl.spent["u1/food"] = 850
	fl.spent["u1/fun"] = 100
	box := &inbox{}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	j := &BudgetAlerts{Store: fl, Notifier: box, Now: fixedNow(now), Logger: quiet}

	res, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.ProcessedCount)
	assert.Equal(t, 1, res.Metadata["alerts_sent"])

	// Same level, same period: no repeat.
	_, err = j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []notify.Kind{notify.KindBudgetWarning}, box.kinds())

	// Crossing the limit is a new level.
	fl.spent["u1/food"] = 1200
	_, err = j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []notify.Kind{notify.KindBudgetWarning, notify.KindBudgetExceeded}, box.kinds())
	assert.Equal(t, "2025-03-01", box.sent[1].Data["period"])
}
