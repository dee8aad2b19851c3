package jobs

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/ledger"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

// fakeLedger is an in-memory Ledger for handler tests.
type fakeLedger struct {
	mu sync.Mutex

	recurring    map[string]*ledger.RecurringTransaction
	transactions []ledger.Transaction
	goals        map[string]*ledger.Goal
	budgets      []ledger.Budget
	alerts       map[string]bool
	users        []string
	summaries    map[string]ledger.Summary
	spent        map[string]int64

	failCreate  map[string]bool // recurring IDs whose transactions fail
	createLimit map[string]int  // recurring IDs that fail after this many creates
	failAdvance error
	failList   error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		recurring:  map[string]*ledger.RecurringTransaction{},
		goals:      map[string]*ledger.Goal{},
		alerts:     map[string]bool{},
		summaries:  map[string]ledger.Summary{},
		spent:      map[string]int64{},
		failCreate:  map[string]bool{},
		createLimit: map[string]int{},
	}
}

var _ Ledger = (*fakeLedger)(nil)

func (f *fakeLedger) DueRecurring(_ context.Context, asOf time.Time) ([]ledger.RecurringTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	var out []ledger.RecurringTransaction
	for _, rt := range f.recurring {
		if rt.Active && !rt.NextDate.After(asOf) {
			out = append(out, *rt)
		}
	}
	slices.SortFunc(out, func(a, b ledger.RecurringTransaction) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeLedger) CreateTransaction(_ context.Context, tx ledger.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate[tx.RecurringID] {
		return errors.New("insert failed")
	}
	if limit, ok := f.createLimit[tx.RecurringID]; ok {
		if limit == 0 {
			return errors.New("insert failed")
		}
		f.createLimit[tx.RecurringID] = limit - 1
	}
	f.transactions = append(f.transactions, tx)
	return nil
}

func (f *fakeLedger) AdvanceRecurring(_ context.Context, id string, next time.Time, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdvance != nil {
		return f.failAdvance
	}
	rt, ok := f.recurring[id]
	if !ok {
		return errors.New("not found")
	}
	rt.NextDate = next
	rt.Active = active
	return nil
}

func (f *fakeLedger) DueContributions(_ context.Context, asOf time.Time) ([]ledger.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	var out []ledger.Goal
	for _, g := range f.goals {
		if g.Status == ledger.GoalActive && g.AutoContribution > 0 && g.NextContribution != nil && !g.NextContribution.After(asOf) {
			out = append(out, *g)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Goal) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeLedger) ApplyContribution(_ context.Context, goalID string, amount int64, next *time.Time, status ledger.GoalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[goalID]
	if !ok {
		return errors.New("not found")
	}
	g.Current += amount
	g.NextContribution = next
	g.Status = status
	return nil
}

func (f *fakeLedger) OverdueGoals(_ context.Context, asOf time.Time) ([]ledger.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	var out []ledger.Goal
	for _, g := range f.goals {
		if g.Status == ledger.GoalActive && g.Deadline != nil && g.Deadline.Before(asOf) && g.Current < g.Target {
			out = append(out, *g)
		}
	}
	slices.SortFunc(out, func(a, b ledger.Goal) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeLedger) MarkGoalOverdue(_ context.Context, goalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[goalID]
	if !ok {
		return errors.New("not found")
	}
	g.Status = ledger.GoalOverdue
	return nil
}

func (f *fakeLedger) ActiveUsers(context.Context, time.Time, time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	return slices.Clone(f.users), nil
}

func (f *fakeLedger) Summarize(_ context.Context, userID string, _, _ time.Time) (ledger.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.summaries[userID]
	if !ok {
		return ledger.Summary{}, errors.New("no summary")
	}
	return s, nil
}

func (f *fakeLedger) Budgets(context.Context) ([]ledger.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	return slices.Clone(f.budgets), nil
}

func (f *fakeLedger) SpentInCategory(_ context.Context, userID, category string, _, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spent[userID+"/"+category], nil
}

func (f *fakeLedger) AlertSent(_ context.Context, budgetID, period string, kind notify.Kind) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts[budgetID+"|"+period+"|"+string(kind)], nil
}

func (f *fakeLedger) RecordAlert(_ context.Context, budgetID, period string, kind notify.Kind, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts[budgetID+"|"+period+"|"+string(kind)] = true
	return nil
}

// inbox records notifications.
type inbox struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (i *inbox) Notify(_ context.Context, n notify.Notification) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.err != nil {
		return i.err
	}
	i.sent = append(i.sent, n)
	return nil
}

func (i *inbox) kinds() []notify.Kind {
	i.mu.Lock()
	defer i.mu.Unlock()
	var out []notify.Kind
	for _, n := range i.sent {
		out = append(out, n.Kind)
	}
	return out
}

func fixedNow(t time.Time) func() time.Time { return func() time.Time { return t } }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }
