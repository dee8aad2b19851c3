package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/ledger"
)

// MaxCatchUp bounds how many missed occurrences one template may produce in
// a single run.
const MaxCatchUp = 31

// RecurringStore is the ledger access RecurringTransactions needs.
type RecurringStore interface {
	DueRecurring(ctx context.Context, asOf time.Time) ([]ledger.RecurringTransaction, error)
	CreateTransaction(ctx context.Context, tx ledger.Transaction) error
	AdvanceRecurring(ctx context.Context, id string, next time.Time, active bool) error
}

// RecurringTransactions books every due occurrence of active recurring
// templates and moves each template to its next date.
type RecurringTransactions struct {
	Store  RecurringStore
	Now    func() time.Time
	Logger *slog.Logger
}

// Run implements cron.Handler.
func (j *RecurringTransactions) Run(ctx context.Context) (cron.Result, error) {
	now := j.Now()
	due, err := j.Store.DueRecurring(ctx, now)
	if err != nil {
		return cron.Result{}, fmt.Errorf("listing due recurring transactions: %w", err)
	}

	var b batch
	created, deactivated := 0, 0
	for _, rt := range due {
		n, active, err := j.apply(ctx, rt, now)
		created += n
		if err != nil {
			b.fail("recurring", rt.ID, err)
			continue
		}
		if !active {
			deactivated++
		}
		b.ok()
	}

	b.set("created", created)
	b.set("deactivated", deactivated)
	if created > 0 {
		j.Logger.Info("jobs: recurring transactions created", "count", created, "templates", b.processed)
	}
	return b.result(), nil
}

// apply books the occurrences of rt up to now and advances it. It returns
// how many transactions were created and whether the template stays active.
func (j *RecurringTransactions) apply(ctx context.Context, rt ledger.RecurringTransaction, now time.Time) (int, bool, error) {
	if !rt.Frequency.Valid() {
		return 0, rt.Active, fmt.Errorf("unknown frequency %q", rt.Frequency)
	}

	anchor := rt.StartDate.Day()
	if rt.StartDate.IsZero() {
		anchor = rt.NextDate.Day()
	}

	next := rt.NextDate
	created := 0
	for !next.After(now) && created < MaxCatchUp {
		if rt.EndDate != nil && next.After(*rt.EndDate) {
			break
		}
		tx := ledger.Transaction{
			ID:          uuid.NewString(),
			UserID:      rt.UserID,
			AccountID:   rt.AccountID,
			Type:        rt.Type,
			Amount:      rt.Amount,
			Category:    rt.Category,
			Description: rt.Description,
			Date:        next,
			RecurringID: rt.ID,
		}
		if err := j.Store.CreateTransaction(ctx, tx); err != nil {
			err = fmt.Errorf("creating transaction for %s: %w", next.Format(time.DateOnly), err)
			// Advance past what was booked so a retry does not duplicate it.
			if created > 0 {
				if aerr := j.Store.AdvanceRecurring(ctx, rt.ID, next, true); aerr != nil {
					err = errors.Join(err, fmt.Errorf("advancing past booked occurrences: %w", aerr))
				}
			}
			return created, true, err
		}
		created++
		next = ledger.NextOccurrence(next, rt.Frequency, anchor)
	}

	active := rt.EndDate == nil || !next.After(*rt.EndDate)
	if err := j.Store.AdvanceRecurring(ctx, rt.ID, next, active); err != nil {
		return created, active, fmt.Errorf("advancing: %w", err)
	}
	return created, active, nil
}
