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

// BudgetStore is the ledger access BudgetAlerts needs.
type BudgetStore interface {
	Budgets(ctx context.Context) ([]ledger.Budget, error)
	SpentInCategory(ctx context.Context, userID, category string, from, to time.Time) (int64, error)
	AlertSent(ctx context.Context, budgetID, period string, kind notify.Kind) (bool, error)
	RecordAlert(ctx context.Context, budgetID, period string, kind notify.Kind, at time.Time) error
}

// BudgetAlerts warns users whose spending in the current period crosses
// a budget's threshold or limit. Each level is sent at most once per period.
type BudgetAlerts struct {
	Store    BudgetStore
	Notifier notify.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// AlertLevel returns the notification kind for spent against b, or "" when
// spending is below the threshold.
func AlertLevel(b ledger.Budget, spent int64) notify.Kind {
	if b.Limit <= 0 {
		return ""
	}
	switch {
	case spent >= b.Limit:
		return notify.KindBudgetExceeded
	case float64(spent) >= b.AlertThreshold()*float64(b.Limit):
		return notify.KindBudgetWarning
	}
	return ""
}

// Run implements cron.Handler.
func (j *BudgetAlerts) Run(ctx context.Context) (cron.Result, error) {
	now := j.Now()
	budgets, err := j.Store.Budgets(ctx)
	if err != nil {
		return cron.Result{}, fmt.Errorf("listing budgets: %w", err)
	}

	var b batch
	sent := 0
	for _, bud := range budgets {
		alerted, err := j.check(ctx, bud, now)
		if err != nil {
			b.fail("budget", bud.ID, err)
			continue
		}
		if alerted {
			sent++
		}
		b.ok()
	}
	b.set("alerts_sent", sent)
	return b.result(), nil
}

func (j *BudgetAlerts) check(ctx context.Context, bud ledger.Budget, now time.Time) (bool, error) {
	from, to := ledger.PeriodBounds(now, bud.Period)
	spent, err := j.Store.SpentInCategory(ctx, bud.UserID, bud.Category, from, to)
	if err != nil {
		return false, fmt.Errorf("summing spend: %w", err)
	}

	kind := AlertLevel(bud, spent)
	if kind == "" {
		return false, nil
	}
	period := from.Format(time.DateOnly)
	already, err := j.Store.AlertSent(ctx, bud.ID, period, kind)
	if err != nil {
		return false, fmt.Errorf("checking alert history: %w", err)
	}
	if already {
		return false, nil
	}

	pct := int(float64(spent) / float64(bud.Limit) * 100)
	title := fmt.Sprintf("%s budget at %d%%", bud.Name, pct)
	if kind == notify.KindBudgetExceeded {
		title = fmt.Sprintf("%s budget exceeded", bud.Name)
	}
	err = notifyUser(ctx, j.Notifier, now, notify.Notification{
		UserID:  bud.UserID,
		Kind:    kind,
		Title:   title,
		Message: fmt.Sprintf("You have spent %d of %d on %s this period.", spent, bud.Limit, bud.Category),
		Data: map[string]any{
			"budget_id": bud.ID,
			"period":    period,
			"spent":     spent,
			"limit":     bud.Limit,
		},
	})
	if err != nil {
		return false, err
	}
	if err := j.Store.RecordAlert(ctx, bud.ID, period, kind, now); err != nil {
		return true, fmt.Errorf("recording alert: %w", err)
	}
	j.Logger.Info("jobs: budget alert sent", "budget", bud.ID, "kind", kind)
	return true, nil
}
