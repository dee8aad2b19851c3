package jobs

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/ledger"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

// topCategories is how many expense categories a report lists.
const topCategories = 5

// ReportStore is the ledger access MonthlyReports needs.
type ReportStore interface {
	ActiveUsers(ctx context.Context, from, to time.Time) ([]string, error)
	Summarize(ctx context.Context, userID string, from, to time.Time) (ledger.Summary, error)
}

// MonthlyReports sends every user with activity last month a summary of it.
type MonthlyReports struct {
	Store    ReportStore
	Notifier notify.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

// Report is the content of a monthly_report notification.
type Report struct {
	Month         string                 `json:"month"`
	Income        int64                  `json:"income"`
	Expenses      int64                  `json:"expenses"`
	Net           int64                  `json:"net"`
	SavingsRate   float64                `json:"savings_rate"`
	TopCategories []ledger.CategoryTotal `json:"top_categories"`
}

// BuildReport derives a Report from a month's summary.
func BuildReport(month time.Time, s ledger.Summary) Report {
	r := Report{
		Month:    month.Format("2006-01"),
		Income:   s.Income,
		Expenses: s.Expenses,
		Net:      s.Income - s.Expenses,
	}
	if s.Income > 0 {
		r.SavingsRate = float64(r.Net) / float64(s.Income)
	}
	cats := slices.Clone(s.Categories)
	slices.SortStableFunc(cats, func(a, b ledger.CategoryTotal) int {
		return cmp.Compare(b.Amount, a.Amount)
	})
	if len(cats) > topCategories {
		cats = cats[:topCategories]
	}
	r.TopCategories = cats
	return r
}

// Run implements cron.Handler.
func (j *MonthlyReports) Run(ctx context.Context) (cron.Result, error) {
	now := j.Now()
	from, to := ledger.PreviousMonth(now)

	users, err := j.Store.ActiveUsers(ctx, from, to)
	if err != nil {
		return cron.Result{}, fmt.Errorf("listing active users: %w", err)
	}

	var b batch
	for _, userID := range users {
		summary, err := j.Store.Summarize(ctx, userID, from, to)
		if err != nil {
			b.fail("user", userID, err)
			continue
		}
		report := BuildReport(from, summary)
		err = notifyUser(ctx, j.Notifier, now, notify.Notification{
			UserID:  userID,
			Kind:    notify.KindMonthlyReport,
			Title:   "Your " + from.Format("January 2006") + " summary",
			Message: fmt.Sprintf("Income %d, expenses %d, net %d.", report.Income, report.Expenses, report.Net),
			Data: map[string]any{
				"month":          report.Month,
				"income":         report.Income,
				"expenses":       report.Expenses,
				"net":            report.Net,
				"savings_rate":   report.SavingsRate,
				"top_categories": report.TopCategories,
			},
		})
		if err != nil {
			b.fail("user", userID, err)
			continue
		}
		b.ok()
	}
	b.set("month", from.Format("2006-01"))
	return b.result(), nil
}
