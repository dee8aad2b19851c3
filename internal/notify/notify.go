// Package notify delivers user-facing notifications produced by jobs.
package notify

import (
	"context"
	"errors"
	"time"
)

// Kind classifies a notification.
type Kind string

// Notification kinds.
const (
	KindGoalCompleted  Kind = "goal_completed"
	KindGoalOverdue    Kind = "goal_overdue"
	KindMonthlyReport  Kind = "monthly_report"
	KindBudgetWarning  Kind = "budget_warning"
	KindBudgetExceeded Kind = "budget_exceeded"
)

// Notification is a message for one user.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Kind      Kind           `json:"kind"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification) error

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// Fanout delivers to every notifier in order and joins their errors.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, target := range f {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Notification) error { return nil })
