// Package ledger holds the finance records the background jobs read and
// update. Amounts are integer minor units (cents, paise).
package ledger

import "time"

// Frequency is how often a recurring entry repeats.
type Frequency string

// Frequencies.
const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Biweekly  Frequency = "biweekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// TxType distinguishes money in from money out.
type TxType string

// Transaction types.
const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Transaction is a single booked movement of money.
type Transaction struct {
	ID          string
	UserID      string
	AccountID   string
	Type        TxType
	Amount      int64
	Category    string
	Description string
	Date        time.Time
	RecurringID string
}

// RecurringTransaction is a template that produces a Transaction on every
// occurrence.
type RecurringTransaction struct {
	ID          string
	UserID      string
	AccountID   string
	Type        TxType
	Amount      int64
	Category    string
	Description string
	Frequency   Frequency
	StartDate   time.Time
	NextDate    time.Time
	EndDate     *time.Time
	Active      bool
}

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

// Goal statuses.
const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalOverdue   GoalStatus = "overdue"
)

// Goal is a savings target, optionally funded by automatic contributions.
type Goal struct {
	ID                    string
	UserID                string
	Name                  string
	Target                int64
	Current               int64
	Deadline              *time.Time
	Status                GoalStatus
	AutoContribution      int64
	ContributionFrequency Frequency
	NextContribution      *time.Time
}

// Remaining returns how much is left to reach the target, never negative.
func (g Goal) Remaining() int64 {
	return max(g.Target-g.Current, 0)
}

// BudgetPeriod is the window a budget limit applies to.
type BudgetPeriod string

// Budget periods.
const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// DefaultAlertThreshold is the share of a budget limit that triggers a
// warning when a budget does not set its own.
const DefaultAlertThreshold = 0.8

// Budget caps spending in one category over a period.
type Budget struct {
	ID        string
	UserID    string
	Name      string
	Category  string
	Limit     int64
	Period    BudgetPeriod
	Threshold float64
}

// AlertThreshold returns the budget's warning ratio.
func (b Budget) AlertThreshold() float64 {
	if b.Threshold <= 0 || b.Threshold > 1 {
		return DefaultAlertThreshold
	}
	return b.Threshold
}

// CategoryTotal is spending summed by category.
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

// Summary aggregates a user's transactions over a date range.
type Summary struct {
	Income     int64
	Expenses   int64
	Categories []CategoryTotal
}
