package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/jobs"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/ledger"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = errors.New("sqlite: not found")

// Store is the ledger the jobs read and update, and a notify.Notifier that
// persists notifications for the app to display.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

var (
	_ jobs.Ledger     = (*Store)(nil)
	_ notify.Notifier = (*Store)(nil)
)

// NewStore wraps a migrated database. Dates are returned in loc; nil means
// UTC.
func NewStore(db *sql.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc}
}

// ---------- recurring transactions ----------

const recurringColumns = `id, user_id, account_id, type, amount, category, description, frequency, start_date, next_date, end_date, active`

// DueRecurring implements jobs.RecurringStore.
func (s *Store) DueRecurring(ctx context.Context, asOf time.Time) ([]ledger.RecurringTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recurringColumns+` FROM recurring_transactions
		WHERE active = 1 AND next_date <= ?
		ORDER BY next_date, id`, formatTime(asOf))
	if err != nil {
		return nil, fmt.Errorf("sqlite: due recurring: %w", err)
	}
	defer rows.Close()

	var out []ledger.RecurringTransaction
	for rows.Next() {
		rt, err := s.scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan recurring: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// Recurring returns one recurring template.
func (s *Store) Recurring(ctx context.Context, id string) (ledger.RecurringTransaction, error) {
	rt, err := s.scanRecurring(s.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rt, fmt.Errorf("recurring %s: %w", id, ErrNotFound)
	}
	return rt, err
}

// AddRecurring inserts a recurring template, assigning an ID if empty.
func (s *Store) AddRecurring(ctx context.Context, rt ledger.RecurringTransaction) (string, error) {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions (`+recurringColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.UserID, rt.AccountID, string(rt.Type), rt.Amount, rt.Category, rt.Description,
		string(rt.Frequency), formatTime(rt.StartDate), formatTime(rt.NextDate), formatTimePtr(rt.EndDate), rt.Active)
	if err != nil {
		return "", fmt.Errorf("sqlite: add recurring: %w", err)
	}
	return rt.ID, nil
}

// AdvanceRecurring implements jobs.RecurringStore.
func (s *Store) AdvanceRecurring(ctx context.Context, id string, next time.Time, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_transactions SET next_date = ?, active = ? WHERE id = ?`,
		formatTime(next), active, id)
	if err != nil {
		return fmt.Errorf("sqlite: advance recurring: %w", err)
	}
	return expectRow(res, "recurring", id)
}

// CreateTransaction implements jobs.RecurringStore.
func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	var recurringID sql.NullString
	if tx.RecurringID != "" {
		recurringID = sql.NullString{String: tx.RecurringID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, account_id, type, amount, category, description, date, recurring_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.AccountID, string(tx.Type), tx.Amount, tx.Category, tx.Description,
		formatTime(tx.Date), recurringID)
	if err != nil {
		return fmt.Errorf("sqlite: create transaction: %w", err)
	}
	return nil
}

// Transactions lists a user's transactions, oldest first.
func (s *Store) Transactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, account_id, type, amount, category, description, date, COALESCE(recurring_id, '')
		FROM transactions WHERE user_id = ?
		ORDER BY date, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var (
			tx      ledger.Transaction
			typ     string
			dateStr string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.AccountID, &typ, &tx.Amount, &tx.Category,
			&tx.Description, &dateStr, &tx.RecurringID); err != nil {
			return nil, fmt.Errorf("sqlite: scan transaction: %w", err)
		}
		tx.Type = ledger.TxType(typ)
		if tx.Date, err = s.parseTime(dateStr); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *Store) scanRecurring(row scanner) (ledger.RecurringTransaction, error) {
	var (
		rt          ledger.RecurringTransaction
		typ, freq   string
		start, next string
		end         sql.NullString
		active      bool
	)
	if err := row.Scan(&rt.ID, &rt.UserID, &rt.AccountID, &typ, &rt.Amount, &rt.Category, &rt.Description,
		&freq, &start, &next, &end, &active); err != nil {
		return rt, err
	}
	rt.Type = ledger.TxType(typ)
	rt.Frequency = ledger.Frequency(freq)
	rt.Active = active

	var err error
	if rt.StartDate, err = s.parseTime(start); err != nil {
		return rt, err
	}
	if rt.NextDate, err = s.parseTime(next); err != nil {
		return rt, err
	}
	if rt.EndDate, err = s.parseTimePtr(end); err != nil {
		return rt, err
	}
	return rt, nil
}

// ---------- goals ----------

const goalColumns = `id, user_id, name, target, current, deadline, status, auto_contribution, contribution_frequency, next_contribution`

// AddGoal inserts a goal, assigning an ID if empty.
func (s *Store) AddGoal(ctx context.Context, g ledger.Goal) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = ledger.GoalActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Target, g.Current, formatTimePtr(g.Deadline), string(g.Status),
		g.AutoContribution, string(g.ContributionFrequency), formatTimePtr(g.NextContribution))
	if err != nil {
		return "", fmt.Errorf("sqlite: add goal: %w", err)
	}
	return g.ID, nil
}

// Goal returns one goal.
func (s *Store) Goal(ctx context.Context, id string) (ledger.Goal, error) {
	g, err := s.scanGoal(s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return g, fmt.Errorf("goal %s: %w", id, ErrNotFound)
	}
	return g, err
}

// DueContributions implements jobs.GoalStore.
func (s *Store) DueContributions(ctx context.Context, asOf time.Time) ([]ledger.Goal, error) {
	return s.queryGoals(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE status = 'active' AND auto_contribution > 0
		  AND next_contribution IS NOT NULL AND next_contribution <= ?
		ORDER BY next_contribution, id`, formatTime(asOf))
}

// OverdueGoals implements jobs.GoalStore.
func (s *Store) OverdueGoals(ctx context.Context, asOf time.Time) ([]ledger.Goal, error) {
	return s.queryGoals(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE status = 'active' AND deadline IS NOT NULL AND deadline < ? AND current < target
		ORDER BY deadline, id`, formatTime(asOf))
}

// ApplyContribution implements jobs.GoalStore.
func (s *Store) ApplyContribution(ctx context.Context, goalID string, amount int64, next *time.Time, status ledger.GoalStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE goals SET current = current + ?, next_contribution = ?, status = ?
		WHERE id = ?`, amount, formatTimePtr(next), string(status), goalID)
	if err != nil {
		return fmt.Errorf("sqlite: apply contribution: %w", err)
	}
	return expectRow(res, "goal", goalID)
}

// MarkGoalOverdue implements jobs.GoalStore.
func (s *Store) MarkGoalOverdue(ctx context.Context, goalID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE goals SET status = 'overdue' WHERE id = ?`, goalID)
	if err != nil {
		return fmt.Errorf("sqlite: mark overdue: %w", err)
	}
	return expectRow(res, "goal", goalID)
}

func (s *Store) queryGoals(ctx context.Context, query string, args ...any) ([]ledger.Goal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query goals: %w", err)
	}
	defer rows.Close()

	var out []ledger.Goal
	for rows.Next() {
		g, err := s.scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) scanGoal(row scanner) (ledger.Goal, error) {
	var (
		g              ledger.Goal
		status, freq   string
		deadline, next sql.NullString
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Target, &g.Current, &deadline, &status,
		&g.AutoContribution, &freq, &next); err != nil {
		return g, err
	}
	g.Status = ledger.GoalStatus(status)
	g.ContributionFrequency = ledger.Frequency(freq)

	var err error
	if g.Deadline, err = s.parseTimePtr(deadline); err != nil {
		return g, err
	}
	if g.NextContribution, err = s.parseTimePtr(next); err != nil {
		return g, err
	}
	return g, nil
}

// ---------- reports ----------

// ActiveUsers implements jobs.ReportStore.
func (s *Store) ActiveUsers(ctx context.Context, from, to time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM transactions
		WHERE date >= ? AND date < ?
		ORDER BY user_id`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("sqlite: active users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Summarize implements jobs.ReportStore. Categories cover expenses only.
func (s *Store) Summarize(ctx context.Context, userID string, from, to time.Time) (ledger.Summary, error) {
	var sum ledger.Summary
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0)
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, formatTime(from), formatTime(to)).Scan(&sum.Income, &sum.Expenses)
	if err != nil {
		return sum, fmt.Errorf("sqlite: summarize: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, SUM(amount) FROM transactions
		WHERE user_id = ? AND type = 'expense' AND date >= ? AND date < ?
		GROUP BY category
		ORDER BY category`,
		userID, formatTime(from), formatTime(to))
	if err != nil {
		return sum, fmt.Errorf("sqlite: category totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct ledger.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Amount); err != nil {
			return sum, fmt.Errorf("sqlite: scan category total: %w", err)
		}
		sum.Categories = append(sum.Categories, ct)
	}
	return sum, rows.Err()
}

// ---------- budgets ----------

// AddBudget inserts a budget, assigning an ID if empty.
func (s *Store) AddBudget(ctx context.Context, b ledger.Budget) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Period == "" {
		b.Period = ledger.PeriodMonthly
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, name, category, amount, period, threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, b.Category, b.Limit, string(b.Period), b.Threshold)
	if err != nil {
		return "", fmt.Errorf("sqlite: add budget: %w", err)
	}
	return b.ID, nil
}

// Budgets implements jobs.BudgetStore.
func (s *Store) Budgets(ctx context.Context) ([]ledger.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, category, amount, period, threshold
		FROM budgets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: budgets: %w", err)
	}
	defer rows.Close()

	var out []ledger.Budget
	for rows.Next() {
		var (
			b      ledger.Budget
			period string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Category, &b.Limit, &period, &b.Threshold); err != nil {
			return nil, fmt.Errorf("sqlite: scan budget: %w", err)
		}
		b.Period = ledger.BudgetPeriod(period)
		out = append(out, b)
	}
	return out, rows.Err()
}

// SpentInCategory implements jobs.BudgetStore.
func (s *Store) SpentInCategory(ctx context.Context, userID, category string, from, to time.Time) (int64, error) {
	var spent int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = ? AND category = ? AND type = 'expense' AND date >= ? AND date < ?`,
		userID, category, formatTime(from), formatTime(to)).Scan(&spent)
	if err != nil {
		return 0, fmt.Errorf("sqlite: spent in category: %w", err)
	}
	return spent, nil
}

// AlertSent implements jobs.BudgetStore.
func (s *Store) AlertSent(ctx context.Context, budgetID, period string, kind notify.Kind) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM budget_alerts WHERE budget_id = ? AND period = ? AND kind = ?`,
		budgetID, period, string(kind)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: alert sent: %w", err)
	}
	return n > 0, nil
}

// RecordAlert implements jobs.BudgetStore. Recording twice is a no-op.
func (s *Store) RecordAlert(ctx context.Context, budgetID, period string, kind notify.Kind, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO budget_alerts (budget_id, period, kind, sent_at)
		VALUES (?, ?, ?, ?)`, budgetID, period, string(kind), formatTime(at))
	if err != nil {
		return fmt.Errorf("sqlite: record alert: %w", err)
	}
	return nil
}

// ---------- notifications ----------

// Notify implements notify.Notifier by storing n.
func (s *Store) Notify(ctx context.Context, n notify.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	data := []byte("{}")
	if len(n.Data) > 0 {
		var err error
		if data, err = json.Marshal(n.Data); err != nil {
			return fmt.Errorf("sqlite: encode notification data: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, kind, title, message, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, string(n.Kind), n.Title, n.Message, string(data), formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: store notification: %w", err)
	}
	return nil
}

// Notifications returns a user's notifications, newest first.
func (s *Store) Notifications(ctx context.Context, userID string, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, title, message, data, created_at FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var (
			n              notify.Notification
			kind, data, ts string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &kind, &n.Title, &n.Message, &data, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan notification: %w", err)
		}
		n.Kind = notify.Kind(kind)
		if err := json.Unmarshal([]byte(data), &n.Data); err != nil {
			return nil, fmt.Errorf("sqlite: decode notification data: %w", err)
		}
		if len(n.Data) == 0 {
			n.Data = nil
		}
		if n.CreatedAt, err = s.parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ---------- helpers ----------

type scanner interface {
	Scan(dest ...any) error
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func (s *Store) parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", v, err)
	}
	return t.In(s.loc), nil
}

func (s *Store) parseTimePtr(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := s.parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
