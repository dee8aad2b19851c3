package ledger

import "time"

// NextOccurrence returns the occurrence after from. Month-based frequencies
// land on anchorDay, clamped to the last day of shorter months, so a series
// anchored on the 31st runs Jan 31, Feb 28, Mar 31.
func NextOccurrence(from time.Time, f Frequency, anchorDay int) time.Time {
	switch f {
	case Daily:
		return from.AddDate(0, 0, 1)
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Biweekly:
		return from.AddDate(0, 0, 14)
	case Monthly:
		return addMonths(from, 1, anchorDay)
	case Quarterly:
		return addMonths(from, 3, anchorDay)
	case Yearly:
		return addMonths(from, 12, anchorDay)
	}
	return from.AddDate(0, 1, 0)
}

func addMonths(from time.Time, n, anchorDay int) time.Time {
	if anchorDay <= 0 {
		anchorDay = from.Day()
	}
	y, m, _ := from.Date()
	first := time.Date(y, m, 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
	first = first.AddDate(0, n, 0)
	day := min(anchorDay, DaysIn(first.Year(), first.Month()))
	return first.AddDate(0, 0, day-1)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthBounds returns the first instant of t's month and of the next month.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// PreviousMonth returns the bounds of the calendar month before t's.
func PreviousMonth(t time.Time) (time.Time, time.Time) {
	start, _ := MonthBounds(t)
	return start.AddDate(0, -1, 0), start
}

// PeriodBounds returns the budget period containing t. Weeks start on
// Monday.
func PeriodBounds(t time.Time, p BudgetPeriod) (time.Time, time.Time) {
	y, m, d := t.Date()
	switch p {
	case PeriodWeekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7)
	case PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, t.Location())
		return start, start.AddDate(1, 0, 0)
	}
	return MonthBounds(t)
}
