package cron

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// parser accepts the classic five-field syntax: minute hour dom month dow.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseSchedule parses a five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, expr, err)
	}
	return sched, nil
}

// ValidateSchedule reports whether expr is a valid five-field expression.
func ValidateSchedule(expr string) error {
	_, err := ParseSchedule(expr)
	return err
}
