package cron

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownJob is returned for names that are not registered.
	ErrUnknownJob = errors.New("unknown job")

	// ErrInvalidSchedule is returned for cron expressions that do not parse.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

func unknownJob(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}
