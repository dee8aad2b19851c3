package sqlite

import (
	"fmt"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

const (
	defaultBusyTimeout   = 5000
	defaultDBFile        = "executions.db"
	defaultSweepInterval = time.Hour
)

// Config holds the SQLite execution store configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/executions.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// StaleAfter is how long a running row holds its job's lock.
	StaleAfter time.Duration `yaml:"stale_after"`

	// Retention is how long rows are kept. Defaults to 90 days.
	Retention time.Duration `yaml:"retention"`

	// SweepInterval is how often expired rows are deleted. Defaults to 1h.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = execution.DefaultStaleAfter
	}
	if c.Retention == 0 {
		c.Retention = execution.DefaultRetention
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = defaultSweepInterval
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.StaleAfter < 0 || c.Retention < 0 || c.SweepInterval < 0 {
		return fmt.Errorf("sqlite: durations must be non-negative")
	}
	if c.Retention > 0 && c.Retention <= c.StaleAfter {
		return fmt.Errorf("sqlite: retention (%s) must exceed stale_after (%s)", c.Retention, c.StaleAfter)
	}
	return nil
}
