package sqlite

import (
	"fmt"
	"time"
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "ledger.db"
)

// Config holds the ledger database configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/ledger.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// Timezone is the location dates are returned in. Defaults to UTC.
	Timezone string `yaml:"timezone"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sqlite: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
