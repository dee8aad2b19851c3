package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

const defaultSweepInterval = time.Hour

// Config holds the PostgreSQL execution store configuration.
type Config struct {
	// DSN is a libpq-style connection string or URL. Required.
	DSN string `yaml:"dsn"`

	// MaxConns caps the pool size. Zero keeps the pgx default.
	MaxConns int32 `yaml:"max_conns"`

	// Migrate applies embedded migrations on provision. Defaults to true.
	Migrate *bool `yaml:"migrate"`

	StaleAfter    time.Duration `yaml:"stale_after"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func (c *Config) defaults() {
	if c.Migrate == nil {
		t := true
		c.Migrate = &t
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

func (c *Config) migrateEnabled() bool {
	return c.Migrate == nil || *c.Migrate
}

func (c *Config) validate() error {
	var errs []error
	if c.DSN == "" {
		errs = append(errs, errors.New("postgres: dsn is required"))
	}
	if c.MaxConns < 0 {
		errs = append(errs, fmt.Errorf("postgres: max_conns must be non-negative, got %d", c.MaxConns))
	}
	if c.Retention > 0 && c.Retention <= c.StaleAfter {
		errs = append(errs, fmt.Errorf("postgres: retention (%s) must exceed stale_after (%s)", c.Retention, c.StaleAfter))
	}
	return errors.Join(errs...)
}
