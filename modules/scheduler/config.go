package scheduler

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/jobs"
)

// Config holds the scheduler.cron module configuration.
type Config struct {
	// Autostart starts the timers once every module is provisioned.
	// Defaults to true.
	Autostart *bool `yaml:"autostart"`

	// Timezone schedules fire in and calendar boundaries are computed in.
	Timezone string `yaml:"timezone"`

	// Jobs overrides per-job settings. Only enabled is configurable.
	Jobs map[string]JobConfig `yaml:"jobs"`

	Notify NotifyConfig `yaml:"notify"`
}

// JobConfig is the per-job override.
type JobConfig struct {
	Enabled *bool `yaml:"enabled"`
}

// NotifyConfig configures the outbound notification webhook.
type NotifyConfig struct {
	WebhookURL    string        `yaml:"webhook_url"`
	WebhookSecret string        `yaml:"webhook_secret"`
	Timeout       time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Autostart == nil {
		t := true
		c.Autostart = &t
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

func (c *Config) autostart() bool {
	return c.Autostart == nil || *c.Autostart
}

// enabled flattens the job overrides into the map jobs.Definitions takes.
func (c *Config) enabled() map[string]bool {
	out := make(map[string]bool, len(c.Jobs))
	for name, jc := range c.Jobs {
		if jc.Enabled != nil {
			out[name] = *jc.Enabled
		}
	}
	return out
}

func (c *Config) validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: timezone %q: %w", c.Timezone, err))
	}
	for name := range c.Jobs {
		if !slices.Contains(jobs.Names, name) {
			errs = append(errs, fmt.Errorf("scheduler: jobs.%s: unknown job", name))
		}
	}
	if c.Notify.Timeout < 0 {
		errs = append(errs, errors.New("scheduler: notify.timeout must be non-negative"))
	}
	return errors.Join(errs...)
}
