package gateway

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string          `yaml:"bind"`
	Auth            AuthConfig      `yaml:"auth"`
	MCP             *bool           `yaml:"mcp"`
	RateLimits      RateLimitConfig `yaml:"rate_limits"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	// Manual triggers run the job inline, so the write timeout bounds the
	// longest job an operator can wait for.
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.RateLimits.AuthPerMinute == 0 {
		c.RateLimits.AuthPerMinute = 60
	}
	if c.RateLimits.TriggerPerMinute == 0 {
		c.RateLimits.TriggerPerMinute = 10
	}
}

func (c *Config) validate() error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", c.Bind); err != nil {
		errs = append(errs, fmt.Errorf("gateway: invalid bind address %q", c.Bind))
	}
	if (c.Auth.BasicUser == "") != (c.Auth.BasicPass == "") {
		errs = append(errs, errors.New("gateway: auth.basic_user and auth.basic_pass must be set together"))
	}
	return errors.Join(errs...)
}

func (c *Config) mcpEnabled() bool {
	return c.MCP == nil || *c.MCP
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// RateLimitConfig caps admin traffic per minute. Negative values disable
// a limit.
type RateLimitConfig struct {
	AuthPerMinute    int `yaml:"auth_per_minute"`
	TriggerPerMinute int `yaml:"trigger_per_minute"`
}

const (
	bucketAuth    = "auth"
	bucketTrigger = "trigger"
)

func (r RateLimitConfig) limiter() *security.RateLimiter {
	return security.NewRateLimiter(map[string]security.Limit{
		bucketAuth:    {Max: r.AuthPerMinute, Window: time.Minute},
		bucketTrigger: {Max: r.TriggerPerMinute, Window: time.Minute},
	})
}
