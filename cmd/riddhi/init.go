package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// initAnswers holds what the setup form collects.
type initAnswers struct {
	Store       string
	PostgresDSN string
	Timezone    string
	Bind        string
	TokenEnv    string
	EnableMCP   bool
	Telemetry   bool
	OTLP        string
	WebhookURL  string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		Store:     "sqlite",
		Timezone:  "UTC",
		Bind:      "127.0.0.1:8080",
		TokenEnv:  "RIDDHI_ADMIN_TOKEN",
		EnableMCP: true,
		OTLP:      "localhost:4318",
	}
}

func validateBind(s string) error {
	if _, _, err := net.SplitHostPort(s); err != nil {
		return fmt.Errorf("expected host:port: %w", err)
	}
	return nil
}

func validateTimezone(s string) error {
	_, err := time.LoadLocation(s)
	return err
}

func setupForm(a *initAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Execution store").
				Options(
					huh.NewOption("SQLite (single file in the data directory)", "sqlite"),
					huh.NewOption("PostgreSQL", "postgres"),
				).
				Value(&a.Store),
			huh.NewInput().
				Title("Scheduler timezone").
				Value(&a.Timezone).
				Validate(validateTimezone),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("PostgreSQL DSN").
				Placeholder("postgres://riddhi@localhost:5432/riddhi").
				Value(&a.PostgresDSN).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("dsn is required")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return a.Store != "postgres" }),
		huh.NewGroup(
			huh.NewInput().
				Title("Admin API bind address").
				Value(&a.Bind).
				Validate(validateBind),
			huh.NewInput().
				Title("Environment variable holding the admin bearer token").
				Description("Leave empty to run the admin API without auth.").
				Value(&a.TokenEnv),
			huh.NewConfirm().
				Title("Expose the MCP endpoint?").
				Value(&a.EnableMCP),
			huh.NewInput().
				Title("Notification webhook URL (optional)").
				Value(&a.WebhookURL),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Export traces over OTLP?").
				Value(&a.Telemetry),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("OTLP HTTP endpoint").
				Value(&a.OTLP),
		).WithHideFunc(func() bool { return !a.Telemetry }),
	)
}

// renderConfig turns the answers into a riddhi.yaml document.
func renderConfig(a initAnswers) ([]byte, error) {
	if err := validateBind(a.Bind); err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}
	if err := validateTimezone(a.Timezone); err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	modules := map[string]any{
		"ledger.sqlite": map[string]any{},
	}
	switch a.Store {
	case "sqlite":
		modules["execution.sqlite"] = map[string]any{"wal": true}
	case "postgres":
		if a.PostgresDSN == "" {
			return nil, errors.New("postgres store requires a dsn")
		}
		modules["execution.postgres"] = map[string]any{"dsn": a.PostgresDSN}
	default:
		return nil, fmt.Errorf("unknown store %q", a.Store)
	}

	scheduler := map[string]any{
		"autostart": true,
		"timezone":  a.Timezone,
	}
	if a.WebhookURL != "" {
		scheduler["notify"] = map[string]any{"webhook_url": a.WebhookURL}
	}
	modules["scheduler.cron"] = scheduler

	gateway := map[string]any{
		"bind": a.Bind,
		"mcp":  a.EnableMCP,
	}
	if a.TokenEnv != "" {
		gateway["auth"] = map[string]any{"bearer_token": "${" + a.TokenEnv + "}"}
	}
	modules["gateway.http"] = gateway

	if a.Telemetry {
		modules["telemetry.otlp"] = map[string]any{
			"endpoint": a.OTLP,
			"insecure": true,
		}
	}

	return yaml.Marshal(map[string]any{
		"version": "1",
		"modules": modules,
	})
}

func initCmd() *cobra.Command {
	var force, useDefaults bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "riddhi.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			answers := defaultAnswers()
			if !useDefaults {
				if err := setupForm(&answers).Run(); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return errors.New("init aborted")
					}
					return err
				}
			}

			data, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(path); dir != "." {
				if err := os.MkdirAll(dir, 0o700); err != nil {
					return err
				}
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&useDefaults, "defaults", false, "Skip the prompts and use defaults")
	return cmd
}
