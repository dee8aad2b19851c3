// Package main is the entry point for the riddhi CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
	"github.com/ashutoshgairola/Riddhi-sub001/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "riddhi",
		Short:         "Background job scheduler for the Riddhi finance tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd(), jobsCmd(), serviceCmd(), initCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled modules",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "riddhi %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Fprintln(out, "\nNo compiled modules.")
				return
			}
			fmt.Fprintln(out, "\nCompiled modules:")
			for _, mod := range mods {
				fmt.Fprintf(out, "  %s\n", mod.ID)
			}
		},
	}
}

// runFlags are shared by start and service run.
type runFlags struct {
	config    string
	dataDir   string
	logLevel  string
	logFormat string
}

func (f *runFlags) register(cmd *cobra.Command, persistent bool) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	fs.StringVarP(&f.config, "config", "c", "", "Path to configuration file")
	fs.StringVar(&f.dataDir, "data-dir", "", "Override the persistent data directory")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "text", "Log format (text, json)")
}

func (f *runFlags) params() (app.RunParams, error) {
	level, err := app.ParseLevel(f.logLevel)
	if err != nil {
		return app.RunParams{}, err
	}
	return app.RunParams{
		ConfigPath: f.config,
		DataDir:    f.dataDir,
		Version:    version,
		Commit:     commit,
		Date:       date,
		LogLevel:   level,
		LogFormat:  f.logFormat,
	}, nil
}

func startCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler with all configured modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := flags.params()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(backgroundContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, params)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration and provision every module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := app.Check(args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%d modules)\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}

func backgroundContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
