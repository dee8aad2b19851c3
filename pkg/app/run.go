// Package app provides the entry point shared by the riddhi commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/reload"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides both the config's data_dir and the default.
	DataDir string

	// LogLevel sets the minimum log level. Defaults to slog.LevelInfo.
	LogLevel slog.Level

	// LogFormat is "text" (default) or "json".
	LogFormat string

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
}

// Run loads configuration, starts all modules, and blocks until ctx is
// cancelled or a shutdown signal is received. SIGHUP and file-change
// events trigger a live configuration reload.
func Run(ctx context.Context, params RunParams) error {
	rt, err := Build(params)
	if err != nil {
		return err
	}
	logger := rt.Logger
	slog.SetDefault(logger)

	if err := rt.App.Start(); err != nil {
		rt.App.Close()
		return fmt.Errorf("riddhi: start: %w", err)
	}
	logger.Info("riddhi: started", "version", params.Version, "commit", params.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watcher := reload.NewWatcher(reload.WatcherConfig{ConfigPath: rt.ConfigPath})
	watcher.Start(watchCtx)
	defer watcher.Stop()

	shutdown := func() {
		rt.App.Stop()
		logger.Info("riddhi: shutdown complete")
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("riddhi: context cancelled, shutting down")
			shutdown()
			return nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("riddhi: SIGHUP received, reloading configuration")
				if err := rt.Reloader.Reload(watchCtx); err != nil {
					logger.Error("riddhi: reload failed", "error", err)
				}
				continue
			}
			logger.Info("riddhi: shutdown signal received", "signal", sig.String())
			shutdown()
			return nil
		case evt := <-watcher.Events():
			logger.Info("riddhi: config file changed, reloading", "path", evt.ConfigPath)
			if err := rt.Reloader.Reload(watchCtx); err != nil {
				logger.Error("riddhi: reload failed", "error", err)
			}
		}
	}
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/riddhi/riddhi.yaml → ~/.config/riddhi/riddhi.yaml → ./riddhi.yaml
func ResolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "riddhi", "riddhi.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "riddhi", "riddhi.yaml"))
	}

	candidates = append(candidates, "riddhi.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/riddhi if set, otherwise ~/.local/share/riddhi.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "riddhi")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "riddhi")
}
