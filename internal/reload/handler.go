package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/config"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
)

// ModuleReloader is the part of core.App the Handler drives.
type ModuleReloader interface {
	ReloadModules(ctx *core.AppContext) error
}

// Handler re-reads the configuration file and hands the new module configs
// to every module implementing core.Reloader. Calls are serialized, so a
// SIGHUP racing a file change or an admin request applies one after the
// other.
type Handler struct {
	app        ModuleReloader
	logger     *slog.Logger
	dataDir    string
	configPath string
	mu         sync.Mutex
}

// NewHandler creates a reload handler for the config file at configPath.
func NewHandler(app ModuleReloader, logger *slog.Logger, dataDir, configPath string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		app:        app,
		logger:     logger,
		dataDir:    dataDir,
		configPath: configPath,
	}
}

// ConfigPath returns the watched configuration file.
func (h *Handler) ConfigPath() string {
	return h.configPath
}

// Reload loads the config file, validates it, and reloads modules.
func (h *Handler) Reload(ctx context.Context) error {
	cfg, err := config.Load(h.configPath)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return h.Apply(ctx, cfg)
}

// Apply reloads modules from an already validated config.
func (h *Handler) Apply(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reload: context cancelled: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	appCtx := core.NewAppContext(h.logger, h.dataDir).WithModuleConfigs(cfg.Modules)
	if err := h.app.ReloadModules(appCtx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	h.logger.Info("reload: configuration applied", "path", h.configPath)
	return nil
}
