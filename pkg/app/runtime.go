package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/config"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/reload"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

// Runtime is a loaded but not yet started application.
type Runtime struct {
	App        *core.App
	Context    *core.AppContext
	Logger     *slog.Logger
	Reloader   *reload.Handler
	Registry   *prometheus.Registry
	ConfigPath string
	ModuleIDs  []string
}

// Build loads the configuration and provisions every configured module,
// without starting any of them. Callers must Start or Close the App.
func Build(params RunParams) (*Runtime, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	redactor := security.NewRedactor()
	var out io.Writer = os.Stderr
	if params.LogOutput != nil {
		out = params.LogOutput
	}
	logger, err := NewLogger(out, params.LogLevel, params.LogFormat, redactor)
	if err != nil {
		return nil, err
	}

	audit := security.NewAuditLogger(security.AuditLoggerConfig{
		Redactor: redactor,
		OnEvent: func(e security.AuditEvent) {
			logger.Info("audit", "event", string(e.Type), "job", e.Job, "remote", e.Remote, "detail", e.Detail)
		},
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = cfg.DataDir
	}
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	appCtx := core.NewAppContext(logger, dataDir).WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(core.ServiceMetricsRegistry, prometheus.Registerer(reg))
	appCtx.RegisterService(core.ServiceMetricsGatherer, prometheus.Gatherer(reg))
	appCtx.RegisterService(core.ServiceRedactor, redactor)
	appCtx.RegisterService(core.ServiceAuditLogger, audit)

	application := core.NewApp(appCtx)

	// Registered before loading so the gateway can resolve it in Provision.
	handler := reload.NewHandler(application, logger, dataDir, cfgPath)
	appCtx.RegisterService(core.ServiceReloader, handler)

	ids := config.Resolve(cfg)
	if err := application.LoadModules(ids); err != nil {
		return nil, err
	}

	logger.Info("riddhi: modules loaded",
		"version", params.Version,
		"config", cfgPath,
		"data_dir", dataDir,
		"modules", len(ids),
	)

	return &Runtime{
		App:        application,
		Context:    appCtx,
		Logger:     logger,
		Reloader:   handler,
		Registry:   reg,
		ConfigPath: cfgPath,
		ModuleIDs:  ids,
	}, nil
}

// Check loads and provisions every module of the config at path, then
// releases them. It reports the modules that would be started.
func Check(path string, logOutput io.Writer) ([]string, error) {
	rt, err := Build(RunParams{ConfigPath: path, LogLevel: slog.LevelWarn, LogOutput: logOutput})
	if err != nil {
		return nil, fmt.Errorf("config check: %w", err)
	}
	rt.App.Close()
	return rt.ModuleIDs, nil
}
