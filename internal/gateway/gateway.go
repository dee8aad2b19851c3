// Package gateway serves the scheduler's admin surface over HTTP: health,
// Prometheus metrics, job status and control, and an MCP tool endpoint. It
// binds to loopback by default.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// SchedulerAdmin is the operator surface the gateway exposes.
type SchedulerAdmin interface {
	Running() bool
	ValidateJob(name string) error
	GetAllJobStatuses(ctx context.Context) (cron.Status, error)
	GetJobHistory(ctx context.Context, name string, limit int) ([]execution.Execution, error)
	TriggerJob(ctx context.Context, name string) (cron.Result, error)
	EnableJob(name string) (cron.Toggle, error)
	DisableJob(name string) (cron.Toggle, error)
}

// Reloader re-reads the configuration file and applies it.
type Reloader interface {
	ConfigPath() string
	Reload(ctx context.Context) error
}

// Gateway is the HTTP gateway module. It is a leaf module: nothing looks
// up services from it.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	admin     SchedulerAdmin
	gatherer  prometheus.Gatherer
	reloader  Reloader
	redactor  *security.Redactor
	audit     *security.AuditLogger
	limiter   *security.RateLimiter
	metrics   *httpMetrics
	server    *http.Server
	addr      string
	startedAt time.Time
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return fmt.Errorf("gateway: decoding config: %w", err)
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The scheduler admin is required;
// metrics, reload and the shared redactor are used when registered.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	if g.config.Bind == "" {
		g.config.defaults()
	}
	g.logger = ctx.Logger

	admin, ok := core.Lookup[SchedulerAdmin](ctx, core.ServiceSchedulerAdmin)
	if !ok {
		return fmt.Errorf("gateway: service %q not registered (is scheduler.cron configured?)", core.ServiceSchedulerAdmin)
	}
	g.admin = admin

	if gatherer, ok := core.Lookup[prometheus.Gatherer](ctx, core.ServiceMetricsGatherer); ok {
		g.gatherer = gatherer
	}
	if reloader, ok := core.Lookup[Reloader](ctx, core.ServiceReloader); ok {
		g.reloader = reloader
	}

	g.redactor, ok = core.Lookup[*security.Redactor](ctx, core.ServiceRedactor)
	if !ok {
		g.redactor = security.NewRedactor()
	}
	g.redactor.AddLiteral(g.config.Auth.BearerToken)
	g.redactor.AddLiteral(g.config.Auth.BasicPass)

	g.audit, ok = core.Lookup[*security.AuditLogger](ctx, core.ServiceAuditLogger)
	if !ok {
		g.audit = security.NewAuditLogger(security.AuditLoggerConfig{
			Redactor: g.redactor,
			OnEvent:  logAuditEvent(g.logger),
		})
	}
	g.limiter = g.config.RateLimits.limiter()

	if reg, ok := core.Lookup[prometheus.Registerer](ctx, core.ServiceMetricsRegistry); ok {
		g.metrics = newHTTPMetrics(reg)
	} else {
		g.metrics = newHTTPMetrics(nil)
	}

	if !g.config.Auth.IsConfigured() {
		g.logger.Warn("gateway: no auth configured, admin endpoints are open", "bind", g.config.Bind)
	}
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.validate()
}

// Start implements core.Starter.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.config.Bind, err)
	}

	g.addr = ln.Addr().String()

	go func() {
		g.logger.Info("gateway: listening", "addr", g.addr)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway: serve failed", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway: shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Addr returns the address the server is listening on, once started.
func (g *Gateway) Addr() string {
	return g.addr
}

func logAuditEvent(logger *slog.Logger) func(security.AuditEvent) {
	return func(e security.AuditEvent) {
		logger.Info("gateway: audit", "event", string(e.Type), "job", e.Job, "remote", e.Remote, "detail", e.Detail)
	}
}
