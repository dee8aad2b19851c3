// Package scheduler provides the scheduler.cron module. It wires the
// finance jobs into a cron.Scheduler over the configured execution store
// and publishes the admin surface for the gateway.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/jobs"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

// ModuleID is the scheduler module's ID.
const ModuleID = "scheduler.cron"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
	_ core.Reloader     = (*Module)(nil)
)

// Module owns the process's scheduler.
type Module struct {
	config    Config
	logger    *slog.Logger
	scheduler *cron.Scheduler
	admin     *cron.Admin
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("scheduler: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if err := m.config.validate(); err != nil {
		return err
	}
	loc, err := time.LoadLocation(m.config.Timezone)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	store, ok := core.Lookup[execution.Store](ctx, core.ServiceExecutionStore)
	if !ok {
		return fmt.Errorf("scheduler: service %q not found; configure an execution.* module", core.ServiceExecutionStore)
	}
	ledger, ok := core.Lookup[jobs.Ledger](ctx, core.ServiceLedger)
	if !ok {
		return fmt.Errorf("scheduler: service %q not found; configure ledger.sqlite", core.ServiceLedger)
	}

	notifier, err := m.notifier(ledger)
	if err != nil {
		return err
	}

	reg, _ := core.Lookup[prometheus.Registerer](ctx, core.ServiceMetricsRegistry)
	tp, _ := core.Lookup[trace.TracerProvider](ctx, core.ServiceTracerProvider)

	s, err := cron.NewScheduler(cron.Config{
		Store:          store,
		Location:       loc,
		Logger:         ctx.Logger,
		Metrics:        cron.NewMetrics(reg),
		TracerProvider: tp,
	})
	if err != nil {
		return err
	}

	defs := jobs.Definitions(jobs.Deps{
		Ledger:   ledger,
		Notifier: notifier,
		Logger:   ctx.Logger,
		Now:      func() time.Time { return time.Now().In(loc) },
	}, m.config.enabled())
	for _, def := range defs {
		if err := s.Register(def); err != nil {
			return fmt.Errorf("scheduler: register %s: %w", def.Name, err)
		}
	}

	m.scheduler = s
	m.admin = cron.NewAdmin(s)
	ctx.RegisterService(core.ServiceScheduler, s)
	ctx.RegisterService(core.ServiceSchedulerAdmin, m.admin)

	m.logger.Info("scheduler provisioned", "jobs", len(defs), "timezone", loc.String())
	return nil
}

// notifier stores notifications in the ledger when it can and also posts
// them to the webhook when one is configured.
func (m *Module) notifier(ledger jobs.Ledger) (notify.Notifier, error) {
	var fan notify.Fanout
	if n, ok := ledger.(notify.Notifier); ok {
		fan = append(fan, n)
	}
	if m.config.Notify.WebhookURL != "" {
		wh, err := notify.NewWebhookNotifier(notify.WebhookConfig{
			URL:     m.config.Notify.WebhookURL,
			Secret:  m.config.Notify.WebhookSecret,
			Timeout: m.config.Notify.Timeout,
			Logger:  m.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		fan = append(fan, wh)
	}
	if len(fan) == 0 {
		m.logger.Warn("scheduler: no notification sink configured; notifications are dropped")
		return notify.Discard, nil
	}
	return fan, nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}

// Start implements core.Starter.
func (m *Module) Start() error {
	if !m.config.autostart() {
		m.logger.Info("scheduler: autostart disabled; timers not started")
		return nil
	}
	return m.scheduler.Start()
}

// Stop implements core.Stopper. Runs already in progress are not waited on.
func (m *Module) Stop(ctx context.Context) error {
	if m.scheduler == nil {
		return nil
	}
	return m.scheduler.Stop(ctx)
}

// Reload implements core.Reloader. It re-reads the job overrides and
// applies any change through the admin enable/disable path. Jobs without an
// override fall back to enabled.
func (m *Module) Reload(ctx *core.AppContext) error {
	node, ok := ctx.ModuleConfig(ModuleID)
	if !ok {
		return nil
	}
	var next Config
	if err := node.Decode(&next); err != nil {
		return fmt.Errorf("scheduler: decode config: %w", err)
	}
	next.defaults()
	if err := next.validate(); err != nil {
		return err
	}

	overrides := next.enabled()
	for _, def := range m.scheduler.Registry().List() {
		want, ok := overrides[def.Name]
		if !ok {
			want = true
		}
		if want == def.Enabled {
			continue
		}
		var err error
		if want {
			_, err = m.admin.EnableJob(def.Name)
		} else {
			_, err = m.admin.DisableJob(def.Name)
		}
		if err != nil {
			return fmt.Errorf("scheduler: reload %s: %w", def.Name, err)
		}
	}

	m.config.Jobs = next.Jobs
	return nil
}

// Scheduler returns the module's scheduler.
func (m *Module) Scheduler() *cron.Scheduler { return m.scheduler }

// Admin returns the module's admin surface.
func (m *Module) Admin() *cron.Admin { return m.admin }
