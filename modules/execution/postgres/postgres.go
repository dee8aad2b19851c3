// Package postgres provides the execution.postgres module: an
// execution.Store on a pgx connection pool with goose-managed schema.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// ServiceName is the service key the store is registered under.
const ServiceName = core.ServiceExecutionStore

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module owns the pool, the store and its retention sweeper.
type Module struct {
	config     Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	store      *Store
	sweeper    *execution.Sweeper
	registerer prometheus.Registerer
	collectors []prometheus.Collector
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "execution.postgres",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("postgres: decode config: %w", err)
	}
	m.config.defaults()
	return m.config.validate()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if err := m.config.validate(); err != nil {
		return err
	}

	if m.config.migrateEnabled() {
		if err := Migrate(m.config.DSN); err != nil {
			return err
		}
	}

	pool, err := NewPool(context.Background(), m.config.DSN, m.config.MaxConns)
	if err != nil {
		return err
	}
	m.pool = pool

	m.store = NewStore(pool,
		execution.WithStaleAfter(m.config.StaleAfter),
		execution.WithLogger(ctx.Logger),
	)
	m.sweeper = execution.NewSweeper(m.store, execution.SweeperConfig{
		Retention: m.config.Retention,
		Interval:  m.config.SweepInterval,
		Logger:    ctx.Logger,
	})

	if reg, ok := core.Lookup[prometheus.Registerer](ctx, core.ServiceMetricsRegistry); ok {
		m.registerer = reg
		for _, c := range poolCollectors(pool) {
			if err := reg.Register(c); err != nil {
				m.logger.Warn("postgres: pool metric not registered", "error", err)
				continue
			}
			m.collectors = append(m.collectors, c)
		}
	}

	ctx.RegisterService(ServiceName, execution.Store(m.store))
	m.logger.Info("postgres execution store provisioned", "max_conns", pool.Config().MaxConns)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.pool.Ping(context.Background()); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}

// Start implements core.Starter.
func (m *Module) Start() error {
	m.sweeper.Start()
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.sweeper != nil {
		m.sweeper.Stop()
	}
	for _, c := range m.collectors {
		m.registerer.Unregister(c)
	}
	m.collectors = nil
	if m.pool != nil {
		m.pool.Close()
	}
	return nil
}
