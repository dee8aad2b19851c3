// Package sqlite provides the execution.sqlite module: a durable
// execution.Store on modernc.org/sqlite (pure Go, no CGO) plus the
// retention sweeper that trims old rows.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
)

// ServiceName is the service key the store is registered under.
const ServiceName = core.ServiceExecutionStore

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module owns the execution database and its sweeper.
type Module struct {
	config  Config
	db      *sql.DB
	logger  *slog.Logger
	store   *Store
	sweeper *execution.Sweeper
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "execution.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := Open(context.Background(), m.config)
	if err != nil {
		return err
	}

	m.db = db
	m.store = NewStore(db,
		execution.WithStaleAfter(m.config.StaleAfter),
		execution.WithLogger(ctx.Logger),
	)
	m.sweeper = execution.NewSweeper(m.store, execution.SweeperConfig{
		Retention: m.config.Retention,
		Interval:  m.config.SweepInterval,
		Logger:    ctx.Logger,
	})

	ctx.RegisterService(ServiceName, execution.Store(m.store))

	m.logger.Info("sqlite execution store provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
		"retention", m.config.Retention.String(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
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
	m.logger.Info("sqlite execution store stopping")
	if m.sweeper != nil {
		m.sweeper.Stop()
	}
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Store returns the execution store.
func (m *Module) Store() execution.Store {
	return m.store
}
