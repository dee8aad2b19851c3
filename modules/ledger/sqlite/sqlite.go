// Package sqlite provides the ledger.sqlite module: the finance records the
// scheduled jobs read and update, plus persisted notifications.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
)

// ServiceName is the service key the store is registered under.
const ServiceName = core.ServiceLedger

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module owns the ledger database.
type Module struct {
	config Config
	db     *sql.DB
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "ledger.sqlite",
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

	loc, err := m.config.location()
	if err != nil {
		return err
	}
	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := Open(context.Background(), m.config)
	if err != nil {
		return err
	}
	m.db = db
	m.store = NewStore(db, loc)

	ctx.RegisterService(ServiceName, m.store)
	m.logger.Info("sqlite ledger provisioned", "path", m.config.Path, "timezone", loc.String())
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.config.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", m.config.BusyTimeout)
	}
	if err := m.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Store returns the ledger store.
func (m *Module) Store() *Store {
	return m.store
}
