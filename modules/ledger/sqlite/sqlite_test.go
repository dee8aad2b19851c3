package sqlite

import (
	"context"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/jobs"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/notify"
)

func TestModule_ProvisionRegistersLedger(t *testing.T) {
	dir := t.TempDir()

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("timezone: Asia/Kolkata\n"), &node); err != nil {
		t.Fatal(err)
	}
	m := &Module{}
	if err := m.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	ctx := core.NewAppContext(quiet(), dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	defer func() { _ = m.Stop(context.Background()) }()

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	l, ok := core.Lookup[jobs.Ledger](ctx, ServiceName)
	if !ok {
		t.Fatal("ledger.store not registered as jobs.Ledger")
	}
	if _, ok := l.(notify.Notifier); !ok {
		t.Error("ledger store does not implement notify.Notifier")
	}
}

func TestModule_BadTimezone(t *testing.T) {
	m := &Module{config: Config{Timezone: "Mars/Olympus"}}
	if err := m.Provision(core.NewAppContext(quiet(), t.TempDir())); err == nil {
		t.Fatal("Provision() with unknown timezone returned nil")
	}
}
