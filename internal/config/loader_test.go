package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "riddhi.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("RIDDHI_TEST_TOKEN", "tok-123")

	path := writeConfig(t, `version: "1"
modules:
  gateway.http:
    bind: "${RIDDHI_TEST_BIND:-127.0.0.1:9090}"
    auth:
      bearer_token: "${RIDDHI_TEST_TOKEN}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	node, ok := cfg.Modules["gateway.http"]
	if !ok {
		t.Fatal("gateway.http missing")
	}
	var gw struct {
		Bind string `yaml:"bind"`
		Auth struct {
			BearerToken string `yaml:"bearer_token"`
		} `yaml:"auth"`
	}
	if err := node.Decode(&gw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gw.Bind != "127.0.0.1:9090" {
		t.Errorf("bind = %q, want default", gw.Bind)
	}
	if gw.Auth.BearerToken != "tok-123" {
		t.Errorf("bearer_token = %q", gw.Auth.BearerToken)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `version: "1"
modules:
  execution.postgres:
    dsn: "${RIDDHI_TEST_UNSET_DSN}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unresolved variable")
	}
	if !strings.Contains(err.Error(), "RIDDHI_TEST_UNSET_DSN") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "version: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_Generic(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `version: "1"
modules:
  ledger.sqlite:
  scheduler.cron:
    timezone: Asia/Kolkata
    notify:
      webhook_secret: shh
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	g, err := cfg.Generic()
	if err != nil {
		t.Fatalf("Generic: %v", err)
	}
	mods := g["modules"].(map[string]any)
	if _, ok := mods["ledger.sqlite"].(map[string]any); !ok {
		t.Errorf("empty module should decode to a map, got %T", mods["ledger.sqlite"])
	}
	sched := mods["scheduler.cron"].(map[string]any)
	if sched["timezone"] != "Asia/Kolkata" {
		t.Errorf("timezone = %v", sched["timezone"])
	}
}

func TestResolve_TierOrder(t *testing.T) {
	t.Parallel()

	cfg := &Config{Modules: map[string]yaml.Node{
		"gateway.http":       {},
		"scheduler.cron":     {},
		"ledger.sqlite":      {},
		"execution.postgres": {},
		"telemetry.otlp":     {},
		"custom.thing":       {},
	}}

	got := Resolve(cfg)
	want := []string{"telemetry.otlp", "execution.postgres", "ledger.sqlite", "scheduler.cron", "gateway.http", "custom.thing"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{"HOME_DIR": "/home/r", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr string
	}{
		{"set", "p: ${HOME_DIR}/db", "p: /home/r/db", ""},
		{"set but empty", "p: '${EMPTY}'", "p: ''", ""},
		{"default", "p: ${NOPE:-fallback}", "p: fallback", ""},
		{"empty default", "p: '${NOPE:-}'", "p: ''", ""},
		{"escaped", "p: $${HOME_DIR}", "p: ${HOME_DIR}", ""},
		{"missing sorted and deduplicated", "a: ${ZED}\nb: ${ALPHA}\nc: ${ZED}", "", "unresolved variables: ALPHA, ZED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := expandEnv([]byte(tt.in), lookup)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnv: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_RejectsUnknownTopLevelKey(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("version: \"1\"\nplugins: []\n"))
	if err == nil || !strings.Contains(err.Error(), "plugins") {
		t.Fatalf("err = %v, want unknown field error naming plugins", err)
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Version != "" || len(cfg.Modules) != 0 {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}
