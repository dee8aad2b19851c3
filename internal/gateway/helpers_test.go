package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron/crontest"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv is a gateway wired to a real scheduler over an in-memory store.
type testEnv struct {
	gateway   *Gateway
	scheduler *cron.Scheduler
	store     execution.Store
	handler   http.Handler

	mu     sync.Mutex
	events []security.AuditEvent
}

func (e *testEnv) auditEvents() []security.AuditEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]security.AuditEvent(nil), e.events...)
}

type envOption func(*Gateway)

func withAuth(auth AuthConfig) envOption {
	return func(g *Gateway) { g.config.Auth = auth }
}

func withRateLimits(r RateLimitConfig) envOption {
	return func(g *Gateway) { g.config.RateLimits = r }
}

func withReloader(r Reloader) envOption {
	return func(g *Gateway) { g.reloader = r }
}

// newTestEnv registers one job per handler, all enabled with a daily
// schedule.
func newTestEnv(t *testing.T, store execution.Store, handlers map[string]cron.Handler, opts ...envOption) *testEnv {
	t.Helper()

	if store == nil {
		store = execution.NewInMemoryStore()
	}
	sched, err := cron.NewScheduler(cron.Config{Store: store, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	for name, h := range handlers {
		if err := sched.Register(cron.Definition{
			Name:        name,
			Schedule:    "0 0 * * *",
			Description: "test job " + name,
			Enabled:     true,
			Handler:     h,
		}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })

	env := &testEnv{scheduler: sched, store: store}
	g := &Gateway{
		logger:   discardLogger(),
		admin:    cron.NewAdmin(sched),
		redactor: security.NewRedactor(),
		metrics:  newHTTPMetrics(nil),
	}
	g.config.defaults()
	for _, opt := range opts {
		opt(g)
	}
	g.config.defaults()
	g.audit = security.NewAuditLogger(security.AuditLoggerConfig{
		Redactor: g.redactor,
		OnEvent: func(e security.AuditEvent) {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.events = append(env.events, e)
		},
	})
	g.limiter = g.config.RateLimits.limiter()

	env.gateway = g
	env.handler = g.buildRouter()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func okJob(processed int) cron.Handler {
	h := &crontest.MockHandler{RunFunc: func(context.Context) (cron.Result, error) {
		return cron.Result{ProcessedCount: processed}, nil
	}}
	return h.Handle
}

func failingJob(msg string) cron.Handler {
	return func(context.Context) (cron.Result, error) {
		return cron.Result{}, errors.New(msg)
	}
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

// fakeReloader records Reload calls.
type fakeReloader struct {
	path  string
	err   error
	mu    sync.Mutex
	calls int
}

func (f *fakeReloader) ConfigPath() string { return f.path }

func (f *fakeReloader) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
