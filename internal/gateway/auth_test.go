package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       AuthConfig
		setup     func(r *http.Request)
		wantCode  int
		wantEvent security.EventType
	}{
		{
			name:      "valid bearer",
			cfg:       AuthConfig{BearerToken: "secret-token"},
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") },
			wantCode:  http.StatusOK,
			wantEvent: security.EventAuthSuccess,
		},
		{
			name:      "wrong bearer",
			cfg:       AuthConfig{BearerToken: "secret-token"},
			setup:     func(r *http.Request) { r.Header.Set("Authorization", "Bearer wrong") },
			wantCode:  http.StatusUnauthorized,
			wantEvent: security.EventAuthFailure,
		},
		{
			name:      "missing header",
			cfg:       AuthConfig{BearerToken: "secret-token"},
			setup:     func(*http.Request) {},
			wantCode:  http.StatusUnauthorized,
			wantEvent: security.EventAuthFailure,
		},
		{
			name:      "valid basic",
			cfg:       AuthConfig{BasicUser: "admin", BasicPass: "pass123"},
			setup:     func(r *http.Request) { r.SetBasicAuth("admin", "pass123") },
			wantCode:  http.StatusOK,
			wantEvent: security.EventAuthSuccess,
		},
		{
			name:      "wrong basic password",
			cfg:       AuthConfig{BasicUser: "admin", BasicPass: "pass123"},
			setup:     func(r *http.Request) { r.SetBasicAuth("admin", "nope") },
			wantCode:  http.StatusUnauthorized,
			wantEvent: security.EventAuthFailure,
		},
		{
			name:      "basic when only bearer configured",
			cfg:       AuthConfig{BearerToken: "secret-token"},
			setup:     func(r *http.Request) { r.SetBasicAuth("admin", "secret-token") },
			wantCode:  http.StatusUnauthorized,
			wantEvent: security.EventAuthFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got []security.AuditEvent
			audit := security.NewAuditLogger(security.AuditLoggerConfig{
				OnEvent: func(e security.AuditEvent) { got = append(got, e) },
			})
			handler := authMiddleware(tt.cfg, audit, nil)(okHandler())

			req := httptest.NewRequest(http.MethodGet, "/api/scheduler/status", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if len(got) != 1 || got[0].Type != tt.wantEvent {
				t.Errorf("audit events = %+v, want one %s", got, tt.wantEvent)
			}
		})
	}
}

func TestAuthMiddleware_BasicChallenge(t *testing.T) {
	t.Parallel()

	handler := authMiddleware(AuthConfig{BasicUser: "admin", BasicPass: "pw"}, nil, nil)(okHandler())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate challenge for basic auth")
	}
}

func TestAuthMiddleware_RateLimited(t *testing.T) {
	t.Parallel()

	limiter := security.NewRateLimiter(map[string]security.Limit{bucketAuth: {Max: 2}})
	handler := authMiddleware(AuthConfig{BearerToken: "tok"}, nil, limiter)(okHandler())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d: status = %d, want %d", i, codes[i], want[i])
		}
	}
}

func TestRouter_AdminRequiresAuthWhenConfigured(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, map[string]cron.Handler{"budget_alerts": okJob(1)},
		withAuth(AuthConfig{BearerToken: "tok"}))

	if rr := env.do(t, http.MethodGet, "/api/scheduler/status", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rr.Code)
	}
	if rr := env.do(t, http.MethodGet, "/api/scheduler/status", bearer("tok")); rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/mcp", nil); rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /mcp status = %d, want 401", rr.Code)
	}
	// Health stays public.
	if rr := env.do(t, http.MethodGet, "/health", nil); rr.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rr.Code)
	}
}
