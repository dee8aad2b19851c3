package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

// authMiddleware returns a chi-compatible middleware that validates Bearer token
// or Basic auth credentials using constant-time comparison.
// Attempts are rate-limited with the "auth" bucket and every outcome is
// written to the audit log.
func authMiddleware(cfg AuthConfig, audit *security.AuditLogger, limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.Allow(bucketAuth); err != nil {
				emitAuthEvent(audit, security.EventRateLimit, r, bucketAuth)
				writeError(w, http.StatusTooManyRequests, err.Error())
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				emitAuthEvent(audit, security.EventAuthFailure, r, "missing authorization header")
				unauthorized(w, cfg)
				return
			}

			if cfg.BearerToken != "" {
				if after, ok := strings.CutPrefix(auth, "Bearer "); ok && constantTimeEqual(after, cfg.BearerToken) {
					emitAuthEvent(audit, security.EventAuthSuccess, r, "bearer")
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.BasicUser != "" && cfg.BasicPass != "" {
				user, pass, ok := r.BasicAuth()
				if ok && constantTimeEqual(user, cfg.BasicUser) && constantTimeEqual(pass, cfg.BasicPass) {
					emitAuthEvent(audit, security.EventAuthSuccess, r, "basic")
					next.ServeHTTP(w, r)
					return
				}
			}

			emitAuthEvent(audit, security.EventAuthFailure, r, "invalid credentials")
			unauthorized(w, cfg)
		})
	}
}

func unauthorized(w http.ResponseWriter, cfg AuthConfig) {
	if cfg.BasicUser != "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="riddhi"`)
	}
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

// emitAuthEvent logs an auth event to the audit logger.
func emitAuthEvent(audit *security.AuditLogger, eventType security.EventType, r *http.Request, detail string) {
	audit.Log(security.AuditEvent{
		Type:   eventType,
		Remote: r.RemoteAddr,
		Detail: detail,
		Metadata: map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
		},
	})
}

// constantTimeEqual compares two strings in constant time.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
