package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/config"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

// handleGetConfig returns the current config file with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.reloader == nil || g.reloader.ConfigPath() == "" {
			writeError(w, http.StatusServiceUnavailable, "config path not set")
			return
		}

		cfg, err := config.Load(g.reloader.ConfigPath())
		if err != nil {
			writeError(w, http.StatusInternalServerError, g.redactor.Redact(err.Error()))
			return
		}
		generic, err := cfg.Generic()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to decode config")
			return
		}

		g.redactor.RedactMap(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// handleReloadConfig re-applies the config file, the same path SIGHUP takes.
func (g *Gateway) handleReloadConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.reloader == nil {
			writeError(w, http.StatusServiceUnavailable, "reload not available")
			return
		}

		if err := g.reloader.Reload(r.Context()); err != nil {
			g.logger.Error("gateway: config reload failed", "error", err)
			g.audit.Log(security.AuditEvent{Type: security.EventConfigReload, Remote: r.RemoteAddr, Detail: "failed: " + err.Error()})
			writeError(w, http.StatusBadRequest, g.redactor.Redact(err.Error()))
			return
		}

		g.audit.Log(security.AuditEvent{Type: security.EventConfigReload, Remote: r.RemoteAddr, Detail: "ok"})
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
