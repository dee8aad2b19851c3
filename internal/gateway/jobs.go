package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/cron"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/execution"
	"github.com/ashutoshgairola/Riddhi-sub001/internal/security"
)

func (g *Gateway) handleSchedulerStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := g.admin.GetAllJobStatuses(r.Context())
		if err != nil {
			g.adminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// handleJobHistory serves GET /api/scheduler/jobs/{name}/history?limit=N.
// A non-numeric limit is rejected; numeric limits are clamped by the admin.
func (g *Gateway) handleJobHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := execution.DefaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit: "+raw)
				return
			}
			limit = n
		}

		rows, err := g.admin.GetJobHistory(r.Context(), chi.URLParam(r, "name"), limit)
		if err != nil {
			g.adminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// handleTriggerJob runs the job inline. Skipped and failed runs are still
// 200: the outcome is in the body.
func (g *Gateway) handleTriggerJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := g.admin.ValidateJob(name); err != nil {
			g.adminError(w, err)
			return
		}
		if err := g.limiter.Allow(bucketTrigger); err != nil {
			g.audit.Log(security.AuditEvent{Type: security.EventRateLimit, Job: name, Remote: r.RemoteAddr, Detail: bucketTrigger})
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		res, err := g.admin.TriggerJob(r.Context(), name)
		if err != nil {
			g.adminError(w, err)
			return
		}
		g.audit.Log(security.AuditEvent{Type: security.EventJobTrigger, Job: name, Remote: r.RemoteAddr, Detail: outcome(res)})
		writeJSON(w, http.StatusOK, res)
	}
}

func (g *Gateway) handleToggleJob(enabled bool) http.HandlerFunc {
	event := security.EventJobDisable
	toggle := g.admin.DisableJob
	if enabled {
		event = security.EventJobEnable
		toggle = g.admin.EnableJob
	}
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		res, err := toggle(name)
		if err != nil {
			g.adminError(w, err)
			return
		}
		g.audit.Log(security.AuditEvent{Type: event, Job: name, Remote: r.RemoteAddr})
		writeJSON(w, http.StatusOK, res)
	}
}

// adminError maps admin errors to responses: unknown jobs are the caller's
// fault, anything else is a storage or scheduler failure.
func (g *Gateway) adminError(w http.ResponseWriter, err error) {
	if errors.Is(err, cron.ErrUnknownJob) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g.logger.Error("gateway: admin request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func outcome(res cron.Result) string {
	switch {
	case res.Skipped():
		return "skipped"
	case res.ErrorCount > 0:
		return "errors=" + strconv.Itoa(res.ErrorCount)
	default:
		return "processed=" + strconv.Itoa(res.ProcessedCount)
	}
}
