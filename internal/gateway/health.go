package gateway

import (
	"net/http"
	"time"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status           string `json:"status"`
	SchedulerRunning bool   `json:"scheduler_running"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

// handleHealth reports liveness. It never touches the execution store, so
// it stays cheap for frequent probes.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:           "ok",
			SchedulerRunning: g.admin.Running(),
		}
		if !g.startedAt.IsZero() {
			resp.UptimeSeconds = int64(time.Since(g.startedAt) / time.Second)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
