package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(g.metrics.middleware)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if g.config.Auth.IsConfigured() {
			r.Use(authMiddleware(g.config.Auth, g.audit, g.limiter))
		}
		r.Route("/api", func(r chi.Router) {
			r.Get("/scheduler/status", g.handleSchedulerStatus())
			r.Route("/scheduler/jobs/{name}", func(r chi.Router) {
				r.Get("/history", g.handleJobHistory())
				r.Post("/trigger", g.handleTriggerJob())
				r.Post("/enable", g.handleToggleJob(true))
				r.Post("/disable", g.handleToggleJob(false))
			})
			r.Get("/config", g.handleGetConfig())
			r.Post("/config/reload", g.handleReloadConfig())
		})
		if g.config.mcpEnabled() {
			r.Handle("/mcp", g.mcpHandler())
		}
	})

	return r
}
