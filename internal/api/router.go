package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/sdrlink/internal/auth"
)

// healthCheckTimeout bounds each dependency probe on /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Authenticated via token query parameter inside the handler.
		r.Get(wsPath, s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/radios", func(r chi.Router) {
				r.With(s.require(auth.PermRadioRead)).Get("/", s.handleListRadios)

				r.Route("/{name}", func(r chi.Router) {
					r.With(s.require(auth.PermRadioRead)).Get("/", s.handleGetRadio)
					r.With(s.require(auth.PermRadioConnect)).Post("/connect", s.handleConnectRadio)
					r.With(s.require(auth.PermRadioConnect)).Post("/disconnect", s.handleDisconnectRadio)
					r.With(s.require(auth.PermRadioRaw)).Post("/command", s.handleRawCommand)

					r.Route("/components", func(r chi.Router) {
						r.With(s.require(auth.PermRadioRead)).Get("/", s.handleListComponents)
						r.Route("/{category}/{index}", func(r chi.Router) {
							r.With(s.require(auth.PermRadioRead)).Get("/", s.handleGetComponent)
							r.With(s.require(auth.PermRadioConfigure)).Patch("/", s.handleConfigureComponent)
							r.With(s.require(auth.PermRadioConfigure)).Post("/refresh", s.handleRefreshComponent)
						})
					})
				})
			})

			r.With(s.require(auth.PermJournalRead)).Get("/journal", s.handleListJournal)
		})
	})

	return r
}

// handleHealth reports the version and the state of each dependency.
// Any failing dependency turns the answer into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":  overall,
		"version": s.version,
		"checks":  checks,
	})
}
