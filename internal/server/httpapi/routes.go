package httpapi

import (
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the handlers into a chi router with the standard
// middleware chain.
func NewRouter(svc SecretService, logger logging.Logger) *chi.Mux {
	h := NewHandler(svc, logger)

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.Health)

	r.Route("/secrets", func(r chi.Router) {
		r.Post("/", h.CreateSecret)
		r.Get("/{key}", h.ReadSecret)
		r.Delete("/{key}", h.DeleteSecret)
		r.Get("/{key}/logs", h.SecretLogs)
	})

	r.Post("/admin/cleanup", h.TriggerCleanup)

	return r
}
