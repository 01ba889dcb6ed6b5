// Package router assembles the chi routing tree for the API server.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/azielinski/slotwatch/internal/http/handlers"
	httpmiddleware "github.com/azielinski/slotwatch/internal/http/middleware"
	"github.com/azielinski/slotwatch/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger      *logging.Logger
	Auth        *handlers.AuthHandler
	Filters     *handlers.FiltersHandler
	Slots       *handlers.SlotsHandler
	Monitorings *handlers.MonitoringsHandler

	// AuthSecret signs and validates owner tokens.
	AuthSecret string

	// MetricsHandler, when set, is mounted publicly at /metrics.
	MetricsHandler http.Handler
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Post("/auth/login", cfg.Auth.Login)

	// Owner-scoped endpoints.
	r.Group(func(owner chi.Router) {
		owner.Use(httpmiddleware.OwnerJWT(cfg.AuthSecret))

		owner.Route("/filters", func(r chi.Router) {
			r.Get("/regions", cfg.Filters.Regions)
			r.Get("/specialties", cfg.Filters.Specialties)
			r.Get("/clinics", cfg.Filters.Clinics)
			r.Get("/doctors", cfg.Filters.Doctors)
		})

		owner.Post("/slots/search", cfg.Slots.Search)
		owner.Get("/slots/history", cfg.Slots.History)
		owner.Delete("/slots/history", cfg.Slots.ClearHistory)
		owner.Get("/appointments", cfg.Slots.Appointments)

		owner.Route("/monitorings", func(r chi.Router) {
			r.Post("/", cfg.Monitorings.Create)
			r.Get("/", cfg.Monitorings.List)
			r.Delete("/{id}", cfg.Monitorings.Cancel)
		})
	})

	return r
}
