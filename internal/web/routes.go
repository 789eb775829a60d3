package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/mask-sentry/internal/web/handlers"
	"github.com/kozaktomas/mask-sentry/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	recognitionsHandler := handlers.NewRecognitionsHandler(s.deps.Tracks)
	registrationsHandler := handlers.NewRegistrationsHandler(s.deps.Pipeline, s.deps.Queue)
	recordsHandler := handlers.NewRecordsHandler(s.deps.Store, s.deps.Contacts)
	statsHandler := handlers.NewStatsHandler(s.deps.Pipeline, s.deps.Alerts, s.deps.Store, s.deps.Queue)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/recognitions", recognitionsHandler.Get)
		r.Get("/stats", statsHandler.Get)

		// Registration review
		r.Get("/registrations", registrationsHandler.List)
		r.Get("/registrations/{id}/crop", registrationsHandler.Crop)

		// Records
		r.Get("/records", recordsHandler.List)
		r.Get("/records/{label}", recordsHandler.Get)
		r.Get("/records/{label}/crop", recordsHandler.Crop)

		// Mutations require the API token when one is configured
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireToken(s.config.APIToken))

			r.Post("/registrations/capture", registrationsHandler.Capture)
			r.Post("/registrations/{id}", registrationsHandler.Confirm)
			r.Delete("/registrations/{id}", registrationsHandler.Discard)
		})
	})
}
