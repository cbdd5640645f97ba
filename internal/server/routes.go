package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leaproute/internal/engine"
)

// SetupRoutes registers the API routes.
func SetupRoutes(router chi.Router, eng *engine.Engine, logger *slog.Logger) {
	handlers := NewHandlers(eng, logger)

	router.Route("/api", func(r chi.Router) {
		r.Get("/routes", handlers.ListRoutes)
		r.Get("/routes/{id}", handlers.GetRoute)
		r.Get("/routes/{id}/table", handlers.GetTable)
		r.Get("/routes/{id}/events", handlers.RouteEvents)
		r.Get("/nodes/{id}", handlers.GetNode)
		r.Get("/nodes/{id}/table", handlers.GetTable)
		r.Get("/plotters/{id}", handlers.GetPlotter)
	})
}
