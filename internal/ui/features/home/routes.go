// Package home provides the dashboard page: role and parameter controls,
// one panel per backend, and the run endpoints those panels call.
package home

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
)

// SetupRoutes configures routes for the home feature.
func SetupRoutes(
	router chi.Router,
	svc *dashboard.Service,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	defaultRole string,
	isDev bool,
	logger *slog.Logger,
) error {
	handlers := NewHandlers(svc, sessionStore, notify, defaultRole, isDev, logger)

	router.Get("/", handlers.HomePage)
	router.Get("/updates", handlers.HomePageUpdates)

	router.Route("/api", func(r chi.Router) {
		r.Post("/select", handlers.Select)
		r.Post("/relational/run", handlers.RunRelational)
		r.Post("/document/run", handlers.RunDocument)
	})

	return nil
}
