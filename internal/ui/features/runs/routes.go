// Package runs provides the run history page.
package runs

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
)

// SetupRoutes configures routes for the runs feature.
func SetupRoutes(router chi.Router, svc *dashboard.Service, notify *notifier.Notifier, isDev bool, logger *slog.Logger) error {
	handlers := NewHandlers(svc, notify, isDev, logger)

	router.Get("/history", handlers.HistoryPage)
	router.Get("/history/updates", handlers.HistoryUpdates)

	return nil
}
