// Package router sets up HTTP routes for the UI server.
package router

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/querydash/internal/dashboard"
	homeFeature "github.com/leapstack-labs/querydash/internal/ui/features/home"
	runsFeature "github.com/leapstack-labs/querydash/internal/ui/features/runs"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
	"github.com/leapstack-labs/querydash/internal/ui/resources"
)

// Options carries the settings shared by every feature.
type Options struct {
	DefaultRole string
	IsDev       bool
	Logger      *slog.Logger
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(
	router chi.Router,
	svc *dashboard.Service,
	sessionStore sessions.Store,
	notify *notifier.Notifier,
	opts Options,
) error {
	// Hot reload endpoint for dev mode
	if opts.IsDev {
		setupReload(router)
	}

	router.Handle("/static/*", resources.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if err := homeFeature.SetupRoutes(router, svc, sessionStore, notify, opts.DefaultRole, opts.IsDev, opts.Logger); err != nil {
		return err
	}

	if err := runsFeature.SetupRoutes(router, svc, notify, opts.IsDev, opts.Logger); err != nil {
		return err
	}

	return nil
}

func setupReload(router chi.Router) {
	reloadChan := make(chan struct{}, 1)
	var hotReloadOnce sync.Once

	router.Get("/reload", func(w http.ResponseWriter, r *http.Request) {
		sse := datastar.NewSSE(w, r)
		reload := func() { _ = sse.ExecuteScript("window.location.reload()") }
		hotReloadOnce.Do(reload)
		select {
		case <-reloadChan:
			reload()
		case <-r.Context().Done():
		}
	})

	router.Get("/hotreload", func(w http.ResponseWriter, _ *http.Request) {
		select {
		case reloadChan <- struct{}{}:
		default:
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
