// Package ui provides the web dashboard.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
	"github.com/leapstack-labs/querydash/internal/ui/router"
)

// Server is the main UI server.
type Server struct {
	service      *dashboard.Service
	sessionStore *sessions.CookieStore
	host         string
	port         int
	watch        bool
	isDev        bool
	defaultRole  string
	catalogPath  string
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the UI server.
type Config struct {
	Service       *dashboard.Service
	Host          string
	Port          int
	Dev           bool
	SessionSecret string
	DefaultRole   string
	// CatalogPath is reloaded on change when Watch is set. Empty means the
	// built-in catalog, which is never watched.
	CatalogPath string
	Watch       bool
	Logger      *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		service:      cfg.Service,
		sessionStore: sessionStore,
		host:         cfg.Host,
		port:         cfg.Port,
		watch:        cfg.Watch && cfg.CatalogPath != "",
		isDev:        cfg.Dev,
		defaultRole:  cfg.DefaultRole,
		catalogPath:  cfg.CatalogPath,
		logger:       logger,
		notifier:     notifier.New(),
	}
	s.service.AddRunHook(func(run *state.Run) {
		s.notifier.Broadcast(notifier.Event{Topic: notifier.RunCompleted, Entry: run.Entry})
	})
	return s
}

// Handler builds the HTTP handler with middleware and routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	if s.isDev {
		r.Use(middleware.Logger)
	}

	if err := router.SetupRoutes(r, s.service, s.sessionStore, s.notifier, router.Options{
		DefaultRole: s.defaultRole,
		IsDev:       s.isDev,
		Logger:      s.logger,
	}); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.host, fmt.Sprint(s.port))
	host := s.host
	if host == "" {
		host = "localhost"
	}
	s.logger.Info("starting dashboard", slog.String("addr", "http://"+net.JoinHostPort(host, fmt.Sprint(s.port))))

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch {
		eg.Go(func() error {
			return s.watchCatalog(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev returns true if running in development mode.
func (s *Server) IsDev() bool {
	return s.isDev
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// watchCatalog reloads the catalog file when it changes. The parent
// directory is watched because editors replace files on save.
func (s *Server) watchCatalog(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target, err := filepath.Abs(s.catalogPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch catalog", slog.String("error", err.Error()))
		// Don't fail - continue without watching
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if name, _ := filepath.Abs(event.Name); name != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.ReloadCatalog()
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// ReloadCatalog re-reads the catalog file and, when it is valid, swaps it in
// and notifies connected pages. An invalid file keeps the current catalog.
func (s *Server) ReloadCatalog() {
	cat, err := catalog.Load(s.catalogPath)
	if err == nil {
		err = cat.Validate()
	}
	if err != nil {
		s.logger.Error("catalog reload failed", slog.String("path", s.catalogPath), slog.String("error", err.Error()))
		return
	}

	s.service.SetCatalog(cat)
	s.notifier.Broadcast(notifier.Event{Topic: notifier.CatalogReloaded})
}
