package home

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/chart"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/query"
	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/internal/ui/features/layout"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
)

// Handlers provides HTTP handlers for the dashboard page.
type Handlers struct {
	service      *dashboard.Service
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	defaultRole  string
	isDev        bool
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *dashboard.Service, sessionStore sessions.Store, notify *notifier.Notifier, defaultRole string, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if !catalog.KnownRole(defaultRole) {
		defaultRole = catalog.RoleAll
	}
	return &Handlers{
		service:      svc,
		sessionStore: sessionStore,
		notifier:     notify,
		defaultRole:  defaultRole,
		isDev:        isDev,
		logger:       logger,
	}
}

// HomePage renders the dashboard with full content. With auto-run enabled
// the selected entries are executed as part of the render.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	data := h.buildPageData(r.Context(), loadSelection(h.sessionStore, r), true)

	if err := layout.Page("Dashboard", "/", h.isDev, AppShell(data)).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Select stores the role, parameters and auto-run toggle in the session and
// re-renders both panels.
func (h *Handlers) Select(w http.ResponseWriter, r *http.Request) {
	// Read signals before creating the SSE (the SSE consumes the request body).
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}

	sel, _, _ := normalize(h.service, selectionFromSignals(signals), h.defaultRole)
	if err := saveSelection(h.sessionStore, w, r, sel); err != nil {
		h.logger.Warn("failed to save session", slog.String("error", err.Error()))
	}

	sse := datastar.NewSSE(w, r)
	data := h.buildPageData(r.Context(), sel, sel.AutoRun)

	if err := sse.MarshalAndPatchSignals(sel.signals()); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	for _, c := range []templ.Component{Panel(data.Relational), Panel(data.Document)} {
		if err := sse.PatchElementTempl(c); err != nil {
			_ = sse.ConsoleError(err)
			return
		}
	}
}

// RunRelational executes the selected relational entry.
func (h *Handlers) RunRelational(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, catalog.Relational)
}

// RunDocument executes the selected document entry.
func (h *Handlers) RunDocument(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, catalog.Document)
}

func (h *Handlers) run(w http.ResponseWriter, r *http.Request, backend catalog.Backend) {
	var signals Signals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}

	sse := datastar.NewSSE(w, r)
	sel, params, err := normalize(h.service, selectionFromSignals(signals), h.defaultRole)
	if err := sse.PatchElementTempl(h.execute(r.Context(), backend, sel, params, err)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// execute runs the panel's entry and returns the result container. Errors
// are rendered inline so the page stays usable.
func (h *Handlers) execute(ctx context.Context, backend catalog.Backend, sel Selection, params query.Params, paramErr error) templ.Component {
	id, entry := pgResultID, sel.PgEntry
	if backend == catalog.Document {
		id, entry = mongoResID, sel.MongoEntry
	}

	if paramErr != nil {
		return layout.ErrorBox(id, errorPrefix(h.service, backend)+paramErr.Error())
	}
	if entry == "" {
		return layout.ErrorBox(id, "No query selected.")
	}

	view, err := h.service.Show(ctx, dashboard.Request{
		Backend: backend,
		Entry:   entry,
		Role:    sel.Role,
		Params:  params,
	}, chart.Options{})
	if err != nil {
		return layout.ErrorBox(id, errorPrefix(h.service, backend)+err.Error())
	}
	return ResultView(id, view)
}

func errorPrefix(svc *dashboard.Service, backend catalog.Backend) string {
	if backend == catalog.Document {
		return "MongoDB error: "
	}
	if svc.Config().Relational.Type == "duckdb" {
		return "DuckDB error: "
	}
	return "Postgres error: "
}

// HomePageUpdates is the long-lived SSE endpoint for the dashboard page.
// A catalog reload re-renders the panels for this session's selection; a
// completed run refreshes the recent-runs list.
func (h *Handlers) HomePageUpdates(w http.ResponseWriter, r *http.Request) {
	sel := loadSelection(h.sessionStore, r)
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-updates:
			if err := h.sendUpdate(ctx, sse, sel, ev); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

func (h *Handlers) sendUpdate(ctx context.Context, sse *datastar.ServerSentEventGenerator, sel Selection, ev notifier.Event) error {
	switch ev.Topic {
	case notifier.CatalogReloaded:
		sel, _, _ = normalize(h.service, sel, h.defaultRole)
		data := h.buildPageData(ctx, sel, false)
		if err := sse.PatchElementTempl(Panel(data.Relational)); err != nil {
			return err
		}
		return sse.PatchElementTempl(Panel(data.Document))
	case notifier.RunCompleted:
		runs, err := h.service.History(ctx, state.Filter{Limit: recentRunLimit})
		if err != nil {
			return err
		}
		return sse.PatchElementTempl(RecentRuns(runs))
	}
	return nil
}

// buildPageData resolves sel against the current catalog and assembles the
// page. withRuns executes the selected entries when auto-run is on.
func (h *Handlers) buildPageData(ctx context.Context, sel Selection, withRuns bool) PageData {
	sel, params, paramErr := normalize(h.service, sel, h.defaultRole)
	cat := h.service.Catalog()

	data := PageData{
		Selection: sel,
		ParamDefs: cat.Params,
		Relational: h.panel(catalog.Relational, sel, PanelData{
			ID:       pgPanelID,
			ResultID: pgResultID,
			Title:    "Relational queries",
			Signal:   "pg-entry",
			RunPath:  "/api/relational/run",
			Selected: sel.PgEntry,
		}),
		Document: h.panel(catalog.Document, sel, PanelData{
			ID:       mongoPanelID,
			ResultID: mongoResID,
			Title:    "MongoDB queries",
			Signal:   "mongo-entry",
			RunPath:  "/api/document/run",
			Selected: sel.MongoEntry,
		}),
	}
	if paramErr != nil {
		data.Warning = paramErr.Error()
	}
	if !h.service.DocumentEnabled() {
		data.Document.Disabled = "The document backend is disabled in the configuration."
	}

	if withRuns && sel.AutoRun {
		data.Relational.Result = h.execute(ctx, catalog.Relational, sel, params, paramErr)
		if h.service.DocumentEnabled() {
			data.Document.Result = h.execute(ctx, catalog.Document, sel, params, paramErr)
		}
	}

	// Only full page loads pay for the overview.
	if withRuns {
		data.Overview = h.service.Overview(ctx)
	}

	runs, err := h.service.History(ctx, state.Filter{Limit: recentRunLimit})
	if err != nil {
		h.logger.Warn("failed to list runs", slog.String("error", err.Error()))
	}
	data.Runs = runs
	return data
}

func (h *Handlers) panel(backend catalog.Backend, sel Selection, p PanelData) PanelData {
	p.Backend = backend
	p.Entries = h.service.Entries(backend, sel.Role)
	if e, err := h.service.Lookup(dashboard.Request{Backend: backend, Entry: p.Selected}); err == nil {
		p.Query = h.service.Preview(e)
	} else {
		var unknown *dashboard.UnknownEntryError
		if !errors.As(err, &unknown) {
			h.logger.Debug("entry lookup failed", slog.String("error", err.Error()))
		}
	}
	return p
}
