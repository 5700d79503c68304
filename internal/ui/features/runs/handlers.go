package runs

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/internal/ui/features/layout"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
)

// pageLimit caps the rows on the history page.
const pageLimit = 200

// Handlers serves the run history.
type Handlers struct {
	service  *dashboard.Service
	notifier *notifier.Notifier
	isDev    bool
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *dashboard.Service, notify *notifier.Notifier, isDev bool, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{service: svc, notifier: notify, isDev: isDev, logger: logger}
}

// filterFromRequest reads entry, backend, failed and limit query parameters.
func filterFromRequest(r *http.Request) state.Filter {
	q := r.URL.Query()
	f := state.Filter{
		Entry:      strings.TrimSpace(q.Get("entry")),
		Backend:    q.Get("backend"),
		FailedOnly: q.Get("failed") == "1" || q.Get("failed") == "true",
		Limit:      pageLimit,
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 && n < pageLimit {
		f.Limit = n
	}
	return f
}

// HistoryPage renders the run history.
func (h *Handlers) HistoryPage(w http.ResponseWriter, r *http.Request) {
	f := filterFromRequest(r)
	runs, err := h.service.History(r.Context(), f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := layout.Page("Run history", "/history", h.isDev, HistoryPage(f, runs)).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HistoryUpdates re-renders the table after every completed run.
func (h *Handlers) HistoryUpdates(w http.ResponseWriter, r *http.Request) {
	f := filterFromRequest(r)
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-updates:
			if ev.Topic != notifier.RunCompleted {
				continue
			}
			runs, err := h.service.History(ctx, f)
			if err != nil {
				h.logger.Warn("failed to list runs", slog.String("error", err.Error()))
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElementTempl(RunTable(runs)); err != nil {
				return
			}
		}
	}
}
