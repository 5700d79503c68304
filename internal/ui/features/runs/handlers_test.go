package runs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/internal/testutil"
	"github.com/leapstack-labs/querydash/internal/ui/features"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
)

func seedRuns(t *testing.T, f *features.TestFixture) {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range []*state.Run{
		{Entry: "Open tickets", Backend: "relational", Role: "manager", Rows: 4, Duration: 12 * time.Millisecond, StartedAt: start},
		{Entry: "Sensor averages", Backend: "document", Role: "chef", Rows: 2, CacheHit: true, StartedAt: start.Add(time.Minute)},
		{Entry: "Open tickets", Backend: "relational", Role: "manager", ErrorKind: "query", Error: "relation does not exist", StartedAt: start.Add(2 * time.Minute)},
	} {
		require.NoError(t, f.History.RecordRun(ctx, r))
	}
}

func TestFilterFromRequest(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want state.Filter
	}{
		{"empty", "/history", state.Filter{Limit: pageLimit}},
		{"all fields", "/history?entry=+Open+tickets+&backend=relational&failed=1&limit=5",
			state.Filter{Entry: "Open tickets", Backend: "relational", FailedOnly: true, Limit: 5}},
		{"failed true", "/history?failed=true", state.Filter{FailedOnly: true, Limit: pageLimit}},
		{"limit above cap", "/history?limit=5000", state.Filter{Limit: pageLimit}},
		{"bad limit", "/history?limit=x", state.Filter{Limit: pageLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterFromRequest(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHistoryPage(t *testing.T) {
	f := features.SetupTestFixture(t)
	seedRuns(t, f)
	h := NewHandlers(f.Service, f.Notifier, false, testutil.NewTestLogger(t))

	w := httptest.NewRecorder()
	h.HistoryPage(w, httptest.NewRequest(http.MethodGet, "/history", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Run history")
	assert.Contains(t, body, "Sensor averages")
	assert.Contains(t, body, "query: relation does not exist")
	assert.Contains(t, body, "@get('/history/updates?')")
}

func TestHistoryPage_Filtered(t *testing.T) {
	f := features.SetupTestFixture(t)
	seedRuns(t, f)
	h := NewHandlers(f.Service, f.Notifier, false, nil)

	w := httptest.NewRecorder()
	h.HistoryPage(w, httptest.NewRequest(http.MethodGet, "/history?backend=document", nil))

	body := w.Body.String()
	assert.Contains(t, body, "Sensor averages")
	assert.NotContains(t, body, "<td>Open tickets</td>")
	assert.Contains(t, body, `<option value="document" selected>`)
	assert.Contains(t, body, "backend=document")

	w = httptest.NewRecorder()
	h.HistoryPage(w, httptest.NewRequest(http.MethodGet, "/history?entry=nothing", nil))
	assert.Contains(t, w.Body.String(), "No runs match.")
}

func TestHistoryUpdates_PatchesTableOnRun(t *testing.T) {
	f := features.SetupTestFixture(t)
	h := NewHandlers(f.Service, f.Notifier, false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/history/updates", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.HistoryUpdates(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.Notifier.Listeners() == 1 }, time.Second, 5*time.Millisecond)
	seedRuns(t, f)
	f.Notifier.Broadcast(notifier.Event{Topic: notifier.RunCompleted, Entry: "Open tickets"})

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, `id="run-table"`)
	assert.Contains(t, body, "Sensor averages")
}
