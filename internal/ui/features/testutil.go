// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/leapstack-labs/querydash/internal/cache"
	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/query"
	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/internal/testutil"
	"github.com/leapstack-labs/querydash/internal/ui/notifier"
)

// TestCatalog is a small catalog covering both backends and every role case.
const TestCatalog = `
params:
  - name: restaurant_id
    kind: int
    default: 1
    min: 1
    label: Restaurant
relational:
  - name: Orders by restaurant
    tags: [manager]
    params: [restaurant_id]
    chart: {type: table}
    sql: SELECT order_id, total FROM {S}.orders WHERE restaurant_id = :restaurant_id
  - name: Open tickets
    chart: {type: bar, x: station, y: open}
    sql: SELECT station, open FROM {S}.tickets
  - name: Chef queue
    tags: [chef]
    sql: SELECT dish FROM {S}.queue
document:
  - name: Sensor averages
    collection: sensor
    pipeline:
      - $group: {_id: $meta.sensor_id, avg: {$avg: $value}}
`

// FakeDocuments is a DocumentRunner returning a fixed result.
type FakeDocuments struct {
	Result *query.Result
	Err    error
	Calls  int
}

// Execute implements dashboard.DocumentRunner.
func (f *FakeDocuments) Execute(context.Context, string, string, []bson.D) (*query.Result, bool, error) {
	f.Calls++
	return f.Result, false, f.Err
}

type staticInspector struct{}

func (staticInspector) Inspect(_ context.Context, _, database string) (*dashboard.DocumentStats, error) {
	return &dashboard.DocumentStats{Database: database, Collections: 2, Documents: 42, ServerVersion: "7.0.0"}, nil
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Service      *dashboard.Service
	Mock         sqlmock.Sqlmock
	Documents    *FakeDocuments
	History      *state.SQLiteStore
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates a service over TestCatalog. Relational entries run
// against sqlmock, document entries against FakeDocuments, and runs are
// recorded in an in-memory history store.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)

	cat, err := catalog.Parse([]byte(TestCatalog), "test.yaml")
	require.NoError(t, err)
	require.NoError(t, cat.Validate())

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	history := state.NewSQLiteStore(logger)
	require.NoError(t, history.Open(":memory:"))
	t.Cleanup(func() { _ = history.Close() })

	docs := &FakeDocuments{Result: &query.Result{
		Columns: []string{"_id", "avg"},
		Rows:    []query.Row{{"_id": "s1", "avg": 4.5}},
	}}

	exec := query.NewRelationalExecutor(query.RelationalConfig{
		DB:      db,
		Target:  "mock",
		Backend: "postgres",
		Memo:    cache.New[*query.Result](cache.DefaultTTL),
		Logger:  logger,
	})

	svc, err := dashboard.New(cat, dashboard.Config{
		Schema:           "smart_kitchen",
		DocumentEnabled:  true,
		DocumentDatabase: "restaurant",
	}, logger,
		dashboard.WithRelationalRunner(exec),
		dashboard.WithDocumentRunner(docs),
		dashboard.WithInspector(staticInspector{}),
		dashboard.WithHistory(history),
	)
	require.NoError(t, err)

	return &TestFixture{
		Service:      svc,
		Mock:         mock,
		Documents:    docs,
		History:      history,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
	}
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// RequestWithTimeout wraps a request with a context timeout. The cancel func
// is registered with t.Cleanup.
func RequestWithTimeout(t *testing.T, r *http.Request, timeout time.Duration) *http.Request {
	t.Helper()
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	t.Cleanup(cancel)
	return r.WithContext(ctx)
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
