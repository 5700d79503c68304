// Package dashboard ties the catalog, the executors and the chart dispatcher
// together. The web UI, the CLI and the terminal browser all drive the same
// Service, so an interaction behaves the same whichever surface starts it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/leapstack-labs/querydash/internal/backend"
	"github.com/leapstack-labs/querydash/internal/cache"
	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/query"
	"github.com/leapstack-labs/querydash/internal/state"
	"github.com/leapstack-labs/querydash/pkg/adapter"
)

// Config is the backend configuration the service runs against.
type Config struct {
	Relational adapter.Config
	// Schema replaces the "{S}." placeholder in relational queries.
	Schema string

	DocumentEnabled  bool
	DocumentURI      string
	DocumentDatabase string

	CacheTTL     time.Duration
	QueryTimeout time.Duration
}

// RelationalRunner executes final SQL text with bound parameters.
type RelationalRunner interface {
	Execute(ctx context.Context, text string, params query.Params) (*query.Result, bool, error)
}

// DocumentRunner executes an aggregation pipeline.
type DocumentRunner interface {
	Execute(ctx context.Context, database, collection string, stages []bson.D) (*query.Result, bool, error)
}

// Service runs catalog entries. Safe for concurrent use.
type Service struct {
	mu  sync.RWMutex
	cat *catalog.Catalog

	cfg       Config
	pool      *backend.Pool
	memo      *cache.Memo[*query.Result]
	history   state.Store
	inspector DocumentInspector
	logger    *slog.Logger
	onRun     []func(*state.Run)

	relational func(ctx context.Context) (RelationalRunner, error)
	document   func(ctx context.Context) (DocumentRunner, error)
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every run in store.
func WithHistory(store state.Store) Option {
	return func(s *Service) { s.history = store }
}

// WithPool shares a backend pool instead of creating one.
func WithPool(p *backend.Pool) Option {
	return func(s *Service) { s.pool = p }
}

// WithRelationalRunner bypasses the pool for relational entries.
func WithRelationalRunner(r RelationalRunner) Option {
	return func(s *Service) {
		s.relational = func(context.Context) (RelationalRunner, error) { return r, nil }
	}
}

// WithDocumentRunner bypasses the pool for document entries.
func WithDocumentRunner(r DocumentRunner) Option {
	return func(s *Service) {
		s.document = func(context.Context) (DocumentRunner, error) { return r, nil }
	}
}

// WithInspector replaces the Mongo statistics reader used by Overview.
func WithInspector(i DocumentInspector) Option {
	return func(s *Service) { s.inspector = i }
}

// OnRun registers a callback invoked after every recorded run.
func OnRun(fn func(*state.Run)) Option {
	return func(s *Service) { s.onRun = append(s.onRun, fn) }
}

// New creates a Service over cat.
// If logger is nil, a discard logger is used.
func New(cat *catalog.Catalog, cfg Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cat == nil {
		return nil, errors.New("catalog is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Schema == "" {
		cfg.Schema = catalog.DefaultSchema
	}
	if !catalog.ValidSchema(cfg.Schema) {
		return nil, fmt.Errorf("invalid schema name %q", cfg.Schema)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	s := &Service{
		cat:    cat,
		cfg:    cfg,
		memo:   cache.New[*query.Result](cfg.CacheTTL),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = backend.NewPool(logger)
	}
	if s.relational == nil {
		s.relational = s.poolRelational
	}
	if s.document == nil {
		s.document = s.poolDocument
	}
	if s.inspector == nil {
		s.inspector = mongoInspector{pool: s.pool}
	}
	return s, nil
}

// AddRunHook registers fn to be called after every recorded run.
func (s *Service) AddRunHook(fn func(*state.Run)) {
	s.mu.Lock()
	s.onRun = append(s.onRun, fn)
	s.mu.Unlock()
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Catalog returns the current catalog.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cat
}

// SetCatalog swaps in a reloaded catalog. Cached results stay valid because
// they are keyed on query text.
func (s *Service) SetCatalog(cat *catalog.Catalog) {
	s.mu.Lock()
	s.cat = cat
	s.mu.Unlock()
	s.logger.Info("catalog replaced", slog.Int("entries", cat.Len()), slog.String("source", cat.Source))
}

// Entries returns the entries of backend visible to role, in catalog order.
// Document entries are untagged and therefore visible to every role.
func (s *Service) Entries(b catalog.Backend, role string) []catalog.Entry {
	return catalog.FilterByRole(s.Catalog().Entries(b), role)
}

// DocumentEnabled reports whether document entries can run.
func (s *Service) DocumentEnabled() bool {
	return s.cfg.DocumentEnabled
}

// Close releases pooled connections.
func (s *Service) Close(ctx context.Context) error {
	return s.pool.CloseAll(ctx)
}

// ClearCache drops every memoized result.
func (s *Service) ClearCache() {
	s.memo.Clear()
}

func (s *Service) poolRelational(ctx context.Context) (RelationalRunner, error) {
	a, err := s.pool.Relational(ctx, s.cfg.Relational)
	if err != nil {
		return nil, err
	}
	style := query.DollarStyle
	if a.Placeholder() == adapter.Question {
		style = query.QuestionStyle
	}
	return query.NewRelationalExecutor(query.RelationalConfig{
		DB:      a.Pool(),
		Target:  a.Target(),
		Backend: a.Name(),
		Style:   style,
		Memo:    s.memo,
		Timeout: s.cfg.QueryTimeout,
		Logger:  s.logger,
	}), nil
}

func (s *Service) poolDocument(ctx context.Context) (DocumentRunner, error) {
	if !s.cfg.DocumentEnabled {
		return nil, &query.ConnectionError{Backend: "mongo", Err: errors.New("document backend disabled")}
	}
	client, err := s.pool.Document(ctx, s.cfg.DocumentURI)
	if err != nil {
		return nil, err
	}
	return query.NewDocumentExecutor(query.DocumentConfig{
		Aggregator: query.MongoAggregator{Client: client},
		Target:     s.cfg.DocumentURI,
		Memo:       s.memo,
		Timeout:    s.cfg.QueryTimeout,
		Logger:     s.logger,
	}), nil
}
