// Package backend holds the process-lifetime connections the dashboard
// shares across interactions: one relational adapter per DSN and one Mongo
// client per URI.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/querydash/internal/cache"
	"github.com/leapstack-labs/querydash/internal/query"
	"github.com/leapstack-labs/querydash/pkg/adapter"
)

// DefaultSelectionTimeout bounds Mongo server selection on first use.
const DefaultSelectionTimeout = 5 * time.Second

// RelationalOpener opens and connects a relational adapter.
type RelationalOpener func(ctx context.Context, cfg adapter.Config, logger *slog.Logger) (adapter.Adapter, error)

// MongoConnector creates a connected Mongo client.
type MongoConnector func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error)

// Pool caches backend connections by identity. Safe for concurrent use.
// The mutex guards the maps only; dials run outside it, one per identity,
// so a slow deployment never holds up lookups of another.
type Pool struct {
	mu         sync.Mutex
	relational map[string]adapter.Adapter
	documents  map[string]*mongo.Client
	dials      singleflight.Group

	openRelational RelationalOpener
	connectMongo   MongoConnector
	timeout        time.Duration
	logger         *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithRelationalOpener replaces adapter.Open.
func WithRelationalOpener(fn RelationalOpener) Option {
	return func(p *Pool) { p.openRelational = fn }
}

// WithMongoConnector replaces ConnectMongo.
func WithMongoConnector(fn MongoConnector) Option {
	return func(p *Pool) { p.connectMongo = fn }
}

// WithSelectionTimeout sets the Mongo server selection timeout.
func WithSelectionTimeout(d time.Duration) Option {
	return func(p *Pool) { p.timeout = d }
}

// NewPool creates an empty pool.
// If logger is nil, a discard logger is used.
func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Pool{
		relational:     make(map[string]adapter.Adapter),
		documents:      make(map[string]*mongo.Client),
		openRelational: adapter.Open,
		connectMongo:   ConnectMongo,
		timeout:        DefaultSelectionTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Relational returns the connected adapter for cfg, opening it on first use.
// Failures are returned as *query.ConnectionError and are not cached.
func (p *Pool) Relational(ctx context.Context, cfg adapter.Config) (adapter.Adapter, error) {
	key, err := cache.Key("relational", cfg)
	if err != nil {
		return nil, err
	}
	if a, ok := p.cachedRelational(key); ok {
		return a, nil
	}

	v, err, _ := p.dials.Do(key, func() (any, error) {
		if a, ok := p.cachedRelational(key); ok {
			return a, nil
		}

		a, err := p.openRelational(ctx, cfg, p.logger)
		if err != nil {
			var unknown *adapter.UnknownAdapterError
			if errors.As(err, &unknown) {
				return nil, err
			}
			return nil, &query.ConnectionError{Backend: cfg.Type, Err: err}
		}

		p.logger.Info("relational backend connected",
			slog.String("type", a.Name()),
			slog.String("target", a.Target()))

		p.mu.Lock()
		p.relational[key] = a
		p.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(adapter.Adapter), nil
}

func (p *Pool) cachedRelational(key string) (adapter.Adapter, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.relational[key]
	return a, ok
}

// Document returns the Mongo client for uri, connecting on first use.
// Failures are returned as *query.ConnectionError and are not cached.
func (p *Pool) Document(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, &query.ConnectionError{Backend: "mongo", Err: errors.New("no document store URI configured")}
	}
	if c, ok := p.cachedDocument(uri); ok {
		return c, nil
	}

	v, err, _ := p.dials.Do("document|"+uri, func() (any, error) {
		if c, ok := p.cachedDocument(uri); ok {
			return c, nil
		}

		c, err := p.connectMongo(ctx, uri, p.timeout)
		if err != nil {
			return nil, &query.ConnectionError{Backend: "mongo", Err: err}
		}

		p.logger.Info("document backend connected")
		p.mu.Lock()
		p.documents[uri] = c
		p.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

func (p *Pool) cachedDocument(uri string) (*mongo.Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.documents[uri]
	return c, ok
}

// Len returns the number of open relational and document connections.
func (p *Pool) Len() (relational, document int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.relational), len(p.documents)
}

// CloseAll closes every connection and empties the pool.
func (p *Pool) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for key, a := range p.relational {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", a.Name(), err))
		}
		delete(p.relational, key)
	}
	for uri, c := range p.documents {
		if c != nil {
			if err := c.Disconnect(ctx); err != nil {
				errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
			}
		}
		delete(p.documents, uri)
	}
	return errors.Join(errs...)
}

// ConnectMongo creates a client for uri and verifies it with a ping so that
// an unreachable deployment fails here instead of on the first aggregation.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}
