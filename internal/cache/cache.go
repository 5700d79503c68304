// Package cache provides time-to-live memoization for query results.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the memoization window used when none is configured.
const DefaultTTL = 60 * time.Second

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Memo caches values by key for a fixed TTL. Eviction is time based only.
// Concurrent loads of the same key share one call to the loader.
type Memo[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
	group   singleflight.Group
}

// Option configures a Memo.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a Memo. A non-positive ttl disables caching.
func New[V any](ttl time.Duration, opts ...Option) *Memo[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Memo[V]{
		ttl:     ttl,
		now:     o.now,
		entries: make(map[string]entry[V]),
	}
}

// TTL returns the memoization window.
func (m *Memo[V]) TTL() time.Duration { return m.ttl }

// Get returns the cached value for key if it is still fresh.
func (m *Memo[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if m.now().Sub(e.storedAt) >= m.ttl {
		delete(m.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key.
func (m *Memo[V]) Set(key string, value V) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[key] = entry[V]{value: value, storedAt: m.now()}
	m.mu.Unlock()
}

// GetOrLoad returns the fresh cached value for key, or calls load and caches
// its result. Errors are never cached. The bool reports a cache hit.
//
// Callers that arrive while a load is in flight share it. The load runs
// detached from any one caller's cancellation, so a caller that goes away
// does not fail the others; each caller still stops waiting when its own ctx
// is done.
func (m *Memo[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, bool, error) {
	var zero V
	if v, ok := m.Get(key); ok {
		return v, true, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		m.Set(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}

// Purge drops expired entries and returns how many remain.
func (m *Memo[V]) Purge() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.entries {
		if now.Sub(e.storedAt) >= m.ttl {
			delete(m.entries, k)
		}
	}
	return len(m.entries)
}

// Clear drops every entry.
func (m *Memo[V]) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]entry[V])
	m.mu.Unlock()
}

// Key builds a canonical cache key from an operation kind and its arguments.
// Arguments are JSON encoded, so maps contribute their keys in sorted order
// and differing parameter values never collide.
func Key(kind string, args ...any) (string, error) {
	var b strings.Builder
	b.WriteString(kind)
	for _, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to encode cache key for %s: %w", kind, err)
		}
		b.WriteByte('|')
		b.Write(raw)
	}
	return b.String(), nil
}
