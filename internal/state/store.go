// Package state records query executions in a local SQLite database so the
// dashboard and the history command can show recent runs.
package state

import (
	"context"
	"time"
)

// Run is one executed catalog entry.
type Run struct {
	ID      string
	Entry   string
	Backend string
	Role    string
	// Params holds the bound parameter values.
	Params    map[string]any
	Rows      int
	CacheHit  bool
	Duration  time.Duration
	ErrorKind string
	Error     string
	StartedAt time.Time
}

// Succeeded reports whether the run produced a result.
func (r *Run) Succeeded() bool {
	return r.Error == ""
}

// Filter narrows ListRuns.
type Filter struct {
	Entry   string
	Backend string
	// FailedOnly keeps runs that returned an error.
	FailedOnly bool
	Limit      int
}

// Store persists run history.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, f Filter) ([]*Run, error)
	PruneRuns(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
