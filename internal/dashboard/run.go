package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/chart"
	"github.com/leapstack-labs/querydash/internal/query"
	"github.com/leapstack-labs/querydash/internal/state"
)

// UnknownEntryError is returned when a request names no catalog entry.
type UnknownEntryError struct {
	Backend catalog.Backend
	Name    string
}

func (e *UnknownEntryError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("unknown catalog entry %q", e.Name)
	}
	return fmt.Sprintf("unknown %s catalog entry %q", e.Backend, e.Name)
}

// Request selects one entry to run.
type Request struct {
	// Backend restricts the lookup; empty searches both backends.
	Backend catalog.Backend
	Entry   string
	// Role is recorded with the run. It is a view filter, not a permission.
	Role string
	// Params is the full parameter context; only the entry's declared
	// parameters are passed to the executor.
	Params query.Params
}

// Outcome is a successful execution.
type Outcome struct {
	Entry    catalog.Entry
	Result   *query.Result
	Params   query.Params
	CacheHit bool
	// Query is the statement or pipeline that ran, for display.
	Query   string
	Elapsed time.Duration
}

// View is an outcome rendered for the dashboard.
type View struct {
	*Outcome
	Rendered *chart.Rendered
}

// Lookup resolves the entry named by req.
func (s *Service) Lookup(req Request) (catalog.Entry, error) {
	cat := s.Catalog()
	var (
		e  catalog.Entry
		ok bool
	)
	if req.Backend == "" {
		e, ok = cat.Lookup(req.Entry)
	} else {
		e, ok = cat.LookupIn(req.Backend, req.Entry)
	}
	if !ok {
		return catalog.Entry{}, &UnknownEntryError{Backend: req.Backend, Name: req.Entry}
	}
	return e, nil
}

// Run executes the requested entry and records it in the history.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	out, err := s.execute(ctx, req)
	s.record(ctx, req, out, err)
	return out, err
}

// Show executes the requested entry and renders it with the entry's chart.
// A render failure is recorded like an execution failure.
func (s *Service) Show(ctx context.Context, req Request, opts chart.Options) (*View, error) {
	out, err := s.execute(ctx, req)
	if err != nil {
		s.record(ctx, req, out, err)
		return nil, err
	}

	if opts.Title == "" {
		opts.Title = out.Entry.Name
	}
	rendered, err := chart.Render(out.Result, out.Entry.Chart, opts)
	s.record(ctx, req, out, err)
	if err != nil {
		return nil, err
	}
	return &View{Outcome: out, Rendered: rendered}, nil
}

func (s *Service) execute(ctx context.Context, req Request) (*Outcome, error) {
	entry, err := s.Lookup(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out := &Outcome{Entry: entry}

	switch entry.Backend {
	case catalog.Relational:
		params, err := req.Params.Select(entry.Params)
		if err != nil {
			return out, err
		}
		out.Params = params
		out.Query = s.Preview(entry)

		runner, err := s.relational(ctx)
		if err != nil {
			return out, err
		}
		out.Result, out.CacheHit, err = runner.Execute(ctx, out.Query, params)
		if err != nil {
			return out, err
		}

	case catalog.Document:
		out.Query = s.Preview(entry)

		runner, err := s.document(ctx)
		if err != nil {
			return out, err
		}
		out.Result, out.CacheHit, err = runner.Execute(ctx, s.cfg.DocumentDatabase, entry.Collection, entry.Pipeline)
		if err != nil {
			return out, err
		}

	default:
		return out, fmt.Errorf("entry %q has unsupported backend %q", entry.Name, entry.Backend)
	}

	out.Elapsed = time.Since(start)
	s.logger.Info("entry executed",
		slog.String("entry", entry.Name),
		slog.String("backend", string(entry.Backend)),
		slog.Int("rows", len(out.Result.Rows)),
		slog.Bool("cache_hit", out.CacheHit),
		slog.Duration("elapsed", out.Elapsed))
	return out, nil
}

// Preview returns the text an entry runs against the configured schema.
func (s *Service) Preview(entry catalog.Entry) string {
	return QueryText(entry, s.cfg.Schema)
}

// QueryText returns the text an entry runs: qualified SQL, or the pipeline
// as relaxed extended JSON in shell syntax.
func QueryText(entry catalog.Entry, schema string) string {
	if entry.Backend == catalog.Relational {
		return catalog.Qualify(entry.SQL, schema)
	}

	stages := make([]string, 0, len(entry.Pipeline))
	for _, stage := range entry.Pipeline {
		raw, err := bson.MarshalExtJSON(stage, false, false)
		if err != nil {
			stages = append(stages, fmt.Sprintf("<unencodable stage: %v>", err))
			continue
		}
		stages = append(stages, "  "+string(raw))
	}
	return fmt.Sprintf("db.%s.aggregate([\n%s\n])", entry.Collection, strings.Join(stages, ",\n"))
}

func (s *Service) record(ctx context.Context, req Request, out *Outcome, runErr error) {
	run := &state.Run{
		Entry:   req.Entry,
		Backend: string(req.Backend),
		Role:    req.Role,
	}
	if out != nil {
		run.Backend = string(out.Entry.Backend)
		run.Params = paramsForHistory(out.Params)
		run.CacheHit = out.CacheHit
		run.Duration = out.Elapsed
		if out.Result != nil {
			run.Rows = len(out.Result.Rows)
		}
	}
	if runErr != nil {
		run.Error = runErr.Error()
		run.ErrorKind = string(query.KindOf(runErr))
		s.logger.Warn("entry failed",
			slog.String("entry", req.Entry),
			slog.String("kind", run.ErrorKind),
			slog.String("error", run.Error))
	}

	if s.history != nil {
		if err := s.history.RecordRun(ctx, run); err != nil {
			s.logger.Warn("failed to record run", slog.String("error", err.Error()))
		}
	}
	s.mu.RLock()
	hooks := s.onRun
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(run)
	}
}

func paramsForHistory(p query.Params) map[string]any {
	if len(p) == 0 {
		return nil
	}
	// Round-trip through JSON so stored values match what GetRun returns.
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// History returns the most recent runs, newest first.
func (s *Service) History(ctx context.Context, f state.Filter) ([]*state.Run, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListRuns(ctx, f)
}
