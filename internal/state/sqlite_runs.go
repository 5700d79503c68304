package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultListLimit bounds ListRuns when the filter sets no limit.
const DefaultListLimit = 50

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, entry, backend, role, params, row_count, cache_hit, duration_us, error_kind, error, started_at`

// RecordRun inserts run, assigning an ID and start time when unset.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if run.ID == "" {
		run.ID = generateID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	params := []byte("{}")
	if len(run.Params) > 0 {
		var err error
		if params, err = json.Marshal(run.Params); err != nil {
			return fmt.Errorf("failed to encode run params: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Entry, run.Backend, run.Role, string(params), run.Rows,
		boolToInt(run.CacheHit), run.Duration.Microseconds(), run.ErrorKind, run.Error,
		run.StartedAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	s.logger.Debug("run recorded",
		slog.String("id", run.ID),
		slog.String("entry", run.Entry),
		slog.Bool("failed", !run.Succeeded()))
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, f Filter) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var (
		where []string
		args  []any
	)
	if f.Entry != "" {
		where = append(where, "entry = ?")
		args = append(args, f.Entry)
	}
	if f.Backend != "" {
		where = append(where, "backend = ?")
		args = append(args, f.Backend)
	}
	if f.FailedOnly {
		where = append(where, "error != ''")
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// PruneRuns deletes runs started before the cutoff and returns how many were
// removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, before time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, before.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run       Run
		params    string
		cacheHit  int64
		durationU int64
		startedU  int64
	)
	err := sc.Scan(&run.ID, &run.Entry, &run.Backend, &run.Role, &params, &run.Rows,
		&cacheHit, &durationU, &run.ErrorKind, &run.Error, &startedU)
	if err != nil {
		return nil, err
	}

	if params != "" && params != "{}" {
		if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
			return nil, fmt.Errorf("failed to decode run params: %w", err)
		}
	}
	run.CacheHit = cacheHit != 0
	run.Duration = time.Duration(durationU) * time.Microsecond
	run.StartedAt = time.UnixMicro(startedU).UTC()
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
