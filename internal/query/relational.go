package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/leapstack-labs/querydash/internal/cache"
)

// RelationalExecutor runs parameterized SQL against a pooled *sql.DB.
type RelationalExecutor struct {
	db       *sql.DB
	target   string
	backend  string
	style    PlaceholderStyle
	memo     *cache.Memo[*Result]
	logger   *slog.Logger
	stmtTime time.Duration
}

// RelationalConfig configures a RelationalExecutor.
type RelationalConfig struct {
	// DB is the connection pool. Each execution takes one scoped connection.
	DB *sql.DB
	// Target identifies the database in cache keys (for example the DSN
	// without credentials), so two databases never share results.
	Target string
	// Backend names the backend in errors ("postgres", "duckdb").
	Backend string
	Style   PlaceholderStyle
	// Memo caches results; nil disables caching.
	Memo *cache.Memo[*Result]
	// Timeout bounds one execution; zero means no bound beyond ctx.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRelationalExecutor creates an executor over cfg.DB.
func NewRelationalExecutor(cfg RelationalConfig) *RelationalExecutor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	backend := cfg.Backend
	if backend == "" {
		backend = "postgres"
	}
	return &RelationalExecutor{
		db:       cfg.DB,
		target:   cfg.Target,
		backend:  backend,
		style:    cfg.Style,
		memo:     cfg.Memo,
		logger:   logger,
		stmtTime: cfg.Timeout,
	}
}

// Execute binds params into queryText and runs it. queryText is final: schema
// qualification must already have happened. The bool reports a cache hit.
func (e *RelationalExecutor) Execute(ctx context.Context, queryText string, params Params) (*Result, bool, error) {
	stmt, args, err := Bind(queryText, params, e.style)
	if err != nil {
		return nil, false, err
	}

	if e.memo == nil {
		res, err := e.run(ctx, stmt, args)
		return res, false, err
	}

	key, err := cache.Key("relational", e.target, queryText, map[string]any(params))
	if err != nil {
		return nil, false, err
	}
	return e.memo.GetOrLoad(ctx, key, func(ctx context.Context) (*Result, error) {
		return e.run(ctx, stmt, args)
	})
}

func (e *RelationalExecutor) run(ctx context.Context, stmt string, args []any) (*Result, error) {
	if e.db == nil {
		return nil, &ConnectionError{Backend: e.backend, Err: errors.New("database connection not established")}
	}
	if e.stmtTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.stmtTime)
		defer cancel()
	}

	start := time.Now()

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Backend: e.backend, Err: err}
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, e.classify(err)
	}
	defer func() { _ = rows.Close() }()

	res, err := scanRows(rows)
	if err != nil {
		return nil, e.classify(err)
	}
	res.Elapsed = time.Since(start)

	e.logger.Debug("relational query executed",
		slog.String("backend", e.backend),
		slog.Int("rows", len(res.Rows)),
		slog.Duration("elapsed", res.Elapsed))

	return res, nil
}

// classify maps a driver error to ConnectionError or QueryError.
func (e *RelationalExecutor) classify(err error) error {
	if IsConnectionFailure(err) {
		return &ConnectionError{Backend: e.backend, Err: err}
	}
	return &QueryError{Backend: e.backend, Err: err}
}

// IsConnectionFailure reports whether err means the database could not be
// reached or refused the credentials, as opposed to rejecting a statement.
func IsConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. Class 28: invalid authorization.
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "28")
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
