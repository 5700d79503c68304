// Package postgres provides a PostgreSQL adapter backed by pgx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/querydash/pkg/adapter"
)

// DefaultSchema is the schema used for unqualified table names.
const DefaultSchema = "public"

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
	target string
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Name returns the adapter type.
func (a *Adapter) Name() string {
	return "postgres"
}

// Placeholder returns $n binding.
func (a *Adapter) Placeholder() adapter.Placeholder {
	return adapter.Dollar
}

// Target identifies the server and database without credentials.
func (a *Adapter) Target() string {
	return a.target
}

// Connect establishes a connection pool to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := DSN(cfg)

	pgCfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("invalid postgres connection string: %w", err)
	}
	a.target = fmt.Sprintf("postgres://%s@%s:%d/%s", pgCfg.User, pgCfg.Host, pgCfg.Port, pgCfg.Database)

	a.Logger.Debug("connecting to postgres",
		slog.String("host", pgCfg.Host),
		slog.String("database", pgCfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// DSN returns the connection string for cfg: the normalized URI when one is
// configured, otherwise a key=value string built from the discrete fields.
func DSN(cfg adapter.Config) string {
	if cfg.URI != "" {
		return NormalizeURI(cfg.URI)
	}
	return buildPostgresDSN(cfg)
}

// NormalizeURI strips a SQLAlchemy driver suffix such as
// "postgresql+psycopg2://" so the URI is accepted by pgx.
func NormalizeURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if base, _, hasDriver := strings.Cut(scheme, "+"); hasDriver {
		scheme = base
	}
	return scheme + "://" + rest
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if tz, ok := cfg.Options["timezone"]; ok {
		dsn += fmt.Sprintf(" timezone=%s", tz)
	}

	return dsn
}

// ListTables returns the base tables of schema.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]string, error) {
	return a.ListTablesCommon(ctx, schema, adapter.Dollar)
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, DefaultSchema, adapter.Dollar)
}

// LoadCSV loads data from a CSV file into a table using COPY FROM STDIN.
// All columns are created as TEXT type for robustness.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	file, err := os.Open(absPath) //nolint:gosec // absPath is derived from user-provided filePath, which is expected
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	headers, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	if err := a.createTextTable(ctx, tableName, headers); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to reset file: %w", err)
	}

	if err := a.copyFromCSV(ctx, tableName, file); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}

	a.Logger.Debug("loaded csv", slog.String("table", tableName), slog.String("file", absPath))
	return nil
}

// createTextTable creates or replaces a table with all TEXT columns.
func (a *Adapter) createTextTable(ctx context.Context, tableName string, columns []string) error {
	if _, err := a.DB.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tableName)); err != nil {
		return err
	}

	colDefs := make([]string, 0, len(columns))
	for _, col := range columns {
		colDefs = append(colDefs, fmt.Sprintf("%s TEXT", sanitizeIdentifier(col)))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(colDefs, ", "))
	_, err := a.DB.ExecContext(ctx, createSQL)
	return err
}

// copyFromCSV streams the file through the pgx connection's COPY protocol.
func (a *Adapter) copyFromCSV(ctx context.Context, tableName string, r io.Reader) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		copySQL := fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT csv, HEADER true)", tableName)
		_, err := pgxConn.Conn().PgConn().CopyFrom(ctx, r, copySQL)
		return err
	})
}

// sanitizeIdentifier makes a column name safe for SQL.
func sanitizeIdentifier(name string) string {
	safe := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	safe = strings.ReplaceAll(safe, "-", "_")
	if strings.ContainsAny(safe, "()[]{}%") || isReservedWord(safe) {
		return adapter.QuoteIdentifier(safe)
	}
	return safe
}

// isReservedWord checks if a name is a PostgreSQL reserved word.
func isReservedWord(name string) bool {
	reserved := map[string]bool{
		"user": true, "order": true, "group": true, "table": true,
		"select": true, "from": true, "where": true, "index": true,
	}
	return reserved[strings.ToLower(name)]
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
