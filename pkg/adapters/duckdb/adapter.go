// Package duckdb provides a DuckDB adapter for running the dashboard
// catalog against a local file instead of a PostgreSQL server.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/querydash/pkg/adapter"
)

// DefaultSchema is the schema used for unqualified table names.
const DefaultSchema = "main"

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
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
	return "duckdb"
}

// Placeholder returns ? binding.
func (a *Adapter) Placeholder() adapter.Placeholder {
	return adapter.Question
}

// Target identifies the database file.
func (a *Adapter) Target() string {
	return "duckdb:" + dbPath(a.Cfg)
}

func dbPath(cfg adapter.Config) string {
	if cfg.Path == "" {
		return ":memory:"
	}
	return cfg.Path
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := dbPath(cfg)
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// SET is session scoped, so every statement must share one connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range buildSessionSQL(params) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	a.Logger.Debug("connected to duckdb",
		slog.String("path", path),
		slog.Int("extensions", len(params.Extensions)))

	return nil
}

// buildSessionSQL renders extension loading and settings in a stable order.
func buildSessionSQL(p *Params) []string {
	var stmts []string
	for _, ext := range p.Extensions {
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", k, strings.ReplaceAll(p.Settings[k], "'", "''")))
	}
	return stmts
}

// ListTables returns the base tables of schema.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]string, error) {
	return a.ListTablesCommon(ctx, schema, adapter.Question)
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, DefaultSchema, adapter.Question)
}

// LoadCSV loads data from a CSV file into a table.
// DuckDB will automatically infer the schema from the CSV file.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	query := fmt.Sprintf(
		"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto('%s', header=true)",
		tableName,
		strings.ReplaceAll(absPath, "'", "''"),
	)

	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}

	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
