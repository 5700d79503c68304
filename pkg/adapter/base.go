package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Pool and catalog queries.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Pool returns the connection pool.
func (b *BaseSQLAdapter) Pool() *sql.DB {
	return b.DB
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Version returns the result of SELECT version().
func (b *BaseSQLAdapter) Version(ctx context.Context) (string, error) {
	if b.DB == nil {
		return "", fmt.Errorf("database connection not established")
	}
	var v string
	if err := b.DB.QueryRowContext(ctx, "SELECT version()").Scan(&v); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	return v, nil
}

// EnsureSchema runs CREATE SCHEMA IF NOT EXISTS.
func (b *BaseSQLAdapter) EnsureSchema(ctx context.Context, schema string) error {
	return b.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+QuoteIdentifier(schema))
}

// ParseQualifiedName splits a table reference into schema and name, using
// defaultSchema when the reference is unqualified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return defaultSchema, table
}

// QuoteIdentifier double-quotes an identifier, doubling embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// FormatPlaceholder renders the n-th (1-based) bind placeholder.
func FormatPlaceholder(p Placeholder, n int) string {
	if p == Question {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// ListTablesCommon lists base tables in schema from information_schema.
func (b *BaseSQLAdapter) ListTablesCommon(ctx context.Context, schema string, p Placeholder) ([]string, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	//nolint:gosec // The placeholder is either ? or $1.
	query := fmt.Sprintf(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = %s AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, FormatPlaceholder(p, 1))

	rows, err := b.DB.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// GetTableMetadataCommon provides a shared implementation of GetTableMetadata.
// Uses information_schema.columns with dialect-appropriate placeholders.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table, defaultSchema string, p Placeholder) (*Metadata, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, tableName := ParseQualifiedName(table, defaultSchema)

	//nolint:gosec // Placeholders are either ? or $N.
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, FormatPlaceholder(p, 1), FormatPlaceholder(p, 2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []Column
	for rows.Next() {
		var col Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", QuoteIdentifier(schema), QuoteIdentifier(tableName)) //nolint:gosec // Quoted identifiers from metadata
	var rowCount int64
	if err := b.DB.QueryRowContext(ctx, countQuery).Scan(&rowCount); err != nil {
		// Non-fatal error, just set to 0
		rowCount = 0
	}

	return &Metadata{
		Schema:   schema,
		Name:     tableName,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}
