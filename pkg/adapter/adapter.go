// Package adapter defines the relational backends the dashboard can query.
//
// Concrete adapters live in pkg/adapters/ and register themselves with this
// package from init. The dashboard only needs a pooled *sql.DB from an
// adapter plus a few catalog helpers for the overview and seeding commands.
package adapter

import (
	"context"
	"database/sql"
)

// Config holds configuration for connecting to a database.
type Config struct {
	Type string
	// URI is a full connection string. When set it wins over the discrete
	// host/port/database fields.
	URI      string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	// Params carries adapter-specific settings decoded with mapstructure.
	Params map[string]any
}

// Column represents a column in a database table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata holds metadata about a database table.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Placeholder is the bind-parameter syntax a driver understands.
type Placeholder int

// Placeholder styles.
const (
	// Dollar is $1, $2, ... (PostgreSQL).
	Dollar Placeholder = iota
	// Question is ? (DuckDB, SQLite).
	Question
)

// Adapter defines the interface that all relational adapters implement.
type Adapter interface {
	// Connect opens the pool and verifies it with a ping.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the pool and releases resources.
	Close() error

	// Pool returns the underlying connection pool, or nil before Connect.
	Pool() *sql.DB

	// Name returns the adapter type ("postgres", "duckdb").
	Name() string

	// Placeholder returns the bind syntax of the driver.
	Placeholder() Placeholder

	// Target identifies the connected database without credentials.
	Target() string

	// Exec executes a statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Version returns the server version string.
	Version(ctx context.Context) (string, error)

	// ListTables returns the base tables of schema, sorted.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// GetTableMetadata retrieves metadata for a schema-qualified table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// EnsureSchema creates schema when it does not exist.
	EnsureSchema(ctx context.Context, schema string) error

	// LoadCSV replaces tableName with the contents of a CSV file.
	LoadCSV(ctx context.Context, tableName string, filePath string) error
}
