// Package config loads the querydash configuration.
//
// Values are layered with koanf: built-in defaults, then querydash.yaml,
// then the legacy PG_*/MONGO_* variables, then QUERYDASH_* variables, then
// command-line flags. The result is an explicit Config value handed to the
// service constructors.
package config

import (
	"time"

	"github.com/leapstack-labs/querydash/pkg/adapter"
)

// RelationalConfig selects and addresses the relational backend.
type RelationalConfig struct {
	// Type is "postgres" or "duckdb".
	Type string `koanf:"type"`
	// URI is a full connection string and wins over the discrete fields.
	// A "+driver" suffix on the scheme is accepted and ignored.
	URI string `koanf:"uri"`
	// Path is the DuckDB database file; empty means in-memory.
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// Adapter converts the section into an adapter configuration.
func (r RelationalConfig) Adapter() adapter.Config {
	return adapter.Config{
		Type:     r.Type,
		URI:      r.URI,
		Path:     r.Path,
		Host:     r.Host,
		Port:     r.Port,
		Database: r.Database,
		Username: r.User,
		Password: r.Password,
		Schema:   r.Schema,
		Options:  r.Options,
		Params:   r.Params,
	}
}

// DocumentConfig addresses the MongoDB deployment.
type DocumentConfig struct {
	Enabled  bool   `koanf:"enabled"`
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// UIConfig holds configuration for the UI server.
type UIConfig struct {
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	Dev           bool   `koanf:"dev"`
	SessionSecret string `koanf:"session_secret"`
}

// Config holds all CLI configuration options.
type Config struct {
	Relational RelationalConfig `koanf:"relational"`
	Document   DocumentConfig   `koanf:"document"`
	UI         UIConfig         `koanf:"ui"`

	// CatalogFile is the query catalog; empty uses the built-in catalog.
	CatalogFile  string        `koanf:"catalog_file"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
	StatePath    string        `koanf:"state_path"`
	DefaultRole  string        `koanf:"default_role"`

	LogLevel     string `koanf:"log_level"`
	LogFormat    string `koanf:"log_format"`
	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// ConfigFile is the file that was loaded, if any. Not read from config.
	ConfigFile string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultConfigFile   = "querydash.yaml"
	DefaultStateFile    = ".querydash/state.db"
	DefaultSchema       = "smart_kitchen"
	DefaultMongoURI     = "mongodb://localhost:27017"
	DefaultMongoDB      = "smartKitchen"
	DefaultPort         = 8765
	DefaultRole         = "all"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel     = "warn"
	DefaultLogFormat    = "text"
	DefaultCacheTTL     = 60 * time.Second
	DefaultQueryTimeout = 30 * time.Second
)

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"relational.type":     "postgres",
		"relational.host":     "localhost",
		"relational.port":     5432,
		"relational.database": "postgres",
		"relational.user":     "postgres",
		"relational.schema":   DefaultSchema,
		"document.enabled":    true,
		"document.uri":        DefaultMongoURI,
		"document.database":   DefaultMongoDB,
		"ui.host":             "",
		"ui.port":             DefaultPort,
		"ui.auto_open":        true,
		"ui.watch":            true,
		"ui.dev":              false,
		"catalog_file":        "",
		"cache_ttl":           DefaultCacheTTL.String(),
		"query_timeout":       DefaultQueryTimeout.String(),
		"state_path":          DefaultStateFile,
		"default_role":        DefaultRole,
		"log_level":           DefaultLogLevel,
		"log_format":          DefaultLogFormat,
		"verbose":             false,
		"output":              DefaultOutput,
	}
}
