package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes every configuration variable. A double underscore
// separates nesting levels: QUERYDASH_RELATIONAL__URI sets relational.uri.
const EnvPrefix = "QUERYDASH_"

// flagKeys maps command-line flags to configuration keys. Flags not listed
// here belong to individual commands and never reach the config.
var flagKeys = map[string]string{
	"catalog":       "catalog_file",
	"state":         "state_path",
	"log-level":     "log_level",
	"log-format":    "log_format",
	"verbose":       "verbose",
	"output":        "output",
	"cache-ttl":     "cache_ttl",
	"query-timeout": "query_timeout",
	"db-type":       "relational.type",
	"pg-uri":        "relational.uri",
	"duckdb":        "relational.path",
	"schema":        "relational.schema",
	"mongo-uri":     "document.uri",
	"mongo-db":      "document.database",
	"host":          "ui.host",
	"port":          "ui.port",
	"watch":         "ui.watch",
	"dev":           "ui.dev",
}

// negatedFlags are boolean flags that switch a setting off.
var negatedFlags = map[string]string{
	"no-browser": "ui.auto_open",
	"no-mongo":   "document.enabled",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > querydash.yaml > querydash.yml
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, name := range []string{DefaultConfigFile, "querydash.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// legacyEnv reads the unprefixed variables older deployments set.
func legacyEnv() map[string]any {
	out := map[string]any{}
	for name, key := range map[string]string{
		"PG_URI":    "relational.uri",
		"PG_SCHEMA": "relational.schema",
		"MONGO_URI": "document.uri",
		"MONGO_DB":  "document.database",
	} {
		if v := os.Getenv(name); v != "" {
			out[key] = v
		}
	}
	return out
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > QUERYDASH_ env > legacy env >
// config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Legacy environment
	if err := k.Load(confmap.Provider(legacyEnv(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Prefixed environment
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			if key, ok := negatedFlags[f.Name]; ok {
				v, _ := flags.GetBool(f.Name)
				return key, !v
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ConfigFile = used

	// --duckdb implies the backend unless --db-type says otherwise.
	if changed(flags, "duckdb") && !changed(flags, "db-type") {
		cfg.Relational.Type = "duckdb"
	}

	cfg.Relational.Type = strings.ToLower(cfg.Relational.Type)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.DefaultRole = strings.ToLower(cfg.DefaultRole)
	expandSecrets(&cfg)
	resolvePaths(&cfg, used, flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func changed(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// resolvePaths anchors relative file settings to the config file's
// directory. Paths given as flags stay relative to the working directory.
func resolvePaths(cfg *Config, configFile string, flags *pflag.FlagSet) {
	if configFile == "" {
		return
	}
	base := filepath.Dir(configFile)
	resolve := func(p *string, flag string) {
		if *p == "" || filepath.IsAbs(*p) || changed(flags, flag) {
			return
		}
		*p = filepath.Join(base, *p)
	}
	resolve(&cfg.CatalogFile, "catalog")
	resolve(&cfg.StatePath, "state")
	if cfg.Relational.Path != ":memory:" {
		resolve(&cfg.Relational.Path, "duckdb")
	}
}

// WithLogger stores logger in ctx for commands to retrieve.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the process logger from log_level and log_format.
// Verbose forces debug level.
func NewLogger(cfg *Config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.LogFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, errors.New("log_format must be text or json")
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandSecrets expands environment references in connection settings.
func expandSecrets(cfg *Config) {
	cfg.Relational.URI = expandEnvVars(cfg.Relational.URI)
	cfg.Relational.Host = expandEnvVars(cfg.Relational.Host)
	cfg.Relational.User = expandEnvVars(cfg.Relational.User)
	cfg.Relational.Password = expandEnvVars(cfg.Relational.Password)
	cfg.Relational.Database = expandEnvVars(cfg.Relational.Database)
	cfg.Document.URI = expandEnvVars(cfg.Document.URI)
	cfg.UI.SessionSecret = expandEnvVars(cfg.UI.SessionSecret)
}

// configKey is used to store the loaded config in context.
type configKey struct{}

// WithConfig stores cfg in ctx for commands to retrieve.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by WithConfig, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(configKey{}).(*Config)
	return cfg
}
