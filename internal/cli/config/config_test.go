package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the loader reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, EnvPrefix) {
			t.Setenv(name, "")
			_ = os.Unsetenv(name)
		}
	}
	for _, name := range []string{"PG_URI", "PG_SCHEMA", "MONGO_URI", "MONGO_DB"} {
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
}

// chdir switches to an empty directory so no querydash.yaml is picked up.
func chdir(t *testing.T, dir string) {
	t.Helper()
	t.Chdir(dir)
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("catalog", "", "")
	fs.String("state", "", "")
	fs.String("log-level", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.StringP("output", "o", "", "")
	fs.String("db-type", "", "")
	fs.String("duckdb", "", "")
	fs.String("pg-uri", "", "")
	fs.String("schema", "", "")
	fs.Int("port", 0, "")
	fs.Bool("no-browser", false, "")
	fs.Bool("no-mongo", false, "")
	fs.String("role", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Relational.Type)
	assert.Equal(t, "localhost", cfg.Relational.Host)
	assert.Equal(t, 5432, cfg.Relational.Port)
	assert.Equal(t, DefaultSchema, cfg.Relational.Schema)
	assert.True(t, cfg.Document.Enabled)
	assert.Equal(t, DefaultMongoURI, cfg.Document.URI)
	assert.Equal(t, DefaultMongoDB, cfg.Document.Database)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, DefaultQueryTimeout, cfg.QueryTimeout)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, "all", cfg.DefaultRole)
	assert.Equal(t, DefaultPort, cfg.UI.Port)
	assert.True(t, cfg.UI.AutoOpen)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUERYDASH_TEST_PASSWORD", "s3cret")
	abs, err := filepath.Abs("testdata/querydash.yaml")
	require.NoError(t, err)
	chdir(t, t.TempDir())

	cfg, err := Load(abs, nil)
	require.NoError(t, err)

	assert.Equal(t, abs, cfg.ConfigFile)
	assert.Equal(t, "db.internal", cfg.Relational.Host)
	assert.Equal(t, 6432, cfg.Relational.Port)
	assert.Equal(t, "kitchen", cfg.Relational.Database)
	assert.Equal(t, "s3cret", cfg.Relational.Password, "${VAR} is expanded")
	assert.Equal(t, map[string]string{"sslmode": "disable"}, cfg.Relational.Options)
	assert.Equal(t, "mongodb://mongo.internal:27017", cfg.Document.URI)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, "chef", cfg.DefaultRole)
	assert.Equal(t, 9000, cfg.UI.Port)
	assert.False(t, cfg.UI.Watch)

	// Relative paths are anchored to the config file.
	dir := filepath.Dir(abs)
	assert.Equal(t, filepath.Join(dir, "catalog.yaml"), cfg.CatalogFile)
	assert.Equal(t, filepath.Join(dir, "state", "runs.db"), cfg.StatePath)
}

func TestLoad_FindsFileInWorkingDirectory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("default_role: quality\n"), 0600))
	chdir(t, dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, cfg.ConfigFile)
	assert.Equal(t, "quality", cfg.DefaultRole)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	t.Setenv("PG_URI", "postgresql+psycopg2://legacy@localhost/postgres")
	t.Setenv("PG_SCHEMA", "legacy_schema")
	t.Setenv("MONGO_URI", "mongodb://legacy:27017")
	t.Setenv("MONGO_DB", "legacyDB")
	t.Setenv("QUERYDASH_RELATIONAL__SCHEMA", "prefixed_schema")
	t.Setenv("QUERYDASH_UI__PORT", "9100")
	t.Setenv("QUERYDASH_CACHE_TTL", "5m")
	t.Setenv("QUERYDASH_DOCUMENT__ENABLED", "false")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgresql+psycopg2://legacy@localhost/postgres", cfg.Relational.URI)
	assert.Equal(t, "prefixed_schema", cfg.Relational.Schema, "prefixed variables win over legacy ones")
	assert.Equal(t, "mongodb://legacy:27017", cfg.Document.URI)
	assert.Equal(t, "legacyDB", cfg.Document.Database)
	assert.False(t, cfg.Document.Enabled)
	assert.Equal(t, 9100, cfg.UI.Port)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestLoad_Flags(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("QUERYDASH_RELATIONAL__SCHEMA", "from_env")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{
		"--schema", "from_flag",
		"--duckdb", "local.duckdb",
		"--port", "7000",
		"--no-browser",
		"--no-mongo",
		"--role", "chef",
		"-v",
	}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "from_flag", cfg.Relational.Schema)
	assert.Equal(t, "duckdb", cfg.Relational.Type, "--duckdb selects the backend")
	assert.Equal(t, "local.duckdb", cfg.Relational.Path)
	assert.Equal(t, 7000, cfg.UI.Port)
	assert.False(t, cfg.UI.AutoOpen)
	assert.False(t, cfg.Document.Enabled)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "all", cfg.DefaultRole, "command flags are not config")
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("QUERYDASH_UI__PORT", "9200")

	fs := testFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.UI.Port)
	assert.True(t, cfg.Document.Enabled)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Relational:   RelationalConfig{Type: "postgres", Schema: "smart_kitchen"},
			Document:     DocumentConfig{Enabled: true, URI: DefaultMongoURI, Database: DefaultMongoDB},
			UI:           UIConfig{Port: DefaultPort},
			DefaultRole:  "all",
			LogLevel:     "info",
			LogFormat:    "text",
			OutputFormat: "auto",
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		errPart string
	}{
		{"backend", func(c *Config) { c.Relational.Type = "oracle" }, "relational.type"},
		{"schema", func(c *Config) { c.Relational.Schema = "x; DROP TABLE y" }, "relational.schema"},
		{"document", func(c *Config) { c.Document.URI = "" }, "document.uri"},
		{"document disabled", func(c *Config) { c.Document = DocumentConfig{} }, ""},
		{"port", func(c *Config) { c.UI.Port = 70000 }, "ui.port"},
		{"ttl", func(c *Config) { c.CacheTTL = -time.Second }, "cache_ttl"},
		{"role", func(c *Config) { c.DefaultRole = "janitor" }, "default_role"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"output", func(c *Config) { c.OutputFormat = "yaml" }, "output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.errPart == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = NewLogger(&Config{LogLevel: "warn", LogFormat: "text", Verbose: true}, &buf)
	require.NoError(t, err)
	logger.Debug("debugging")
	assert.Contains(t, buf.String(), "msg=debugging")

	_, err = NewLogger(&Config{LogLevel: "info", LogFormat: "xml"}, &buf)
	require.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("QD_TEST_USER", "alice")
	assert.Equal(t, "postgres://alice@h/db", expandEnvVars("postgres://${QD_TEST_USER}@h/db"))
	assert.Equal(t, "${QD_TEST_UNSET}", expandEnvVars("${QD_TEST_UNSET}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}
