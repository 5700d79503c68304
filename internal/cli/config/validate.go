package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/querydash/internal/catalog"
)

// Backends lists the supported relational backends.
var Backends = []string{"postgres", "duckdb"}

// OutputModes lists the accepted values of output.
var OutputModes = []string{"auto", "text", "markdown", "json"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(Backends, c.Relational.Type) {
		errs = append(errs, fmt.Errorf("relational.type %q is not supported (want postgres or duckdb)", c.Relational.Type))
	}
	if !catalog.ValidSchema(c.Relational.Schema) {
		errs = append(errs, fmt.Errorf("relational.schema %q is not a plain identifier", c.Relational.Schema))
	}
	if c.Document.Enabled && (c.Document.URI == "" || c.Document.Database == "") {
		errs = append(errs, errors.New("document.uri and document.database are required when document.enabled is set"))
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		errs = append(errs, fmt.Errorf("ui.port %d is out of range", c.UI.Port))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, errors.New("cache_ttl must not be negative"))
	}
	if c.QueryTimeout < 0 {
		errs = append(errs, errors.New("query_timeout must not be negative"))
	}
	if !catalog.KnownRole(c.DefaultRole) {
		errs = append(errs, fmt.Errorf("default_role %q is not one of %v", c.DefaultRole, catalog.Roles))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level %q is not a level", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	if !slices.Contains(OutputModes, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output %q must be one of %v", c.OutputFormat, OutputModes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
