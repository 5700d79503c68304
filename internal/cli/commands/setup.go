package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/cli/config"
	"github.com/leapstack-labs/querydash/internal/cli/output"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Catalog  *catalog.Catalog
	Service  *dashboard.Service
	History  *state.SQLiteStore
}

// NewCommandContext creates a CommandContext with the dashboard service and
// run history. Returns the context and a cleanup function that must be
// called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCatalogContext(cmd)
	if err != nil {
		return nil, nil, err
	}

	history, err := openHistory(cc.Cfg.StatePath, cc.Logger)
	if err != nil {
		return nil, nil, err
	}

	svc, err := dashboard.New(cc.Catalog, serviceConfig(cc.Cfg), cc.Logger, dashboard.WithHistory(history))
	if err != nil {
		_ = history.Close()
		return nil, nil, err
	}

	cc.Service = svc
	cc.History = history

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Close(ctx); err != nil {
			cc.Logger.Warn("failed to close connections", slog.String("error", err.Error()))
		}
		_ = history.Close()
	}
	return cc, cleanup, nil
}

// NewCatalogContext creates a CommandContext with a validated catalog but
// no backend connections. Useful for commands that don't need database access.
func NewCatalogContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := getLogger(cmd)

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
		Catalog:  cat,
	}, nil
}

// getConfig returns the configuration loaded by the root command, or loads
// one from the environment when the command runs standalone.
func getConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg, nil
	}
	return config.Load("", nil)
}

func serviceConfig(cfg *config.Config) dashboard.Config {
	return dashboard.Config{
		Relational:       cfg.Relational.Adapter(),
		Schema:           cfg.Relational.Schema,
		DocumentEnabled:  cfg.Document.Enabled,
		DocumentURI:      cfg.Document.URI,
		DocumentDatabase: cfg.Document.Database,
		CacheTTL:         cfg.CacheTTL,
		QueryTimeout:     cfg.QueryTimeout,
	}
}

func openHistory(path string, logger *slog.Logger) (*state.SQLiteStore, error) {
	// Ensure state directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(path); err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return store, nil
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}
