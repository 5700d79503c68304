package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/cli/output"
	"github.com/leapstack-labs/querydash/pkg/adapter"
)

// SeedInfo describes one loaded CSV file.
type SeedInfo struct {
	Table string `json:"table"`
	File  string `json:"file"`
}

// SeedOutput is the JSON output of the seed command.
type SeedOutput struct {
	Backend string     `json:"backend"`
	Schema  string     `json:"schema"`
	Seeds   []SeedInfo `json:"seeds"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed DIR",
		Short: "Load CSV files into the relational schema",
		Long: `Load every CSV file in DIR into the configured schema of the relational
backend. Each file replaces the table named after it, so orders.csv becomes
<schema>.orders. The schema is created when missing.

Seeding a DuckDB file gives a local dataset the catalog can run against
without a Postgres server.`,
		Example: `  # Build a local database from exported CSVs
  querydash seed ./data --duckdb kitchen.duckdb

  # Reload the tables of a Postgres schema
  querydash seed ./data --pg-uri postgres://localhost/kitchen --schema smart_kitchen`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args[0])
		},
	}

	return cmd
}

func runSeed(cmd *cobra.Command, dir string) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	files, err := getSeedFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no CSV files found in %s", dir)
	}

	ctx := cmd.Context()
	adp, err := adapter.Open(ctx, cfg.Relational.Adapter(), getLogger(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = adp.Close() }()

	schema := cfg.Relational.Schema
	if schema == "" {
		schema = catalog.DefaultSchema
	}
	if err := adp.EnsureSchema(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}

	seeds := make([]SeedInfo, 0, len(files))
	for _, file := range files {
		table := schema + "." + strings.TrimSuffix(file, ".csv")
		if err := adp.LoadCSV(ctx, table, filepath.Join(dir, file)); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
		seeds = append(seeds, SeedInfo{Table: table, File: file})
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(SeedOutput{Backend: adp.Name(), Schema: schema, Seeds: seeds})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Seeds Loaded"))
		r.Println("")
		for _, s := range seeds {
			r.Println(output.FormatKeyValue(s.Table, s.File))
		}
		r.Println("")
		r.Println(output.FormatKeyValue("Target", adp.Target()))
	default:
		r.Header(2, "Loaded Seeds")
		for _, s := range seeds {
			r.Println(r.Status(true, s.Table) + "  " + s.File)
		}
		r.Println("")
		r.Muted(fmt.Sprintf("%d tables into %s", len(seeds), adp.Target()))
	}
	return nil
}

// getSeedFiles returns the CSV files in dir, sorted.
func getSeedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}
