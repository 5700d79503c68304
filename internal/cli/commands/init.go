package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/cli/config"
	"github.com/leapstack-labs/querydash/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var (
		force    bool
		template string
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a querydash configuration and catalog",
		Long: `Create querydash.yaml and an editable copy of the built-in catalog.

Templates:
  local     DuckDB file, document backend disabled
  postgres  Postgres and MongoDB on localhost`,
		Example: `  # Postgres + MongoDB setup in the current directory
  querydash init

  # Local DuckDB setup in a new directory
  querydash init kitchen --template local`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().StringVar(&template, "template", "postgres", "Project template: "+strings.Join(templateNames, ", "))
	_ = cmd.RegisterFlagCompletionFunc("template", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return templateNames, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if !validTemplate(template) {
		return fmt.Errorf("unknown template %q (want one of %s)", template, strings.Join(templateNames, ", "))
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	files, err := copyTemplate(template, dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	catalogPath := filepath.Join(dir, "catalog.yaml")
	if _, err := os.Stat(catalogPath); err != nil || force {
		if err := os.WriteFile(catalogPath, catalog.DefaultYAML(), 0600); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		files = append(files, "catalog.yaml")
	}

	for _, f := range files {
		r.Println(r.Status(true, "+ ") + f)
	}
	r.Println("")
	r.Success("querydash project initialized in " + dir)
	r.Println("")
	r.Println("Next steps:")
	if template == "local" {
		r.Println("  querydash seed DIR     Load CSV exports into kitchen.duckdb")
	}
	r.Println("  querydash doctor       Check the connections and catalog")
	r.Println("  querydash serve        Open the dashboard")
	return nil
}
