package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/cli/output"
	"github.com/leapstack-labs/querydash/internal/dashboard"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the query catalog",
		Long: `Inspect the query catalog: the named relational and document queries the
dashboard offers, their chart configuration and the parameters they use.

Without a catalog_file setting the built-in smart kitchen catalog is used.`,
	}

	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogValidateCommand())
	cmd.AddCommand(newCatalogShowCommand())
	cmd.AddCommand(newCatalogExportCommand())

	return cmd
}

type entryInfo struct {
	Name        string   `json:"name"`
	Backend     string   `json:"backend"`
	Chart       string   `json:"chart"`
	Tags        []string `json:"tags"`
	Params      []string `json:"params,omitempty"`
	Collection  string   `json:"collection,omitempty"`
	Description string   `json:"description,omitempty"`
}

func toEntryInfo(e catalog.Entry) entryInfo {
	return entryInfo{
		Name:        e.Name,
		Backend:     string(e.Backend),
		Chart:       string(e.Chart.Kind),
		Tags:        e.EffectiveTags(),
		Params:      e.Params,
		Collection:  e.Collection,
		Description: e.Description,
	}
}

func newCatalogListCommand() *cobra.Command {
	var (
		role    string
		backend string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Example: `  # Every entry
  querydash catalog list

  # Entries a chef sees, relational only
  querydash catalog list --role chef --kind relational`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCatalogContext(cmd)
			if err != nil {
				return err
			}
			if role != "" && !catalog.KnownRole(role) {
				return fmt.Errorf("unknown role %q (want one of %s)", role, strings.Join(catalog.Roles, ", "))
			}

			var entries []catalog.Entry
			for _, b := range []catalog.Backend{catalog.Relational, catalog.Document} {
				if backend != "" && string(b) != backend {
					continue
				}
				list := cc.Catalog.Entries(b)
				if role != "" {
					list = catalog.FilterByRole(list, role)
				}
				entries = append(entries, list...)
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				infos := make([]entryInfo, len(entries))
				for i, e := range entries {
					infos[i] = toEntryInfo(e)
				}
				return r.JSON(infos)
			}

			r.Header(1, fmt.Sprintf("Catalog entries (%d)", len(entries)))
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.Name, string(e.Backend), string(e.Chart.Kind), strings.Join(e.EffectiveTags(), ", ")}
			}
			r.Table([]string{"Name", "Backend", "Chart", "Roles"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Only entries visible to this role")
	cmd.Flags().StringVar(&backend, "kind", "", "Only relational or document entries")
	_ = cmd.RegisterFlagCompletionFunc("role", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return catalog.Roles, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("kind", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{string(catalog.Relational), string(catalog.Document)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newCatalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a catalog file",
		Long: `Check that a catalog parses, uses only supported chart types, and that
every parameter placeholder has a declaration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfig(cmd)
			if err != nil {
				return err
			}
			path := cfg.CatalogFile
			if len(args) == 1 {
				path = args[0]
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			cat, err := catalog.Load(path)
			if err == nil {
				err = cat.Validate()
			}
			var verr *catalog.ValidationError
			if errors.As(err, &verr) {
				for _, issue := range verr.Issues {
					r.Error(issue.String())
				}
				return fmt.Errorf("catalog has %d issue(s)", len(verr.Issues))
			}
			if err != nil {
				return err
			}

			source := cat.Source
			if source == "" {
				source = "built-in catalog"
			}
			r.Success(fmt.Sprintf("%s: %d entries, %d parameters", source, cat.Len(), len(cat.Params)))
			return nil
		},
	}
}

func newCatalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one entry with its query text",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return entryNames(cmd), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCatalogContext(cmd)
			if err != nil {
				return err
			}
			e, ok := cc.Catalog.Lookup(args[0])
			if !ok {
				return fmt.Errorf("no catalog entry named %q", args[0])
			}

			r := cc.Renderer
			text := dashboard.QueryText(e, cc.Cfg.Relational.Schema)

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(struct {
					entryInfo
					Query string `json:"query"`
				}{toEntryInfo(e), text})
			}

			r.Header(1, e.Name)
			if e.Description != "" {
				r.Println(e.Description)
				r.Println("")
			}
			r.KeyValue("Backend", string(e.Backend))
			r.KeyValue("Chart", chartSummary(e.Chart))
			r.KeyValue("Roles", strings.Join(e.EffectiveTags(), ", "))
			if len(e.Params) > 0 {
				r.KeyValue("Parameters", strings.Join(e.Params, ", "))
			}
			r.Println("")
			r.Println("```")
			r.Println(text)
			r.Println("```")
			return nil
		},
	}
}

func newCatalogExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the built-in catalog as a starting point for your own",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(catalog.DefaultYAML())
			return err
		},
	}
}

func chartSummary(s catalog.ChartSpec) string {
	var parts []string
	for _, ref := range s.Refs() {
		parts = append(parts, ref.Field+"="+ref.Column)
	}
	if len(parts) == 0 {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s (%s)", s.Kind, strings.Join(parts, ", "))
}

// entryNames lists catalog entries for shell completion.
func entryNames(cmd *cobra.Command) []string {
	cc, err := NewCatalogContext(cmd)
	if err != nil {
		return nil
	}
	var names []string
	for _, b := range []catalog.Backend{catalog.Relational, catalog.Document} {
		for _, e := range cc.Catalog.Entries(b) {
			names = append(names, e.Name)
		}
	}
	return names
}
