package commands

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/chart"
	"github.com/leapstack-labs/querydash/internal/cli/output"
	"github.com/leapstack-labs/querydash/internal/dashboard"
	"github.com/leapstack-labs/querydash/internal/query"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Role   string
	Params []string
	Format string
	HTML   string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Run one catalog entry and print the result",
		Long: `Run one catalog entry against its backend and print the rows.

Parameters not given with --param use their catalog defaults. The run is
recorded in the history like a dashboard run. With --html the entry's chart
is written as a standalone page.`,
		Example: `  # Orders for restaurant 3 over the last 30 days
  querydash run "Orders by restaurant" --param restaurant_id=3 --param days=30

  # As CSV for a spreadsheet
  querydash run "Menu popularity" --format csv > popularity.csv

  # Write the chart to a file
  querydash run "Sensor averages" --html sensors.html`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return entryNames(cmd), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntry(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Role, "role", "", "Role recorded with the run (default: default_role)")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Parameter value as name=value (repeatable)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Result format: table, json, csv, md (default: from --output)")
	cmd.Flags().StringVar(&opts.HTML, "html", "", "Also write the chart as an HTML page to this file")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return chart.Formats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("role", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return catalog.Roles, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// parseParamFlags splits name=value pairs.
func parseParamFlags(pairs []string) (map[string]string, error) {
	raw := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q (want name=value)", p)
		}
		raw[name] = strings.TrimSpace(value)
	}
	return raw, nil
}

// resultFormat picks the text format from --format or the output mode.
func resultFormat(explicit string, r *output.Renderer) (string, error) {
	if explicit != "" {
		if explicit == "markdown" {
			explicit = chart.FormatMarkdown
		}
		if !slices.Contains(chart.Formats, explicit) {
			return "", fmt.Errorf("unknown format %q (want one of %s)", explicit, strings.Join(chart.Formats, ", "))
		}
		return explicit, nil
	}
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return chart.FormatJSON, nil
	case output.ModeMarkdown:
		return chart.FormatMarkdown, nil
	}
	return chart.FormatTable, nil
}

func runEntry(cmd *cobra.Command, name string, opts *RunOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cc.Renderer
	format, err := resultFormat(opts.Format, r)
	if err != nil {
		return err
	}

	raw, err := parseParamFlags(opts.Params)
	if err != nil {
		return err
	}
	params, err := cc.Catalog.Resolve(raw)
	if err != nil {
		return err
	}

	role := opts.Role
	if role == "" {
		role = cc.Cfg.DefaultRole
	}
	role = strings.ToLower(role)
	if !catalog.KnownRole(role) {
		return fmt.Errorf("unknown role %q (want one of %s)", role, strings.Join(catalog.Roles, ", "))
	}

	req := dashboard.Request{Entry: name, Role: role, Params: params}
	entry, err := cc.Service.Lookup(req)
	if err != nil {
		return err
	}
	if !entry.VisibleTo(role) {
		r.Warning(fmt.Sprintf("%q is not tagged for role %s", name, role))
	}

	var out *dashboard.Outcome
	if opts.HTML != "" {
		view, err := cc.Service.Show(cmd.Context(), req, chart.Options{})
		if err != nil {
			return describe(err)
		}
		if err := os.WriteFile(opts.HTML, []byte(view.Rendered.Document(entry.Name)), 0600); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		r.Success("Chart written to " + opts.HTML)
		out = view.Outcome
	} else {
		out, err = cc.Service.Run(cmd.Context(), req)
		if err != nil {
			return describe(err)
		}
		if err := chartWarning(out.Result, entry.Chart); err != nil {
			r.Warning(err.Error())
		}
	}

	if err := chart.WriteText(cmd.OutOrStdout(), out.Result, format); err != nil {
		return err
	}

	cached := ""
	if out.CacheHit {
		cached = " (cached)"
	}
	cc.Logger.Debug("entry finished", "entry", name, "rows", len(out.Result.Rows), "elapsed", out.Elapsed)
	if format == chart.FormatTable {
		r.Muted(fmt.Sprintf("%s · %s%s", entry.Name, out.Elapsed.Round(time.Millisecond), cached))
	}
	return nil
}

// describe prefixes an execution error with its kind so scripts can tell a
// bad parameter from an unreachable server.
// chartWarning reports chart fields the result cannot satisfy. An empty
// result only ever shows the no-rows notice, so there is nothing to check.
func chartWarning(res *query.Result, spec catalog.ChartSpec) error {
	if res.Empty() {
		return nil
	}
	return chart.Check(res, spec)
}

func describe(err error) error {
	if kind := query.KindOf(err); kind != "" {
		return fmt.Errorf("%s error: %w", kind, err)
	}
	return err
}
