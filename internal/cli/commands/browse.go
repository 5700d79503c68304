package commands

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/querydash/internal/catalog"
	"github.com/leapstack-labs/querydash/internal/cli/browse"
)

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	var (
		role   string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and run catalog entries in the terminal",
		Long: `Open an interactive terminal browser over the catalog. Entries are filtered
by role like in the dashboard; press r to switch role and enter to run the
selected entry with the given parameters.`,
		Example: `  querydash browse --role chef --param restaurant_id=2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			raw, err := parseParamFlags(params)
			if err != nil {
				return err
			}
			resolved, err := cc.Catalog.Resolve(raw)
			if err != nil {
				return err
			}
			if role == "" {
				role = cc.Cfg.DefaultRole
			}

			model := browse.New(cc.Service, strings.ToLower(role), resolved, cc.Cfg.QueryTimeout)
			p := tea.NewProgram(model,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Initial role filter (default: default_role)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter value as name=value (repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("role", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return catalog.Roles, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
