package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the querydash version and the Go runtime it was built with.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "querydash v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restaurant analytics dashboard (%s %s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
