package commands

import (
	"fmt"

	"github.com/leapstack-labs/tubeql/internal/store"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display tubeql version and the database drivers compiled in.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tubeql v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Drivers: %v\n", store.Drivers())
		},
	}
}
