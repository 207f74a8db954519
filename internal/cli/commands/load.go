package commands

import (
	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Apply the schema and import the network document",
		Long: `Connect to the database, apply the schema and import the network document
without starting a query session.

Loading into a database that already holds a network is an error.`,
		Example: `  tubeql load
  tubeql load --data-path london.yaml --schema-path schema.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			_, err = prepareStore(cmd.Context(), cc, false)
			return err
		},
	}
}
