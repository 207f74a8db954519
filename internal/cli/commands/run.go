package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tubeql/internal/importer"
	"github.com/leapstack-labs/tubeql/internal/network"
	"github.com/leapstack-labs/tubeql/internal/schema"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Load the network and start an interactive query session",
		Long: `Connect to the database, apply the schema, import the network document
and answer queries interactively until quit or exit.

The import is skipped when the database already holds a network.`,
		Example: `  # Use tubeql.yaml in the current directory
  tubeql run

  # Load a different network into a different database
  tubeql run --data-path paris.yaml --db-name paris_metro`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunPipeline(cmd)
		},
	}
}

// RunPipeline connects, prepares the database and runs the REPL. It backs
// both the run command and the bare root command.
func RunPipeline(cmd *cobra.Command) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if _, err := prepareStore(ctx, cc, true); err != nil {
		return err
	}
	return runREPL(ctx, cc)
}

// prepareStore applies the schema and imports the network document. When
// skipLoaded is set an already populated database is left untouched;
// otherwise importing into it is an error.
func prepareStore(ctx context.Context, cc *CommandContext, skipLoaded bool) (*importer.Summary, error) {
	report, err := schema.NewLoader(cc.Store, cc.Logger).ApplyFile(ctx, cc.Cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		cc.Renderer.Warning(fmt.Sprintf("%d of %d schema statements failed, see log for details",
			len(report.Failed), report.Executed+len(report.Failed)))
	}

	im := importer.New(cc.Store, cc.Logger)
	if skipLoaded {
		loaded, err := im.Loaded(ctx)
		if err != nil {
			return nil, err
		}
		if loaded {
			cc.Logger.Debug("network already loaded, skipping import")
			cc.Renderer.Info(fmt.Sprintf("Network already loaded in %s, skipping import", cc.Cfg.DBName))
			return nil, nil
		}
	}

	doc, err := network.Load(cc.Cfg.DataPath)
	if err != nil {
		return nil, err
	}

	summary, err := im.Import(ctx, doc)
	if errors.Is(err, importer.ErrTargetNotEmpty) {
		return nil, fmt.Errorf("%w\nHint: use a new --db-name or query the existing data with 'tubeql query'", err)
	}
	if err != nil {
		return nil, err
	}

	cc.Logger.Debug("import finished", slog.String("run_id", summary.RunID))
	cc.Renderer.Success(fmt.Sprintf("Imported %d stations, %d lines and %d passes from %s",
		summary.Stations, summary.Lines, summary.Passes, cc.Cfg.DataPath))
	return summary, nil
}
