package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tubeql/internal/query"
	"github.com/leapstack-labs/tubeql/internal/repl"
	"github.com/spf13/cobra"
)

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query [command...]",
		Short: "Query a loaded network",
		Long: `Resolve lookup commands against a database that was loaded earlier.

With arguments, the arguments form one command which is resolved and
printed. Without arguments, an interactive session starts.

` + query.HelpText,
		Example: `  tubeql query station Oxford Circus
  tubeql query line Central -o json
  tubeql query list lines

  # Interactive mode
  tubeql query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 0 {
				return runREPL(cmd.Context(), cc)
			}
			return runOneShot(cmd.Context(), cc, strings.Join(args, " "))
		},
	}
}

func runOneShot(ctx context.Context, cc *CommandContext, line string) error {
	res, err := query.NewResolver(cc.Store, cc.Logger).Resolve(ctx, line)
	if err != nil {
		return err
	}
	if res.Kind == query.KindExit {
		return nil
	}
	return cc.Renderer.Result(res)
}

func runREPL(ctx context.Context, cc *CommandContext) error {
	resolver := query.NewResolver(cc.Store, cc.Logger)

	rl, err := repl.NewReadline(cc.Cfg.HistoryFile, repl.NewCompleter(ctx, resolver))
	if err != nil {
		return err
	}

	cc.Renderer.Println(cc.Renderer.Styles().Header.Render(
		fmt.Sprintf("tubeql (%s: %s)", cc.Store.Dialect().Name, cc.Cfg.DBName)))
	cc.Renderer.Println(cc.Renderer.Muted("Type help for commands, quit to exit"))
	cc.Renderer.Println()

	return repl.NewSession(rl, resolver, cc.Renderer, cc.Logger).Run(ctx)
}
