package repl

import (
	"context"
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/tubeql/internal/query"
)

// Completions lists candidate inputs for tab completion.
type Completions interface {
	Completions(ctx context.Context) ([]string, error)
}

// NewCompleter builds a prefix completer from the resolver's candidates.
// Station and line names nest under their verb so that completion works
// word by word.
func NewCompleter(ctx context.Context, src Completions) *readline.PrefixCompleter {
	// on error candidates is nil and only the verbs remain
	candidates, _ := src.Completions(ctx)

	var stations, lines []readline.PrefixCompleterInterface
	for _, c := range candidates {
		switch {
		case strings.HasPrefix(c, query.VerbStation+" "):
			stations = append(stations, readline.PcItem(strings.TrimPrefix(c, query.VerbStation+" ")))
		case strings.HasPrefix(c, query.VerbLine+" "):
			lines = append(lines, readline.PcItem(strings.TrimPrefix(c, query.VerbLine+" ")))
		}
	}

	return readline.NewPrefixCompleter(
		readline.PcItem(query.VerbStation, stations...),
		readline.PcItem(query.VerbLine, lines...),
		readline.PcItem(query.VerbList,
			readline.PcItem(query.ListStations),
			readline.PcItem(query.ListLines),
		),
		readline.PcItem(query.VerbHelp),
		readline.PcItem(query.VerbQuit),
		readline.PcItem(query.VerbExit),
	)
}

// NewReadline opens a terminal line reader with history and completion.
// An empty historyFile disables history.
func NewReadline(historyFile string, completer readline.AutoCompleter) (*readline.Instance, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       query.VerbQuit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REPL: %w", err)
	}
	return rl, nil
}
