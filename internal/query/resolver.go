package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tubeql/internal/store"
	"golang.org/x/text/unicode/norm"
)

const (
	stationLinesSQL = `
		SELECT trainlines.name
		FROM trainlines
		WHERE trainlines.id IN (
			SELECT line_id
			FROM passes
			WHERE passes.station_id IN (
				SELECT id FROM stations WHERE stations.name = ?))
		ORDER BY trainlines.id`

	lineStationsSQL = `
		SELECT stations.name
		FROM stations
		WHERE stations.id IN (
			SELECT station_id
			FROM passes
			WHERE passes.line_id IN (
				SELECT id FROM trainlines WHERE trainlines.name = ?))
		ORDER BY stations.name`

	allStationsSQL = `SELECT name FROM stations ORDER BY name`
	allLinesSQL    = `SELECT name FROM trainlines ORDER BY id`
)

// Kind classifies a successful resolution.
type Kind int

// Result kinds.
const (
	// KindNames carries one or more names.
	KindNames Kind = iota
	// KindEmpty means the lookup ran and matched nothing.
	KindEmpty
	// KindHelp carries the usage text.
	KindHelp
	// KindExit asks the session to end.
	KindExit
)

// Result is the outcome of one resolved command.
type Result struct {
	Kind    Kind
	Command Command
	Title   string
	Names   []string
	Message string
}

// Resolver dispatches commands to lookups against the store.
type Resolver struct {
	store  *store.Store
	logger *slog.Logger
}

// NewResolver creates a Resolver. If logger is nil, a discard logger is used.
func NewResolver(s *store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{store: s, logger: logger}
}

// Resolve parses line and runs the matching lookup.
//
// Unknown verbs, blank input and a bad list argument return a *SyntaxError.
// Store failures are returned as errors and are never reported as an empty
// result.
func (r *Resolver) Resolve(ctx context.Context, line string) (*Result, error) {
	cmd := Parse(line)
	r.logger.Debug("resolving query", slog.String("verb", cmd.Verb), slog.String("arg", cmd.Arg))

	switch cmd.Verb {
	case VerbStation:
		names, err := r.StationLines(ctx, cmd.Arg)
		if err != nil {
			return nil, err
		}
		return namesResult(cmd, fmt.Sprintf("Lines through %s", cmd.Arg), names, "No such station"), nil

	case VerbLine:
		names, err := r.LineStations(ctx, cmd.Arg)
		if err != nil {
			return nil, err
		}
		return namesResult(cmd, fmt.Sprintf("Stations on %s", cmd.Arg), names, "No such line"), nil

	case VerbList:
		switch cmd.Arg {
		case ListStations:
			names, err := r.Stations(ctx)
			if err != nil {
				return nil, err
			}
			return namesResult(cmd, "Stations", names, "No stations loaded"), nil
		case ListLines:
			names, err := r.Lines(ctx)
			if err != nil {
				return nil, err
			}
			return namesResult(cmd, "Lines", names, "No lines loaded"), nil
		default:
			return nil, &SyntaxError{Input: line, Hint: "use 'list stations' or 'list lines'"}
		}

	case VerbHelp:
		return &Result{Kind: KindHelp, Command: cmd, Message: HelpText}, nil

	default:
		if cmd.IsExit() {
			return &Result{Kind: KindExit, Command: cmd}, nil
		}
		return nil, &SyntaxError{Input: line}
	}
}

// StationLines returns the names of the lines calling at the station named
// exactly name.
func (r *Resolver) StationLines(ctx context.Context, name string) ([]string, error) {
	return r.store.Strings(ctx, stationLinesSQL, norm.NFC.String(name))
}

// LineStations returns the names of the stations served by the line named
// exactly name.
func (r *Resolver) LineStations(ctx context.Context, name string) ([]string, error) {
	return r.store.Strings(ctx, lineStationsSQL, norm.NFC.String(name))
}

// Stations returns every station name.
func (r *Resolver) Stations(ctx context.Context) ([]string, error) {
	return r.store.Strings(ctx, allStationsSQL)
}

// Lines returns every line name.
func (r *Resolver) Lines(ctx context.Context) ([]string, error) {
	return r.store.Strings(ctx, allLinesSQL)
}

// Completions returns candidate inputs for tab completion: every command
// form, with station and line names filled in.
func (r *Resolver) Completions(ctx context.Context) ([]string, error) {
	out := []string{
		VerbList + " " + ListStations,
		VerbList + " " + ListLines,
		VerbHelp,
		VerbQuit,
		VerbExit,
	}

	stations, err := r.Stations(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range stations {
		out = append(out, VerbStation+" "+s)
	}

	lines, err := r.Lines(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		out = append(out, VerbLine+" "+l)
	}
	return out, nil
}

func namesResult(cmd Command, title string, names []string, empty string) *Result {
	if len(names) == 0 {
		return &Result{Kind: KindEmpty, Command: cmd, Title: title, Message: empty}
	}
	return &Result{Kind: KindNames, Command: cmd, Title: title, Names: names}
}
