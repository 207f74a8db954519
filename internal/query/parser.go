// Package query resolves the single-line lookup commands tubeql accepts.
//
// A command is a verb followed by an argument phrase:
//
//	station <name>        lines calling at the station
//	line <name>           stations served by the line
//	list stations|lines   every station or line name
//	help                  usage text
//	quit | exit           leave the session
package query

import (
	"errors"
	"fmt"
	"strings"
)

// Verbs understood by the resolver.
const (
	VerbStation = "station"
	VerbLine    = "line"
	VerbList    = "list"
	VerbHelp    = "help"
	VerbQuit    = "quit"
	VerbExit    = "exit"
)

// Arguments accepted by the list verb.
const (
	ListStations = "stations"
	ListLines    = "lines"
)

// ErrUnrecognized matches every *SyntaxError.
var ErrUnrecognized = errors.New("query is not recognised")

// SyntaxError reports input that does not form a known command.
type SyntaxError struct {
	Input string
	Hint  string
}

func (e *SyntaxError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("Query is not recognised: %s", e.Hint)
	}
	return "Query is not recognised"
}

// Is lets errors.Is(err, ErrUnrecognized) match.
func (e *SyntaxError) Is(target error) bool {
	return target == ErrUnrecognized
}

// Command is a parsed input line.
type Command struct {
	Verb string
	Arg  string
}

// Parse splits line on whitespace. The first word is the verb and the
// remaining words joined by single spaces form the argument. Verbs are
// matched exactly, so "QUIT" is not "quit". Blank input yields the zero
// Command.
func Parse(line string) Command {
	words := strings.Fields(line)
	if len(words) == 0 {
		return Command{}
	}
	return Command{
		Verb: words[0],
		Arg:  strings.Join(words[1:], " "),
	}
}

// IsExit reports whether the command ends the session.
func (c Command) IsExit() bool {
	return c.Verb == VerbQuit || c.Verb == VerbExit
}
