// Package repl runs the interactive read/resolve/render loop.
package repl

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/tubeql/internal/query"
)

// Prompt is shown before every input line.
const Prompt = "Please enter a query: "

// LineReader supplies input lines. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Renderer presents resolver outcomes to the user.
type Renderer interface {
	Result(res *query.Result) error
	Error(err error) error
}

// Resolver resolves one input line.
type Resolver interface {
	Resolve(ctx context.Context, line string) (*query.Result, error)
}

// Session ties a reader, a resolver and a renderer together.
type Session struct {
	reader   LineReader
	resolver Resolver
	renderer Renderer
	logger   *slog.Logger
}

// NewSession creates a Session. If logger is nil, a discard logger is used.
func NewSession(reader LineReader, resolver Resolver, renderer Renderer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		reader:   reader,
		resolver: resolver,
		renderer: renderer,
		logger:   logger,
	}
}

// Run reads and resolves lines until the user quits, input ends or ctx is
// cancelled. Unrecognised input and store failures are rendered and the
// loop continues.
func (s *Session) Run(ctx context.Context) error {
	defer func() { _ = s.reader.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.reader.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			s.logger.Debug("input closed, ending session")
			return nil
		}
		if err != nil {
			return err
		}

		res, err := s.resolver.Resolve(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, query.ErrUnrecognized) {
				s.logger.Error("query failed", slog.String("input", line), slog.Any("error", err))
			}
			if rerr := s.renderer.Error(err); rerr != nil {
				return rerr
			}
			continue
		}

		if res.Kind == query.KindExit {
			s.logger.Debug("session ended by user", slog.String("verb", res.Command.Verb))
			return nil
		}

		if err := s.renderer.Result(res); err != nil {
			return err
		}
	}
}
