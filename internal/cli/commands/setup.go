package commands

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/tubeql/internal/cli/config"
	"github.com/leapstack-labs/tubeql/internal/cli/output"
	"github.com/leapstack-labs/tubeql/internal/store"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *store.Store
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open store, prompting
// for credentials when the driver needs them.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutStore(cmd)

	prompter := NewTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	s, err := Connect(cmd.Context(), cc.Cfg, prompter, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Store = s

	cleanup := func() {
		_ = s.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a store.
// Useful for commands that don't need database access.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromContext(ctx)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: r,
	}
}
