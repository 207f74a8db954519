package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/tubeql/internal/cli/config"
	"github.com/leapstack-labs/tubeql/internal/store"
	"golang.org/x/term"
)

// Prompter asks the user for credentials.
type Prompter interface {
	Username() (string, error)
	Password() (string, error)
}

// TerminalPrompter reads credentials from a terminal or a piped reader.
// The password is read without echo when in is a terminal. Input is
// consumed only up to the end of each answer, so lines after the
// credentials are left for the query session.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTerminalPrompter creates a prompter reading from in and writing prompts to out.
func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, out: out}
}

// Username prompts for a username. Input is echoed.
func (p *TerminalPrompter) Username() (string, error) {
	_, _ = fmt.Fprint(p.out, "Username: ")
	return p.readLine()
}

// Password prompts for a password, masking input on a terminal.
func (p *TerminalPrompter) Password() (string, error) {
	_, _ = fmt.Fprint(p.out, "Password: ")
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		b, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // file descriptors fit in int
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return p.readLine()
}

// readLine reads one byte at a time up to '\n'.
func (p *TerminalPrompter) readLine() (string, error) {
	var line strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := p.in.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				break
			}
			line.WriteByte(buf[0])
		}
		if errors.Is(err, io.EOF) {
			if line.Len() == 0 {
				return "", fmt.Errorf("failed to read input: %w", err)
			}
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
	}
	return strings.TrimRight(line.String(), "\r"), nil
}

// Connect opens the configured store.
//
// For drivers that authenticate users, missing credentials are prompted for,
// and a *store.ConnectionError re-prompts until cfg.LoginAttempts attempts
// have failed (0 means no limit). A missing database is created once and the
// connection retried.
func Connect(ctx context.Context, cfg *config.Config, prompter Prompter, logger *slog.Logger) (*store.Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sc := cfg.StoreConfig()
	needsCreds := store.NeedsCredentials(sc.Driver)

	if needsCreds && sc.Username == "" {
		if err := promptCredentials(prompter, &sc); err != nil {
			return nil, err
		}
	}

	created := false
	for attempt := 1; ; attempt++ {
		s, err := store.Open(ctx, sc, logger)
		if err == nil {
			return s, nil
		}

		if store.IsDatabaseMissing(err) && !created {
			logger.Info("database does not exist, creating it", slog.String("database", sc.Database))
			if err := store.CreateDatabase(ctx, sc, logger); err != nil {
				return nil, err
			}
			created = true
			attempt--
			continue
		}

		var connErr *store.ConnectionError
		if !needsCreds || !errors.As(err, &connErr) || ctx.Err() != nil {
			return nil, err
		}
		if cfg.LoginAttempts > 0 && attempt >= cfg.LoginAttempts {
			return nil, fmt.Errorf("giving up after %d login attempts: %w", attempt, err)
		}

		logger.Warn("login failed", slog.Int("attempt", attempt), slog.Any("error", connErr.Err))
		if err := promptCredentials(prompter, &sc); err != nil {
			return nil, err
		}
	}
}

func promptCredentials(p Prompter, sc *store.Config) error {
	user, err := p.Username()
	if err != nil {
		return err
	}
	password, err := p.Password()
	if err != nil {
		return err
	}
	sc.Username = user
	sc.Password = password
	return nil
}
