// Package schema applies a DDL script statement by statement.
package schema

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/tubeql/internal/store"
)

// DefaultDDL creates the stations, trainlines and passes tables.
//
//go:embed schema.sql
var DefaultDDL string

// Table names used by the importer and the query resolver.
const (
	StationsTable = "stations"
	LinesTable    = "trainlines"
	PassesTable   = "passes"
)

// Report summarises one Apply call.
type Report struct {
	Executed int
	Failed   []*store.StatementError
}

// OK reports whether every statement succeeded.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Loader applies DDL scripts to a store.
type Loader struct {
	store  *store.Store
	logger *slog.Logger
}

// NewLoader creates a Loader. If logger is nil, a discard logger is used.
func NewLoader(s *store.Store, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{store: s, logger: logger}
}

// ApplyFile reads the DDL at path and applies it. An empty path applies
// DefaultDDL.
func (l *Loader) ApplyFile(ctx context.Context, path string) (*Report, error) {
	if path == "" {
		l.logger.Debug("applying embedded schema")
		return l.Apply(ctx, DefaultDDL)
	}

	content, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	l.logger.Debug("applying schema file", slog.String("path", path))
	return l.Apply(ctx, string(content))
}

// Apply executes every statement of ddl in order. A failing statement is
// logged and recorded in the report, and the next statement still runs.
// Only context cancellation stops the loop early.
func (l *Loader) Apply(ctx context.Context, ddl string) (*Report, error) {
	report := &Report{}

	for _, stmt := range Split(ddl) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, err := l.store.Exec(ctx, stmt); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			var stmtErr *store.StatementError
			if !errors.As(err, &stmtErr) {
				stmtErr = &store.StatementError{Statement: stmt, Err: err}
			}
			l.logger.Error("schema statement failed", slog.String("sql", stmt), slog.Any("error", stmtErr.Err))
			report.Failed = append(report.Failed, stmtErr)
			continue
		}
		report.Executed++
	}

	l.logger.Debug("schema applied", slog.Int("executed", report.Executed), slog.Int("failed", len(report.Failed)))
	return report, nil
}

// Split breaks ddl on ';' and drops statements that are blank or made only
// of '--' comment lines.
func Split(ddl string) []string {
	var out []string
	for _, part := range strings.Split(ddl, ";") {
		stmt := strings.TrimSpace(part)
		if stmt == "" || onlyComments(stmt) {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func onlyComments(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
