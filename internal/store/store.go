// Package store holds the single database connection tubeql keeps open for
// the lifetime of the process.
//
// Concrete drivers (sqlite, postgres, duckdb) register themselves with the
// driver registry in this package. Every statement goes through Store so
// that placeholders are rebound for the active dialect and failures surface
// as *StatementError.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Config holds everything needed to open a connection.
type Config struct {
	Driver         string
	Path           string
	Host           string
	Port           int
	Database       string
	Username       string
	Password       string
	Options        map[string]string
	ConnectTimeout time.Duration
}

// Dialect describes the SQL flavour of a driver.
type Dialect struct {
	Name string

	// Placeholder formats the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// NeedsCredentials reports whether the engine authenticates users.
	NeedsCredentials bool
}

// QuestionPlaceholder is the placeholder style of sqlite and duckdb.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the placeholder style of postgres.
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// Store wraps a *sql.DB restricted to one open connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// New wraps an already opened database handle.
// If logger is nil, a discard logger is used.
func New(db *sql.DB, d Dialect, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if d.Placeholder == nil {
		d.Placeholder = QuestionPlaceholder
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Store{db: db, dialect: d, logger: logger}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the dialect of the connected engine.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Debug("closing database connection", slog.String("driver", s.dialect.Name))
	return s.db.Close()
}

// Rebind rewrites '?' placeholders into the dialect's placeholder style.
// Question marks inside single-quoted literals and '--' line comments are
// left alone, and quotes inside comments do not open a literal.
func (s *Store) Rebind(query string) string {
	if s.dialect.Placeholder == nil {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	n := 0
	inQuote, inComment := false, false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case inComment:
			if c == '\n' {
				inComment = false
			}
			b.WriteByte(c)
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '-' && !inQuote && i+1 < len(query) && query[i+1] == '-':
			inComment = true
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteString(s.dialect.Placeholder(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Exec executes a statement that returns no rows.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = s.Rebind(strings.TrimSpace(query))
	s.logger.Debug("executing statement", slog.String("sql", query), slog.Any("args", args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &StatementError{Statement: query, Err: err}
	}
	return res, nil
}

// Strings runs a single-column query and collects the values as strings.
// An empty slice with a nil error means the query matched no rows.
func (s *Store) Strings(ctx context.Context, query string, args ...any) ([]string, error) {
	query = s.Rebind(strings.TrimSpace(query))
	s.logger.Debug("executing query", slog.String("sql", query), slog.Any("args", args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StatementError{Statement: query, Err: err}
	}
	defer func() { _ = rows.Close() }()

	out := []string{}
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, &StatementError{Statement: query, Err: err}
		}
		out = append(out, v.String)
	}
	if err := rows.Err(); err != nil {
		return nil, &StatementError{Statement: query, Err: err}
	}
	return out, nil
}

// Count returns the number of rows in table. The table name is interpolated
// and must never come from user input.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	query := "SELECT COUNT(*) FROM " + table //nolint:gosec // table names are package constants
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, &StatementError{Statement: query, Err: err}
	}
	return n, nil
}

// Tx is a transaction whose statements are rebound like Store's.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// Begin starts a transaction on the store's connection.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StatementError{Statement: "BEGIN", Err: err}
	}
	return &Tx{tx: tx, store: s}, nil
}

// Prepare prepares a parameterised statement inside the transaction.
func (t *Tx) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	query = t.store.Rebind(strings.TrimSpace(query))
	stmt, err := t.tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, &StatementError{Statement: query, Err: err}
	}
	return stmt, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return &StatementError{Statement: "COMMIT", Err: err}
	}
	return nil
}

// Rollback aborts the transaction. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return &StatementError{Statement: "ROLLBACK", Err: err}
	}
	return nil
}
