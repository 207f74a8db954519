package store

import (
	"fmt"
	"strings"
)

// ConnectionError is returned when the store cannot be reached or rejects
// the supplied credentials. Callers may retry with new credentials.
type ConnectionError struct {
	Driver   string
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to %s database %q: %v", e.Driver, e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError is returned when the target database is absent and could not
// be created.
type SchemaError struct {
	Database string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("failed creating database %q: %v", e.Database, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// StatementError wraps the failure of a single DDL or DML statement.
type StatementError struct {
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement failed: %v\n  %s", e.Err, firstLine(e.Statement))
}

func (e *StatementError) Unwrap() error { return e.Err }

// UnknownDriverError is returned when an unregistered driver is requested.
type UnknownDriverError struct {
	Driver    string
	Available []string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown driver %q\nAvailable drivers: %v\nHint: Check driver in tubeql.yaml", e.Driver, e.Available)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
