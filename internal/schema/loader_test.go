package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/tubeql/internal/store"
	"github.com/leapstack-labs/tubeql/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Driver: "sqlite", Database: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		ddl  string
		want []string
	}{
		{
			name: "single statement without terminator",
			ddl:  "CREATE TABLE a (id INT)",
			want: []string{"CREATE TABLE a (id INT)"},
		},
		{
			name: "blank and trailing statements dropped",
			ddl:  "CREATE TABLE a (id INT);\n\n;  ;CREATE TABLE b (id INT);\n",
			want: []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"},
		},
		{
			name: "comment-only chunk dropped",
			ddl:  "CREATE TABLE a (id INT);\n-- trailing note\n",
			want: []string{"CREATE TABLE a (id INT)"},
		},
		{
			name: "leading comment kept with statement",
			ddl:  "-- stations\nCREATE TABLE a (id INT);",
			want: []string{"-- stations\nCREATE TABLE a (id INT)"},
		},
		{
			name: "empty",
			ddl:  "  \n ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.ddl))
		})
	}
}

func TestSplit_DefaultDDL(t *testing.T) {
	stmts := Split(DefaultDDL)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "stations")
	assert.Contains(t, stmts[1], "trainlines")
	assert.Contains(t, stmts[2], "passes")
}

func TestLoader_ApplyDefaultIsIdempotent(t *testing.T) {
	s := openMemory(t)
	loader := NewLoader(s, testutil.NewTestLogger(t))
	ctx := context.Background()

	for range 2 {
		report, err := loader.ApplyFile(ctx, "")
		require.NoError(t, err)
		assert.True(t, report.OK())
		assert.Equal(t, 3, report.Executed)
	}

	for _, table := range []string{StationsTable, LinesTable, PassesTable} {
		n, err := s.Count(ctx, table)
		require.NoError(t, err, "table %s should exist", table)
		assert.Zero(t, n)
	}
}

func TestLoader_FailedStatementIsSkipped(t *testing.T) {
	s := openMemory(t)
	loader := NewLoader(s, testutil.NewTestLogger(t))
	ctx := context.Background()

	ddl := `
CREATE TABLE stations (id TEXT PRIMARY KEY, name TEXT);
CREATE TABLE stations (id TEXT PRIMARY KEY, name TEXT);
CREATE TABLE trainlines (id INTEGER PRIMARY KEY, name TEXT);
`
	report, err := loader.Apply(ctx, ddl)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, 2, report.Executed)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Statement, "CREATE TABLE stations")

	// the statement after the failure still ran
	_, err = s.Count(ctx, LinesTable)
	assert.NoError(t, err)
}

func TestLoader_NoRollbackOnPartialFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b").WillReturnError(assert.AnError)
	mock.ExpectExec("CREATE TABLE c").WillReturnResult(sqlmock.NewResult(0, 0))

	loader := NewLoader(store.New(db, store.SQLiteDialect, nil), nil)
	report, err := loader.Apply(context.Background(), "CREATE TABLE a (x INT); CREATE TABLE b (x INT); CREATE TABLE c (x INT);")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Executed)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0], assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoader_CancelledContext(t *testing.T) {
	s := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewLoader(s, nil).Apply(ctx, DefaultDDL)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Executed)
}

func TestLoader_ApplyFile(t *testing.T) {
	s := openMemory(t)
	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte(DefaultDDL), 0o600))

	report, err := NewLoader(s, nil).ApplyFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Executed)

	_, err = NewLoader(s, nil).ApplyFile(context.Background(), filepath.Join(t.TempDir(), "missing.sql"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}
