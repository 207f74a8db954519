package repl

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/tubeql/internal/query"
	"github.com/leapstack-labs/tubeql/internal/store"
	"github.com/leapstack-labs/tubeql/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scriptedReader replays input lines. A nil error entry in errs means the
// matching line is returned normally.
type scriptedReader struct {
	lines  []string
	errs   []error
	pos    int
	closed bool
}

func script(lines ...string) *scriptedReader {
	return &scriptedReader{lines: lines, errs: make([]error, len(lines))}
}

func (r *scriptedReader) Readline() (string, error) {
	if r.pos >= len(r.lines) {
		return "", io.EOF
	}
	line, err := r.lines[r.pos], r.errs[r.pos]
	r.pos++
	return line, err
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

// fakeResolver answers from a fixed table, falling back to the real parser
// for verbs it does not know.
type fakeResolver struct {
	calls   []string
	answers map[string]*query.Result
	fail    map[string]error
}

func (f *fakeResolver) Resolve(_ context.Context, line string) (*query.Result, error) {
	f.calls = append(f.calls, line)
	if err, ok := f.fail[line]; ok {
		return nil, err
	}
	if res, ok := f.answers[line]; ok {
		return res, nil
	}
	cmd := query.Parse(line)
	if cmd.IsExit() {
		return &query.Result{Kind: query.KindExit, Command: cmd}, nil
	}
	return nil, &query.SyntaxError{Input: line}
}

type recordingRenderer struct {
	results []*query.Result
	errs    []error
}

func (r *recordingRenderer) Result(res *query.Result) error {
	r.results = append(r.results, res)
	return nil
}

func (r *recordingRenderer) Error(err error) error {
	r.errs = append(r.errs, err)
	return nil
}

func centralAnswer() map[string]*query.Result {
	return map[string]*query.Result{
		"line Central": {
			Kind:  query.KindNames,
			Title: "Stations on Central",
			Names: []string{"Bank", "Oxford Circus"},
		},
	}
}

func TestSession_QuitEndsLoop(t *testing.T) {
	for _, verb := range []string{"quit", "exit", "  EXIT  "} {
		t.Run(strings.TrimSpace(verb), func(t *testing.T) {
			reader := script("line Central", verb, "line Central")
			resolver := &fakeResolver{answers: centralAnswer()}
			renderer := &recordingRenderer{}

			err := NewSession(reader, resolver, renderer, testutil.NewTestLogger(t)).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 2, reader.pos, "lines after quit must not be read")
			assert.Len(t, renderer.results, 1)
			assert.True(t, reader.closed)
		})
	}
}

func TestSession_UnrecognisedKeepsRunning(t *testing.T) {
	reader := script("", "foo bar", "   ", "line Central", "quit")
	resolver := &fakeResolver{answers: centralAnswer()}
	renderer := &recordingRenderer{}

	err := NewSession(reader, resolver, renderer, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, resolver.calls, 5)
	require.Len(t, renderer.errs, 3)
	for _, e := range renderer.errs {
		assert.ErrorIs(t, e, query.ErrUnrecognized)
	}
	require.Len(t, renderer.results, 1)
	assert.Equal(t, []string{"Bank", "Oxford Circus"}, renderer.results[0].Names)
}

func TestSession_StoreErrorKeepsRunning(t *testing.T) {
	stmtErr := &store.StatementError{Statement: "SELECT 1", Err: assert.AnError}
	reader := script("station Bank", "line Central", "exit")
	resolver := &fakeResolver{
		answers: centralAnswer(),
		fail:    map[string]error{"station Bank": stmtErr},
	}
	renderer := &recordingRenderer{}

	err := NewSession(reader, resolver, renderer, testutil.NewTestLogger(t)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, renderer.errs, 1)
	assert.ErrorIs(t, renderer.errs[0], assert.AnError)
	assert.Len(t, renderer.results, 1)
}

func TestSession_EOFEndsLoop(t *testing.T) {
	reader := script("line Central")
	renderer := &recordingRenderer{}

	err := NewSession(reader, &fakeResolver{answers: centralAnswer()}, renderer, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, renderer.results, 1)
	assert.True(t, reader.closed)
}

func TestSession_InterruptDiscardsLine(t *testing.T) {
	reader := script("line Cent", "line Central", "quit")
	reader.errs[0] = readline.ErrInterrupt
	resolver := &fakeResolver{answers: centralAnswer()}

	err := NewSession(reader, resolver, &recordingRenderer{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"line Central", "quit"}, resolver.calls)
}

func TestSession_ReaderFailure(t *testing.T) {
	reader := script("line Central")
	reader.errs[0] = assert.AnError

	err := NewSession(reader, &fakeResolver{}, &recordingRenderer{}, nil).Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := script("line Central")
	err := NewSession(reader, &fakeResolver{}, &recordingRenderer{}, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reader.pos)
}

type staticCompletions []string

func (s staticCompletions) Completions(context.Context) ([]string, error) {
	return s, nil
}

func childNames(pc readline.PrefixCompleterInterface) []string {
	var out []string
	for _, c := range pc.GetChildren() {
		out = append(out, strings.TrimSpace(string(c.GetName())))
	}
	return out
}

func TestNewCompleter(t *testing.T) {
	pc := NewCompleter(context.Background(), staticCompletions{
		"list stations",
		"help",
		"station Bank",
		"station Oxford Circus",
		"line Central",
	})

	assert.Equal(t, []string{"station", "line", "list", "help", "quit", "exit"}, childNames(pc))

	children := pc.GetChildren()
	assert.Equal(t, []string{"Bank", "Oxford Circus"}, childNames(children[0]))
	assert.Equal(t, []string{"Central"}, childNames(children[1]))
	assert.Equal(t, []string{"stations", "lines"}, childNames(children[2]))
}
