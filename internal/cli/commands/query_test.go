package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/tubeql/internal/cli/config"
	"github.com/leapstack-labs/tubeql/internal/cli/output"
	clitestutil "github.com/leapstack-labs/tubeql/internal/cli/testutil"
	"github.com/leapstack-labs/tubeql/internal/importer"
	"github.com/leapstack-labs/tubeql/internal/query"
	"github.com/leapstack-labs/tubeql/internal/schema"
	"github.com/leapstack-labs/tubeql/internal/store"
	"github.com/leapstack-labs/tubeql/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadProjectConfig sets up a test project and loads its configuration.
func loadProjectConfig(t *testing.T) *config.Config {
	t.Helper()
	clitestutil.SetupTestProject(t)
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	return cfg
}

// execute runs cmd with cfg in its context and returns stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, cfg *config.Config, args ...string) (string, string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(args)

	ctx := config.WithConfig(context.Background(), cfg)
	ctx = context.WithValue(ctx, config.LoggerKey(), testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func newTestCommandContext(t *testing.T, cfg *config.Config) (*CommandContext, *clitestutil.TestRenderer) {
	t.Helper()
	s, err := store.Open(context.Background(), cfg.StoreConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tr := clitestutil.NewTestRenderer(output.ModeMarkdown, false)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   testutil.NewTestLogger(t),
		Store:    s,
		Renderer: tr.Renderer,
	}, tr
}

func TestLoadCommand(t *testing.T) {
	cfg := loadProjectConfig(t)

	out, _, err := execute(t, NewLoadCommand(), cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 4 stations, 3 lines and 6 passes")

	_, err = os.Stat("tube.db")
	require.NoError(t, err, "sqlite file named after db_name")

	_, _, err = execute(t, NewLoadCommand(), cfg)
	require.ErrorIs(t, err, importer.ErrTargetNotEmpty)
	assert.Contains(t, err.Error(), "Hint:")
}

func TestLoadCommand_MissingDataFile(t *testing.T) {
	cfg := loadProjectConfig(t)
	cfg.DataPath = filepath.Join(t.TempDir(), "missing.json")

	_, _, err := execute(t, NewLoadCommand(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open data file")
}

func TestQueryCommand_OneShot(t *testing.T) {
	cfg := loadProjectConfig(t)
	_, _, err := execute(t, NewLoadCommand(), cfg)
	require.NoError(t, err)

	cfg.Output = string(output.ModeJSON)
	out, _, err := execute(t, NewQueryCommand(), cfg, "line", "Central")
	require.NoError(t, err)

	var got output.ResultOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "names", got.Kind)
	assert.Equal(t, "line Central", got.Query)
	assert.ElementsMatch(t, []string{"Oxford Circus", "Bank"}, got.Names)

	out, _, err = execute(t, NewQueryCommand(), cfg, "station", "Oxford", "Circus")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.ElementsMatch(t, []string{"Central", "Victoria"}, got.Names)
}

func TestQueryCommand_UnknownStationIsNotAnError(t *testing.T) {
	cfg := loadProjectConfig(t)
	_, _, err := execute(t, NewLoadCommand(), cfg)
	require.NoError(t, err)

	cfg.Output = string(output.ModeMarkdown)
	out, _, err := execute(t, NewQueryCommand(), cfg, "station", "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, "_No such station_\n", out)
}

func TestQueryCommand_Unrecognised(t *testing.T) {
	cfg := loadProjectConfig(t)

	_, _, err := execute(t, NewQueryCommand(), cfg, "foo", "bar")
	require.ErrorIs(t, err, query.ErrUnrecognized)
}

func TestQueryCommand_ExitIsNoop(t *testing.T) {
	cfg := loadProjectConfig(t)

	out, _, err := execute(t, NewQueryCommand(), cfg, "quit")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPrepareStore_SkipsLoadedNetwork(t *testing.T) {
	cfg := loadProjectConfig(t)
	cc, tr := newTestCommandContext(t, cfg)
	ctx := context.Background()

	summary, err := prepareStore(ctx, cc, true)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 6, summary.Passes)

	summary, err = prepareStore(ctx, cc, true)
	require.NoError(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, tr.Output(), "Network already loaded in tube, skipping import")

	n, err := cc.Store.Count(ctx, schema.LinesTable)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestPrepareStore_SchemaFailuresAreWarnings(t *testing.T) {
	cfg := loadProjectConfig(t)
	cfg.SchemaPath = filepath.Join(t.TempDir(), "schema.sql")
	ddl := schema.DefaultDDL + "\nCREATE TABLE broken (;\n"
	require.NoError(t, os.WriteFile(cfg.SchemaPath, []byte(ddl), 0o600))

	cc, tr := newTestCommandContext(t, cfg)

	summary, err := prepareStore(context.Background(), cc, true)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Contains(t, tr.ErrorOutput(), "1 of 4 schema statements failed")
	clitestutil.AssertNoANSI(t, tr.Output())
	clitestutil.AssertValidMarkdown(t, tr.Output())
}
