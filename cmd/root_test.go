package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homesim/homesim/sim/record"
	"github.com/homesim/homesim/sim/scenario"
	"github.com/homesim/homesim/sim/trace"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

const breakfast = `
version: 1
seed: 3
end: 120
entities:
  - {type: Clock, prefix: clock}
  - {type: ManageApp, prefix: app, params: {coffee_time: 2}}
connections:
  - {from: clock_0.val, to: app_0.time}
record: [clock_0.val, app_0.coffee_on]
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunScenario_JSONL(t *testing.T) {
	// GIVEN a scenario and a compressed JSONL output
	out := filepath.Join(t.TempDir(), "run.jsonl.zst")

	// WHEN it runs
	sum, err := runScenario(context.Background(), runOptions{ScenarioPath: writeScenario(t, breakfast), OutPath: out})
	require.NoError(t, err)

	// THEN one record per tick is written under the run id
	assert.Equal(t, 25, sum.Ticks, "ManageApp steps every 5 s from 0 to 120")
	assert.Equal(t, int64(120), sum.Clock)
	assert.Nil(t, sum.Trace)
	h, recs, err := record.ReadJSONLZstd(out)
	require.NoError(t, err)
	assert.Equal(t, sum.RunID, h.RunID)
	require.Len(t, recs, 25)
	assert.Len(t, recs[0].Samples, 2)
}

func TestRunScenario_SQLiteWithOverrides(t *testing.T) {
	// GIVEN a SQLite output and an end override
	out := filepath.Join(t.TempDir(), "run.db")
	end := int64(60)

	// WHEN it runs
	sum, err := runScenario(context.Background(), runOptions{
		ScenarioPath: writeScenario(t, breakfast),
		OutPath:      out,
		End:          &end,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), sum.Clock)

	// THEN the clock reading is stored per tick, and coffee is on once it reads 2
	db, err := record.OpenSQLite(out, "reader")
	require.NoError(t, err)
	defer db.Close()
	clock, err := db.Series(sum.RunID, "clock_0", "val")
	require.NoError(t, err)
	assert.Len(t, clock, 13)
	coffee, err := db.Series(sum.RunID, "app_0", "coffee_on")
	require.NoError(t, err)
	assert.False(t, coffee[55].Bool())
	assert.True(t, coffee[60].Bool())
}

func TestRunScenario_DecisionTrace(t *testing.T) {
	// GIVEN decision tracing requested on the command line
	sum, err := runScenario(context.Background(), runOptions{
		ScenarioPath: writeScenario(t, breakfast),
		Trace:        trace.TraceLevelDecisions,
	})
	require.NoError(t, err)

	// THEN every ManageApp pass is summarised
	require.NotNil(t, sum.Trace)
	assert.Equal(t, 25, sum.Trace.TotalPasses)

	var buf bytes.Buffer
	printSummary(&buf, sum)
	assert.Contains(t, buf.String(), "=== Run Summary ===")
	assert.Contains(t, buf.String(), "=== Decision Trace ===")
	assert.Contains(t, buf.String(), "time_for_coffee")
}

func TestRunScenario_Errors(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	tests := []struct {
		name string
		opts runOptions
	}{
		{name: "missing scenario", opts: runOptions{ScenarioPath: filepath.Join(t.TempDir(), "none.yaml")}},
		{name: "unknown type", opts: runOptions{ScenarioPath: writeScenario(t, "version: 1\nend: 5\nentities: [{type: Toaster}]\n")}},
		{name: "bad format", opts: runOptions{ScenarioPath: writeScenario(t, breakfast), Format: "parquet", OutPath: "x"}},
		{name: "format without out", opts: runOptions{ScenarioPath: writeScenario(t, breakfast), Format: "sqlite"}},
		{name: "unwritable out", opts: runOptions{ScenarioPath: writeScenario(t, breakfast), OutPath: filepath.Join(blocker, "run.jsonl")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runScenario(context.Background(), tc.opts)
			assert.Error(t, err)
		})
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format, path string
		want         string
	}{
		{format: "", path: "", want: "none"},
		{format: "", path: "out.db", want: "sqlite"},
		{format: "", path: "out.sqlite", want: "sqlite"},
		{format: "", path: "out.jsonl.zst", want: "jsonl"},
		{format: "jsonl", path: "out.db", want: "jsonl"},
		{format: "none", path: "out.db", want: "none"},
	}
	for _, tc := range tests {
		got, err := resolveFormat(tc.format, tc.path)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "format=%q path=%q", tc.format, tc.path)
	}
}

func TestValidateScenario(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, validateScenario(&buf, writeScenario(t, breakfast)))
	assert.Contains(t, buf.String(), "ok (2 entities, 1 connections, end=120)")

	cycle := `
version: 1
end: 10
entities:
  - {type: Building, prefix: house}
  - {type: Control, prefix: ctl}
connections:
  - {from: house_0.T_int, to: ctl_0.T}
  - {from: ctl_0.Pset_heat, to: house_0.Pset}
`
	assert.Error(t, validateScenario(&buf, writeScenario(t, cycle)))
}

func TestValidateScenario_Examples(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "examples", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		var buf bytes.Buffer
		assert.NoError(t, validateScenario(&buf, path), path)
	}
}

func TestPrintTypes(t *testing.T) {
	var buf bytes.Buffer
	printTypes(&buf, scenario.DefaultCatalog())
	out := buf.String()
	assert.Contains(t, out, "Control (step 5s)")
	assert.Contains(t, out, "Grid (step 5s)")
	assert.Contains(t, out, "P:float/sum")
	assert.Contains(t, out, "heating:bool")
}
