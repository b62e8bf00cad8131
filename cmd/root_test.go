package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuesim/queuesim/sim/scenario"
)

// overrideCmd binds a fresh flag set to the package flag variables, so each
// test starts with nothing marked as changed.
func overrideCmd(t *testing.T) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "run"}
	c.Flags().Int64Var(&seed, "seed", 42, "")
	c.Flags().IntVar(&trials, "trials", 1, "")
	c.Flags().StringVar(&trialSeeding, "trial-seeding", "shared", "")
	c.Flags().StringVar(&strategy, "strategy", "", "")
	c.Flags().Float64Var(&horizon, "horizon", 120, "")
	c.Flags().IntVar(&batchSize, "batch-size", 500, "")
	c.Flags().IntVar(&warmup, "warmup", 5, "")
	c.Flags().Float64Var(&precision, "precision", 0.01, "")
	c.Flags().Float64Var(&zValue, "z", 1.96, "")
	c.Flags().IntVar(&maxBatches, "max-batches", 0, "")
	return c
}

func TestApplyOverrides_UnsetFlagsKeepScenarioValues(t *testing.T) {
	// GIVEN the mg1 preset and no flags set
	s, err := resolveScenario("mg1", "defaults.yaml")
	require.NoError(t, err)
	before := *s.Queue

	// WHEN overrides are applied
	require.NoError(t, applyOverrides(overrideCmd(t), s))

	// THEN the preset is untouched, even where flag defaults differ
	assert.Equal(t, before, *s.Queue)
	assert.Equal(t, 1, s.Trials)
	assert.Equal(t, 100000, s.Queue.Estimator.MaxBatches)
}

func TestApplyOverrides_SetFlagsWin(t *testing.T) {
	s, err := resolveScenario("bike-station", "defaults.yaml")
	require.NoError(t, err)

	c := overrideCmd(t)
	require.NoError(t, c.Flags().Set("seed", "7"))
	require.NoError(t, c.Flags().Set("trials", "3"))
	require.NoError(t, c.Flags().Set("trial-seeding", "independent"))
	require.NoError(t, c.Flags().Set("strategy", "aggregate"))
	require.NoError(t, c.Flags().Set("horizon", "10"))
	require.NoError(t, c.Flags().Set("precision", "0.5"))

	require.NoError(t, applyOverrides(c, s))

	assert.Equal(t, int64(7), s.Seed)
	assert.Equal(t, 3, s.Trials)
	assert.Equal(t, "independent", s.TrialSeeding)
	assert.Equal(t, "aggregate", s.Station.Strategy)
	assert.Equal(t, 10.0, s.Station.Horizon)
	assert.Equal(t, 0.5, s.Station.Estimator.Precision)
	assert.Equal(t, 1, s.Station.Estimator.BatchSize, "unset estimator flags keep the preset")
	assert.NoError(t, s.Validate())
}

func TestApplyOverrides_HorizonOnQueueFails(t *testing.T) {
	s, err := resolveScenario("mg1", "defaults.yaml")
	require.NoError(t, err)
	c := overrideCmd(t)
	require.NoError(t, c.Flags().Set("horizon", "10"))
	assert.ErrorContains(t, applyOverrides(c, s), "has no horizon")
}

func TestRunScenario_JSON(t *testing.T) {
	// GIVEN a short station run with JSON output, trace and metrics
	s, err := resolveScenario("bike-station", "defaults.yaml")
	require.NoError(t, err)
	s.Trials = 2
	s.Station.Horizon = 10

	outputFormat, traceLevel, printMetrics = "json", "events", false
	t.Cleanup(func() { outputFormat, traceLevel, printMetrics = "text", "none", false })

	// WHEN run
	var buf bytes.Buffer
	require.NoError(t, runScenario(s, &buf))

	// THEN the report decodes and carries the trace summary
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "station", decoded["model"])
	assert.Len(t, decoded["trials"], 2)
	tr := decoded["trace"].(map[string]any)
	assert.Equal(t, decoded["events"], tr["total_events"])
}

func TestRunScenario_TextWithMetrics(t *testing.T) {
	s, err := resolveScenario("epidemic", "defaults.yaml")
	require.NoError(t, err)
	s.Trials = 3

	outputFormat, traceLevel, printMetrics = "text", "none", true
	t.Cleanup(func() { outputFormat, traceLevel, printMetrics = "text", "none", false })

	var buf bytes.Buffer
	require.NoError(t, runScenario(s, &buf))
	out := buf.String()
	assert.Contains(t, out, "=== Summary ===")
	assert.Contains(t, out, "Trials                : 3")
	assert.Contains(t, out, "=== Run Metrics ===")
	assert.Contains(t, out, "queuesim_trials_total{model=epidemic,strategy=contact} counter=3.000000")
}

func TestRunScenario_TraceLevelNone_NoTraceSection(t *testing.T) {
	s, err := resolveScenario("epidemic", "defaults.yaml")
	require.NoError(t, err)
	s.Trials = 2

	outputFormat, traceLevel, printMetrics = "json", "none", false
	t.Cleanup(func() { outputFormat, traceLevel, printMetrics = "text", "none", false })

	var buf bytes.Buffer
	require.NoError(t, runScenario(s, &buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.NotContains(t, decoded, "trace")
}

func TestTraceLevelFlag(t *testing.T) {
	f := runCmd.Flags().Lookup("trace-level")
	require.NotNil(t, f)
	assert.Equal(t, "none", f.DefValue)
	assert.Nil(t, runCmd.Flags().Lookup("trace"), "the boolean switch is gone")
}

func TestListPresets(t *testing.T) {
	pf := &scenario.PresetFile{Presets: map[string]scenario.Scenario{
		"b": {Model: "queue", Description: "second"},
		"a": {Model: "station", Description: "first"},
	}}
	var buf bytes.Buffer
	listPresets(&buf, pf)
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "station")
	assert.Contains(t, string(lines[0]), "first")
	assert.Contains(t, string(lines[1]), "second")
}
