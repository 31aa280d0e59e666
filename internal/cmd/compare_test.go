package cmd

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareIdenticalFiles(t *testing.T) {
	env := newTestEnv(t)
	a := env.write(t, "baseline/main.svg", healthyFrame())
	b := env.write(t, "current/main.svg", healthyFrame())

	stdout, _, err := executeCommand(t, "compare", a, b)
	require.NoError(t, err)
	assert.Contains(t, stdout, "main.svg  1.000")
	assert.Contains(t, stdout, "✓ All 1 comparisons passed")
}

func TestCompareDirectories(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "baseline/main.svg", healthyFrame())
	env.write(t, "baseline/menu.svg", healthyFrame())
	env.write(t, "baseline/gone.svg", healthyFrame())
	env.write(t, "current/main.svg", healthyFrame())
	env.write(t, "current/menu.svg", otherFrame())
	env.write(t, "current/extra.svg", otherFrame())
	report := env.path("reports", "compare.json")

	stdout, _, err := executeCommand(t, "compare", env.path("baseline"), env.path("current"), "--output-report", report)
	require.Error(t, err)
	assert.Equal(t, "screenshot comparison failed or differences found", err.Error())
	assert.Contains(t, stdout, "gone.svg  N/A")
	assert.Contains(t, stdout, "File missing")
	assert.Contains(t, stdout, "Below threshold (0.950)")
	assert.Contains(t, stdout, "✗ 2 of 3 comparisons failed")
	assert.Contains(t, stdout, "new: extra.svg")

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var parsed compareReport
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, 0.95, parsed.Threshold)
	assert.Equal(t, compareSummary{Total: 3, Passed: 1, Failed: 2}, parsed.Summary)
	require.Len(t, parsed.Results, 3)
	assert.Equal(t, env.path("baseline", "gone.svg"), parsed.Results[0].Baseline)
	assert.Equal(t, "MISSING", parsed.Results[0].Current)
	assert.Equal(t, 0.0, parsed.Results[0].Similarity)
	assert.True(t, parsed.Results[1].Passed)
}

func TestCompareThresholdFlag(t *testing.T) {
	env := newTestEnv(t)
	a := env.write(t, "baseline/menu.svg", healthyFrame())
	b := env.write(t, "current/menu.svg", otherFrame())

	_, _, err := executeCommand(t, "compare", "-t", "0", a, b)
	require.NoError(t, err)

	_, _, err = executeCommand(t, "compare", "-t", "1.5", a, b)
	assert.ErrorContains(t, err, "threshold must be between 0.0 and 1.0")
}

func TestCompareThresholdFromConfig(t *testing.T) {
	env := newTestEnv(t)
	env.writeConfig(t, "", "compare:\n  threshold: 0\n")
	a := env.write(t, "baseline/menu.svg", healthyFrame())
	b := env.write(t, "current/menu.svg", otherFrame())

	_, _, err := executeCommand(t, "compare", a, b)
	require.NoError(t, err)
}

func TestCompareMixedKinds(t *testing.T) {
	env := newTestEnv(t)
	a := env.write(t, "baseline/main.svg", healthyFrame())

	_, _, err := executeCommand(t, "compare", a, env.root)
	assert.ErrorContains(t, err, "both paths must be files or both must be directories")
}

func TestCompareMissingPath(t *testing.T) {
	env := newTestEnv(t)
	a := env.write(t, "baseline/main.svg", healthyFrame())

	_, _, err := executeCommand(t, "compare", a, env.path("nope.svg"))
	assert.ErrorContains(t, err, "cannot read current")
}
