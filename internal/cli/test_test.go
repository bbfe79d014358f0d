package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: merge-two
description: Two elements, one compare
input: [2, 1]
expect:
  output: [1, 2]
assertions:
  - type: sorted
  - type: final_neutral
  - type: op_count
    kind: compare
    count: 1
`

const failingScenario = `name: wrong-count
description: Claims the wrong number of compares
input: [5, 3, 8, 1]
assertions:
  - type: op_count
    kind: compare
    count: 99
`

const insertionScenario = `name: insertion-three
description: Insertion sort over three values
algorithm: insertion
input: [3, 1, 2]
expect:
  output: [1, 2, 3]
assertions:
  - type: sorted
  - type: stable
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommand_AllPass(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"merge-two.yaml":      passingScenario,
		"insertion-three.yml": insertionScenario,
		"notes.txt":           "not a scenario",
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ merge-two")
	assert.Contains(t, out, "✓ insertion-three")
	assert.Contains(t, out, "2 passed, 0 failed, 2 total")
}

func TestTestCommand_Failure(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"merge-two.yaml":   passingScenario,
		"wrong-count.yaml": failingScenario,
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong-count")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommand_FailureJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"merge-two.yaml":   passingScenario,
		"wrong-count.yaml": failingScenario,
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeScenarioFail, resp.Error.Code)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Failed)
	for _, s := range result.Scenarios {
		if s.Name == "wrong-count" {
			assert.False(t, s.Pass)
			assert.NotEmpty(t, s.Errors)
		} else {
			assert.True(t, s.Pass)
			assert.NotEmpty(t, s.Digest)
		}
	}
}

func TestTestCommand_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"merge-two.yaml":   passingScenario,
		"wrong-count.yaml": failingScenario,
	})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "merge-*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong-count")

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Golden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"merge-two.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "merge-two.golden")

	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"merge-two"`)
	assert.Contains(t, string(golden), `{"index":0,"index_b":1,"kind":"compare","seq":5}`)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ merge-two")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"trace":[]}`), 0644))
	out, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_BadScenario(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"typo.yaml": "name: typo\ndescriptoin: oops\ninput: [1]\n"})

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ typo.yaml")
	assert.Contains(t, out, "load:")
}

func TestTestCommand_Errors(t *testing.T) {
	_, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)

	out, err := execute(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
