package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mergeviz/internal/protocol"
)

// goldenDir holds the canonical traces compared by RunWithGolden.
const goldenDir = "testdata/golden"

// MarshalSnapshot renders a scenario result as canonical JSON: the
// scenario name, algorithm, input and output values, and the full trace.
// Timing never appears, so two runs of a scenario snapshot identically.
func MarshalSnapshot(scenario *Scenario, result *Result) ([]byte, error) {
	algorithm := scenario.Algorithm
	if algorithm == "" {
		algorithm = result.Report.Algorithm
	}
	return protocol.MarshalCanonical(map[string]any{
		"scenario_name": scenario.Name,
		"algorithm":     algorithm,
		"input":         protocol.Values(result.Input),
		"output":        result.Output(),
		"trace":         result.Trace,
	})
}

// RunWithGolden runs scenario and asserts its snapshot against
// testdata/golden/<name>.golden. Pass -update to the test binary to
// rewrite the fixtures.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	snapshot, err := MarshalSnapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	goldie.New(t,
		goldie.WithFixtureDir(goldenDir),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, scenario.Name, snapshot)
	return result, nil
}
