package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/mergeviz/internal/engine"
	"github.com/roach88/mergeviz/internal/protocol"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Algorithm selects the sorting algorithm. Empty means merge.
	Algorithm string `yaml:"algorithm,omitempty"`

	// Input is the sequence to sort. Required; use [] for an empty input.
	Input []int64 `yaml:"input"`

	// Expect optionally pins the sorted output.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the run and its trace.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run ID.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// ExpectClause specifies the expected outcome of a run.
type ExpectClause struct {
	// Output is the expected sorted values.
	Output []int64 `yaml:"output"`
}

// Assertion validates a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sorted": output is non-decreasing
	// - "stable": equal values keep their input order
	// - "final_neutral": the trace ends with one Neutral SetPhase per index
	// - "op_count": the trace has exactly Count operations of Kind
	// - "last_write": the last Overwrite per index reproduces the output
	// - "deterministic": a second run emits an identical trace
	// - "max_index": every operation index is within the sequence
	Type string `yaml:"type"`

	// Kind is the operation kind (used by op_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of operations (used by op_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSorted        = "sorted"
	AssertStable        = "stable"
	AssertFinalNeutral  = "final_neutral"
	AssertOpCount       = "op_count"
	AssertLastWrite     = "last_write"
	AssertDeterministic = "deterministic"
	AssertMaxIndex      = "max_index"
)

// LoadScenario reads and parses a scenario file. Unknown fields are
// rejected so a misspelled key fails loudly instead of being ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	scenario := new(Scenario)
	if err := dec.Decode(scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := scenario.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %q: %w", scenario.Name, err)
	}
	return scenario, nil
}

func (s *Scenario) validate() error {
	switch {
	case s.Name == "":
		return errors.New("name is required")
	case s.Description == "":
		return errors.New("description is required")
	case s.Input == nil:
		return errors.New("input is required (use [] for an empty sequence)")
	case len(s.Assertions) == 0:
		return errors.New("at least one assertion is required")
	case s.Expect != nil && len(s.Expect.Output) != len(s.Input):
		return fmt.Errorf("expect.output has %d values, input has %d", len(s.Expect.Output), len(s.Input))
	}
	if _, err := engine.LookupAlgorithm(s.Algorithm); err != nil {
		return err
	}
	for i := range s.Assertions {
		if err := s.Assertions[i].validate(); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *Assertion) validate() error {
	switch a.Type {
	case AssertSorted, AssertStable, AssertFinalNeutral, AssertLastWrite, AssertDeterministic, AssertMaxIndex:
		return nil
	case AssertOpCount:
		if _, err := protocol.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("op_count: %w", err)
		}
		if a.Count < 0 {
			return fmt.Errorf("op_count: negative count %d", a.Count)
		}
		return nil
	case "":
		return errors.New("type is required")
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
