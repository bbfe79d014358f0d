package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/mergeviz/internal/protocol"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// RerunFunc sorts values again and returns the emitted trace.
type RerunFunc func(values []int64) ([]protocol.Operation, error)

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// rerun is required by deterministic assertions only.
func EvaluateAssertions(result *Result, assertions []Assertion, rerun RerunFunc) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSorted:
			err = assertSorted(result)
		case AssertStable:
			err = assertStable(result)
		case AssertFinalNeutral:
			err = assertFinalNeutral(result)
		case AssertOpCount:
			err = assertOpCount(result, assertion)
		case AssertLastWrite:
			err = assertLastWrite(result)
		case AssertDeterministic:
			if rerun == nil {
				err = fmt.Errorf("assertion[%d]: deterministic requires a rerun function", i)
			} else {
				err = assertDeterministic(result, rerun)
			}
		case AssertMaxIndex:
			err = assertMaxIndex(result)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertSorted(result *Result) error {
	for i := 1; i < len(result.Final); i++ {
		if result.Final[i-1].Value > result.Final[i].Value {
			return &AssertionError{
				Type:     AssertSorted,
				Expected: "non-decreasing values",
				Actual:   fmt.Sprintf("%d before %d at index %d", result.Final[i-1].Value, result.Final[i].Value, i),
			}
		}
	}
	return nil
}

func assertStable(result *Result) error {
	for i := 1; i < len(result.Final); i++ {
		prev, cur := result.Final[i-1], result.Final[i]
		if prev.Value == cur.Value && prev.Key > cur.Key {
			return &AssertionError{
				Type:     AssertStable,
				Expected: fmt.Sprintf("equal values %d in input order", cur.Value),
				Actual:   fmt.Sprintf("key %d before key %d at index %d", prev.Key, cur.Key, i),
			}
		}
	}
	return nil
}

func assertFinalNeutral(result *Result) error {
	n := len(result.Final)
	for i, e := range result.Final {
		if e.Phase != protocol.Neutral {
			return &AssertionError{
				Type:     AssertFinalNeutral,
				Expected: "every element neutral",
				Actual:   fmt.Sprintf("index %d is %s", i, e.Phase),
			}
		}
	}

	var phases []protocol.Operation
	for _, op := range result.Trace {
		if op.Kind == protocol.KindSetPhase {
			phases = append(phases, op)
		}
	}
	if len(phases) < n {
		return &AssertionError{
			Type:     AssertFinalNeutral,
			Expected: fmt.Sprintf("at least %d set_phase operations", n),
			Actual:   fmt.Sprintf("%d", len(phases)),
		}
	}

	seen := make(map[int]bool, n)
	for _, op := range phases[len(phases)-n:] {
		if op.Phase != protocol.Neutral || seen[op.Index] {
			return &AssertionError{
				Type:     AssertFinalNeutral,
				Expected: "final pass of one neutral set_phase per index",
				Actual:   op.String(),
			}
		}
		seen[op.Index] = true
	}
	return nil
}

func assertOpCount(result *Result, assertion Assertion) error {
	kind, err := protocol.ParseKind(assertion.Kind)
	if err != nil {
		return err
	}

	count := 0
	for _, op := range result.Trace {
		if op.Kind == kind {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOpCount,
			Expected: fmt.Sprintf("%d %s operations", assertion.Count, kind),
			Actual:   fmt.Sprintf("%d", count),
		}
	}
	return nil
}

func assertLastWrite(result *Result) error {
	replayed := protocol.Values(result.Input)
	for _, op := range result.Trace {
		if op.Kind == protocol.KindOverwrite && op.Index >= 0 && op.Index < len(replayed) {
			replayed[op.Index] = op.Element.Value
		}
	}

	if want := result.Output(); !reflect.DeepEqual(replayed, want) {
		return &AssertionError{
			Type:     AssertLastWrite,
			Expected: fmt.Sprintf("%v", want),
			Actual:   fmt.Sprintf("%v", replayed),
		}
	}
	return nil
}

func assertDeterministic(result *Result, rerun RerunFunc) error {
	again, err := rerun(protocol.Values(result.Input))
	if err != nil {
		return fmt.Errorf("deterministic: rerun: %w", err)
	}

	first, err := protocol.TraceDigest(result.Trace)
	if err != nil {
		return err
	}
	second, err := protocol.TraceDigest(again)
	if err != nil {
		return err
	}
	if first != second {
		return &AssertionError{
			Type:     AssertDeterministic,
			Expected: "identical trace digest: " + first,
			Actual:   second,
		}
	}
	return nil
}

func assertMaxIndex(result *Result) error {
	for _, op := range result.Trace {
		if err := op.Validate(len(result.Input)); err != nil {
			return &AssertionError{
				Type:     AssertMaxIndex,
				Expected: fmt.Sprintf("indices below %d", len(result.Input)),
				Actual:   err.Error(),
			}
		}
	}
	return nil
}
