package harness

import (
	"github.com/roach88/mergeviz/internal/engine"
	"github.com/roach88/mergeviz/internal/protocol"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: the consumer contract held and every
	// expectation and assertion matched.
	Pass bool `json:"pass"`

	// Input is the sequence as given to the engine.
	Input []protocol.Element `json:"input"`

	// Final is the engine's sequence after the run.
	Final []protocol.Element `json:"final"`

	// Trace contains every operation in stream order.
	Trace []protocol.Operation `json:"-"`

	// Digest is the content digest of Trace.
	Digest string `json:"digest"`

	// Report is the engine's run summary.
	Report engine.Report `json:"report"`

	// Errors lists every failed check, in evaluation order.
	Errors []string `json:"errors,omitempty"`
}

// NewResult returns a passing Result that AddError can fail.
func NewResult() *Result {
	return &Result{Pass: true, Trace: []protocol.Operation{}, Errors: []string{}}
}

// AddError records a failure.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// Output returns the final values.
func (r *Result) Output() []int64 {
	return protocol.Values(r.Final)
}
