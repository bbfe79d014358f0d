package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/roach88/mergeviz/internal/consumer"
	"github.com/roach88/mergeviz/internal/engine"
	"github.com/roach88/mergeviz/internal/protocol"
	"github.com/roach88/mergeviz/internal/store"
	"github.com/roach88/mergeviz/internal/testutil"
	"github.com/roach88/mergeviz/internal/transport"
)

// DefaultRunID is the run ID used when a scenario does not set one.
const DefaultRunID = "test-run-default"

// Harness holds what one scenario execution needs.
type Harness struct {
	store     *store.Store
	algorithm engine.Algorithm
	runID     string
	logger    *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution errors (store failures, an unknown algorithm) are returned as
// errors; contract and assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	alg, err := engine.LookupAlgorithm(scenario.Algorithm)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}

	h := &Harness{
		store:     st,
		algorithm: alg,
		runID:     runID,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result, err := h.execute(context.Background(), scenario.Input)
	if err != nil {
		return nil, err
	}

	if scenario.Expect != nil {
		if got := result.Output(); !reflect.DeepEqual(got, scenario.Expect.Output) {
			result.AddError(fmt.Sprintf("expect.output: got %v, want %v", got, scenario.Expect.Output))
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h.rerun) {
		result.AddError(msg)
	}

	return result, nil
}

// newEngine builds a quiet, unpaced engine that always uses the
// scenario's run ID.
func (h *Harness) newEngine() *engine.Engine {
	return engine.New(
		engine.WithAlgorithm(h.algorithm),
		engine.WithPacer(engine.NoPacing()),
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(testutil.NewFixedRunID(h.runID)),
	)
}

// execute sorts values with a concurrent consumer and records the run.
func (h *Harness) execute(ctx context.Context, values []int64) (*Result, error) {
	result := NewResult()
	result.Input = protocol.NewElements(values...)
	seq := protocol.Clone(result.Input)

	if err := h.store.BeginRun(ctx, store.RunHeader{
		ID:        h.runID,
		Algorithm: h.algorithm.Name(),
		Input:     result.Input,
	}); err != nil {
		return nil, err
	}

	mirror := consumer.NewMirror(result.Input)
	rec := consumer.NewRecorder()
	sink := h.store.NewSink(ctx, h.runID, 0)

	tx, rx := transport.New()
	pumped := make(chan error, 1)
	go func() {
		_, err := consumer.Pump(ctx, rx, mirror, rec, sink)
		if err != nil {
			rx.Close()
		}
		pumped <- err
	}()

	report, runErr := h.newEngine().Run(ctx, seq, tx)
	tx.Close()
	pumpErr := <-pumped

	result.Report = report
	result.Final = seq
	result.Trace = rec.Operations()

	if runErr != nil {
		return nil, fmt.Errorf("engine run: %w", runErr)
	}
	if pumpErr != nil {
		result.AddError(fmt.Sprintf("consumer: %v", pumpErr))
		return result, nil
	}

	if err := sink.Flush(); err != nil {
		return nil, err
	}

	digest, err := rec.Digest()
	if err != nil {
		return nil, err
	}
	result.Digest = digest

	if err := h.store.FinishRun(ctx, h.runID, store.RunResult{
		Output:  seq,
		Emitted: report.Emitted,
		Dropped: report.Dropped,
		Digest:  digest,
	}); err != nil {
		return nil, err
	}

	if err := mirror.Verify(seq); err != nil {
		result.AddError(fmt.Sprintf("consumer contract: %v", err))
	}
	if report.Dropped != 0 {
		result.AddError(fmt.Sprintf("delivery: %d of %d operations dropped", report.Dropped, report.Emitted))
	}

	stored, err := h.store.ReadOperations(ctx, h.runID)
	if err != nil {
		return nil, err
	}
	if !reflect.DeepEqual(stored, result.Trace) {
		result.AddError(fmt.Sprintf("recording: stored %d operations differ from the %d received", len(stored), len(result.Trace)))
	}

	return result, nil
}

// rerun sorts values again without a consumer and returns the trace.
func (h *Harness) rerun(values []int64) ([]protocol.Operation, error) {
	rec := testutil.NewRecordingSender()
	if _, err := h.newEngine().Run(context.Background(), protocol.NewElements(values...), rec); err != nil {
		return nil, err
	}
	return rec.Operations(), nil
}
