package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/mergeviz/internal/protocol"
)

// Algorithm is a sorting algorithm instrumented for the operation protocol.
//
// Sort must sort seq ascending by value, stably and in place, routing every
// visible step through em. It must not retain seq or em after returning.
// When em halts (cancellation) Sort must leave seq a permutation of its
// input and return em.Err().
//
// Any type implementing Algorithm is a drop-in engine: the protocol and the
// transport do not depend on which algorithm produced the stream.
type Algorithm interface {
	Name() string
	Sort(ctx context.Context, seq []protocol.Element, em *Emitter) error
}

// Report summarises one run.
type Report struct {
	RunID        string        `json:"run_id"`
	Algorithm    string        `json:"algorithm"`
	Length       int           `json:"length"`
	Emitted      int           `json:"emitted"`
	Delivered    int           `json:"delivered"`
	Dropped      int           `json:"dropped"`
	Compares     int           `json:"compares"`
	Overwrites   int           `json:"overwrites"`
	PhaseChanges int           `json:"phase_changes"`
	Pauses       int           `json:"pauses"`
	LastSeq      int64         `json:"last_seq"`
	Paced        time.Duration `json:"paced_ns"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	Cancelled    bool          `json:"cancelled"`
}

// Engine runs an Algorithm against a sequence and a Sender.
//
// An Engine is the explicit context a host builds for sorting: it holds the
// algorithm, pacing policy, logger and run ID source. There is no
// package-level state. Per-run state lives in an Emitter, so one Engine may
// serve several sequential or concurrent runs, each on its own sequence and
// Sender.
type Engine struct {
	algorithm Algorithm
	pacer     Pacer
	logger    *slog.Logger
	runIDs    RunIDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithAlgorithm selects the sorting algorithm. Default: MergeSort.
func WithAlgorithm(a Algorithm) Option {
	return func(e *Engine) {
		e.algorithm = a
	}
}

// WithPacer sets the pacing policy.
//
// Default: DefaultPacing().
// Use NoPacing() in tests.
func WithPacer(p Pacer) Option {
	return func(e *Engine) {
		e.pacer = p
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		algorithm: MergeSort{},
		pacer:     DefaultPacing(),
		logger:    slog.Default(),
		runIDs:    UUIDv7Generator{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Algorithm returns the configured algorithm.
func (e *Engine) Algorithm() Algorithm {
	return e.algorithm
}

// Run sorts seq in place and emits the operation trace to out.
//
// Run is synchronous: it returns once the sort and the final all-neutral
// pass are complete. The caller must not touch seq until Run returns.
// out may have no live consumer; skipped deliveries are counted in the
// Report and otherwise ignored.
//
// If ctx is cancelled the run stops early, seq is left a permutation of its
// input, no final pass is emitted and a CANCELLED RunError is returned
// alongside the partial Report.
func (e *Engine) Run(ctx context.Context, seq []protocol.Element, out protocol.Sender) (Report, error) {
	runID := e.runIDs.Generate()
	em := newEmitter(out, e.pacer, e.logger, runID)

	report := Report{
		RunID:     runID,
		Algorithm: e.algorithm.Name(),
		Length:    len(seq),
	}

	e.logger.Info("sort starting",
		"run_id", runID,
		"algorithm", report.Algorithm,
		"length", len(seq),
	)

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = e.algorithm.Sort(ctx, seq, em)
	}
	if err == nil && em.Halted() {
		err = em.Err()
	}
	if err == nil {
		em.ResetAll(seq)
	}

	em.report(&report)
	report.Elapsed = time.Since(start)

	if err != nil {
		report.Cancelled = true
		e.logger.Info("sort cancelled",
			"run_id", runID,
			"emitted", report.Emitted,
			"error", err,
		)
		return report, NewCancelledError(runID, err)
	}

	e.logger.Info("sort complete",
		"run_id", runID,
		"emitted", report.Emitted,
		"dropped", report.Dropped,
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// Run sorts seq with a default Engine: merge sort with human-perceivable
// pacing.
func Run(ctx context.Context, seq []protocol.Element, out protocol.Sender) (Report, error) {
	return New().Run(ctx, seq, out)
}
