package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/mergeviz/internal/protocol"
)

// Emitter is the single path from an algorithm to the transport.
//
// It keeps the engine's sequence and the emitted stream in step: SetPhase
// and Overwrite update the sequence and emit a copy in the same call. It
// stamps every operation with the run clock, counts delivery outcomes and
// applies pacing.
//
// After the run's context is cancelled the Emitter is halted: it keeps
// applying writes to the sequence so an in-progress merge can finish, but
// emits nothing and no longer sleeps.
//
// An Emitter belongs to one run and one goroutine.
type Emitter struct {
	out    protocol.Sender
	clock  *Clock
	pacer  Pacer
	logger *slog.Logger
	runID  string

	halted bool
	err    error

	emitted      int
	delivered    int
	dropped      int
	compares     int
	overwrites   int
	phaseChanges int
	pauses       int
	paced        time.Duration
}

func newEmitter(out protocol.Sender, pacer Pacer, logger *slog.Logger, runID string) *Emitter {
	if out == nil {
		out = protocol.Discard
	}
	if pacer == nil {
		pacer = NoPacing()
	}
	return &Emitter{
		out:    out,
		clock:  NewClock(),
		pacer:  pacer,
		logger: logger,
		runID:  runID,
	}
}

// SetPhase sets seq[i]'s phase and emits SetPhase(i, p).
func (em *Emitter) SetPhase(seq []protocol.Element, i int, p protocol.Phase) {
	seq[i].Phase = p
	em.emit(protocol.SetPhase(i, p))
}

// Compare emits Compare(a, b).
func (em *Emitter) Compare(a, b int) {
	em.emit(protocol.Compare(a, b))
}

// Overwrite stores e at seq[i] and emits Overwrite(i, e) carrying a copy.
func (em *Emitter) Overwrite(seq []protocol.Element, i int, e protocol.Element) {
	seq[i] = e
	em.emit(protocol.Overwrite(i, e))
}

// ResetAll emits SetPhase(i, Neutral) for every index of seq, in order.
// This is the final pass that guarantees every stream ends all-neutral.
func (em *Emitter) ResetAll(seq []protocol.Element) {
	for i := range seq {
		em.SetPhase(seq, i, protocol.Neutral)
	}
}

// Pause waits for the pacer's delay at point p.
//
// Returns the context error, and halts the emitter, if ctx is cancelled
// before or during the wait. Once halted, Pause returns immediately.
func (em *Emitter) Pause(ctx context.Context, p Pause) error {
	if em.halted {
		return em.err
	}
	if err := ctx.Err(); err != nil {
		em.halt(err)
		return err
	}

	d := em.pacer.Delay(p)
	em.pauses++
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		em.halt(ctx.Err())
		return em.err
	case <-timer.C:
		em.paced += d
		return nil
	}
}

// Halted reports whether the run was cancelled.
func (em *Emitter) Halted() bool {
	return em.halted
}

// Err returns the cancellation cause, or nil.
func (em *Emitter) Err() error {
	return em.err
}

func (em *Emitter) halt(err error) {
	em.halted = true
	em.err = err
	em.logger.Debug("emitter halted",
		"run_id", em.runID,
		"seq", em.clock.Current(),
		"error", err,
	)
}

// emit stamps op and hands it to the Sender. A skipped delivery is counted,
// never retried and never returned: the algorithm's progress does not
// depend on the consumer.
func (em *Emitter) emit(op protocol.Operation) {
	if em.halted {
		return
	}

	op.Seq = em.clock.Next()
	em.emitted++
	switch op.Kind {
	case protocol.KindCompare:
		em.compares++
	case protocol.KindOverwrite:
		em.overwrites++
	case protocol.KindSetPhase:
		em.phaseChanges++
	}

	if em.out.Send(op) == protocol.DeliverySkipped {
		em.dropped++
		if em.dropped == 1 {
			em.logger.Debug("operation dropped: receiver gone",
				"run_id", em.runID,
				"seq", op.Seq,
				"kind", op.Kind.String(),
			)
		}
		return
	}
	em.delivered++
}

// report copies the counters into r.
func (em *Emitter) report(r *Report) {
	r.Emitted = em.emitted
	r.Delivered = em.delivered
	r.Dropped = em.dropped
	r.Compares = em.compares
	r.Overwrites = em.overwrites
	r.PhaseChanges = em.phaseChanges
	r.Pauses = em.pauses
	r.Paced = em.paced
	r.LastSeq = em.clock.Current()
}
