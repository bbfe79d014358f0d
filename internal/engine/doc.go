// Package engine runs instrumented sorting algorithms.
//
// The engine owns the sequence for the whole run, mutates it in place, and
// for every visualization-relevant step emits a protocol.Operation to a
// protocol.Sender. The consumer runs on a different goroutine and only ever
// sees copies.
//
// ARCHITECTURE:
//
// Single producer:
// An algorithm runs synchronously on the caller's goroutine. Every
// operation goes through an Emitter, which stamps it with the run's logical
// clock, hands it to the Sender and counts the outcome. There is no locking
// on the sequence: exclusive ownership is by construction.
//
// Pacing:
// Algorithms call Emitter.Pause at fixed instrumentation points. The Pacer
// maps each point to a delay. Production uses DefaultPacing (human
// perceivable); tests use NoPacing. Pacing slows progress but never
// changes what is emitted.
//
// Delivery:
// Sends are best effort. A skipped delivery is counted in the Report and
// logged once; it never aborts the run. The sort always completes, whether
// or not anyone is listening.
//
// Cancellation:
// The context is checked at every pause. Once cancelled the run stops
// emitting and pacing, finishes the merge in progress so the sequence stays
// a permutation of its input, and returns a CANCELLED RunError.
//
// Determinism:
// For a fixed input the emitted operations (kinds, indices, phases,
// snapshots and seq numbers) are identical across runs. Only wall-clock
// timing differs.
package engine
