// Package consumer implements the receiving side of an operation stream.
//
// A consumer starts from its own copy of the initial sequence and applies
// operations strictly in the order received:
//   - Overwrite(i, e) replaces element i with e, phase included.
//   - SetPhase(i, p) changes only element i's phase.
//   - Compare(a, b) changes nothing; it is a transient highlight.
//
// After the complete stream has been applied the consumer's copy equals the
// engine's final sequence and every phase is Neutral. Mirror enforces that
// contract; Renderer draws it on a terminal; Recorder keeps the stream for
// persistence and digests.
package consumer
