// Package harness runs conformance scenarios against the sorting engine.
//
// A scenario is a YAML file naming an input sequence, an optional expected
// output and a list of assertions about the run and its operation trace.
// Each scenario is executed end to end the way a host would run it:
//
//  1. The engine sorts on the calling goroutine with zero pacing.
//  2. A consumer goroutine drains the transport into a Mirror, a Recorder
//     and an in-memory store recording.
//  3. The Mirror is verified against the engine's final sequence, and the
//     stored trace is read back and compared with the recorded one.
//  4. The scenario's assertions are evaluated against the result.
//
// Run IDs are fixed and the logical clock restarts per run, so the trace of
// a scenario is byte-for-byte reproducible and can be compared against a
// golden file with RunWithGolden.
package harness
