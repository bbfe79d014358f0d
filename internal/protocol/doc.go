// Package protocol defines the data exchanged between a sorting engine and
// the consumers that render it.
//
// This package contains the element model, the closed set of operation
// kinds and the producer-side Sender contract. All other internal packages
// import protocol; protocol imports nothing internal.
//
// Key design constraints:
//   - Operations are values. An Overwrite carries a full copy of the element,
//     never a reference into the engine's live sequence.
//   - Phases are opaque tags. Mapping a phase to a color belongs to the
//     consumer, so presentation changes never touch the engine.
//   - Values are int64 (no floats), which keeps canonical JSON exact.
//   - Ordering uses the per-run logical seq only, never wall-clock time.
package protocol
