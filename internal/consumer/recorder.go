package consumer

import (
	"sync"

	"github.com/roach88/mergeviz/internal/protocol"
)

// Recorder collects a stream in order.
//
// Thread-safety: safe for concurrent use via internal mutex, so a host can
// read a snapshot while Pump is still applying.
type Recorder struct {
	mu  sync.Mutex
	ops []protocol.Operation
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Apply implements Sink.
func (r *Recorder) Apply(op protocol.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	return nil
}

// Operations returns a copy of the recorded stream.
func (r *Recorder) Operations() []protocol.Operation {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]protocol.Operation, len(r.ops))
	copy(out, r.ops)
	return out
}

// Len returns the number of recorded operations.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Digest returns the content digest of the recorded stream.
func (r *Recorder) Digest() (string, error) {
	return protocol.TraceDigest(r.Operations())
}
