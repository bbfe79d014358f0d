package testutil

import (
	"sync"

	"github.com/roach88/mergeviz/internal/protocol"
)

// RecordingSender is an in-memory protocol.Sender that keeps every
// operation it accepts, in order.
//
// After Refuse is called it behaves like a transport whose receiver was
// dropped: every Send reports protocol.DeliverySkipped and nothing is kept.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingSender struct {
	mu      sync.Mutex
	ops     []protocol.Operation
	refuse  bool
	skipped int
}

// NewRecordingSender creates an empty recording sender.
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

// NewRefusingSender creates a sender that skips every delivery.
func NewRefusingSender() *RecordingSender {
	return &RecordingSender{refuse: true}
}

// Send implements protocol.Sender.
func (s *RecordingSender) Send(op protocol.Operation) protocol.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refuse {
		s.skipped++
		return protocol.DeliverySkipped
	}
	s.ops = append(s.ops, op)
	return protocol.Delivered
}

// Refuse makes every later Send skip delivery.
func (s *RecordingSender) Refuse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refuse = true
}

// Operations returns a copy of the accepted operations.
func (s *RecordingSender) Operations() []protocol.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]protocol.Operation, len(s.ops))
	copy(out, s.ops)
	return out
}

// Skipped returns how many sends were refused.
func (s *RecordingSender) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// CountKind returns how many accepted operations have kind k.
func (s *RecordingSender) CountKind(k protocol.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, op := range s.ops {
		if op.Kind == k {
			n++
		}
	}
	return n
}
