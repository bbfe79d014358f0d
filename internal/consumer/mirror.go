package consumer

import (
	"errors"
	"fmt"

	"github.com/roach88/mergeviz/internal/protocol"
)

// ErrOutOfOrder is returned when an operation's seq does not follow the
// previous one.
var ErrOutOfOrder = errors.New("operation out of order")

// MismatchError reports a difference between a Mirror and the sequence it
// should have converged to.
type MismatchError struct {
	Index  int
	Reason string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("mirror mismatch: %s", e.Reason)
	}
	return fmt.Sprintf("mirror mismatch at index %d: %s", e.Index, e.Reason)
}

// IsMismatch returns true if err is a MismatchError.
func IsMismatch(err error) bool {
	var me *MismatchError
	return errors.As(err, &me)
}

// Mirror is a consumer-side replica of the engine's sequence.
//
// Mirror is not safe for concurrent use; Renderer guards its Mirror with
// its own lock.
type Mirror struct {
	elems   []protocol.Element
	lastSeq int64

	highlightA, highlightB int
	highlighted            bool

	applied int
	counts  map[protocol.Kind]int
}

// NewMirror creates a Mirror from a copy of initial.
func NewMirror(initial []protocol.Element) *Mirror {
	return &Mirror{
		elems:  protocol.Clone(initial),
		counts: make(map[protocol.Kind]int),
	}
}

// Apply applies op to the replica.
//
// Returns an error wrapping protocol.ErrIndexOutOfRange if op names an index
// outside the sequence, or ErrOutOfOrder if op.Seq does not follow the
// previously applied seq. On error the replica is unchanged.
func (m *Mirror) Apply(op protocol.Operation) error {
	if err := op.Validate(len(m.elems)); err != nil {
		return err
	}
	if op.Seq != m.lastSeq+1 {
		return fmt.Errorf("seq %d after %d: %w", op.Seq, m.lastSeq, ErrOutOfOrder)
	}

	m.highlighted = false
	switch op.Kind {
	case protocol.KindOverwrite:
		m.elems[op.Index] = op.Element
	case protocol.KindSetPhase:
		m.elems[op.Index].Phase = op.Phase
	case protocol.KindCompare:
		m.highlightA, m.highlightB = op.Index, op.IndexB
		m.highlighted = true
	}

	m.lastSeq = op.Seq
	m.applied++
	m.counts[op.Kind]++
	return nil
}

// Highlight returns the indices of the most recent Compare, if it was the
// last operation applied.
func (m *Mirror) Highlight() (a, b int, ok bool) {
	return m.highlightA, m.highlightB, m.highlighted
}

// Elements returns a copy of the replica.
func (m *Mirror) Elements() []protocol.Element {
	return protocol.Clone(m.elems)
}

// Len returns the sequence length.
func (m *Mirror) Len() int {
	return len(m.elems)
}

// Applied returns how many operations have been applied.
func (m *Mirror) Applied() int {
	return m.applied
}

// Count returns how many operations of kind k have been applied.
func (m *Mirror) Count(k protocol.Kind) int {
	return m.counts[k]
}

// LastSeq returns the seq of the last applied operation, 0 if none.
func (m *Mirror) LastSeq() int64 {
	return m.lastSeq
}

// Verify checks that the replica holds final's values in order and that
// every element is Neutral.
func (m *Mirror) Verify(final []protocol.Element) error {
	if len(final) != len(m.elems) {
		return &MismatchError{
			Index:  -1,
			Reason: fmt.Sprintf("length %d, want %d", len(m.elems), len(final)),
		}
	}

	for i, e := range m.elems {
		if e.Value != final[i].Value {
			return &MismatchError{
				Index:  i,
				Reason: fmt.Sprintf("value %d, want %d", e.Value, final[i].Value),
			}
		}
		if e.Phase != protocol.Neutral {
			return &MismatchError{
				Index:  i,
				Reason: fmt.Sprintf("phase %s, want neutral", e.Phase),
			}
		}
	}
	return nil
}
