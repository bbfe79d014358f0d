package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/mergeviz/internal/protocol"
	"github.com/roach88/mergeviz/internal/transport"
)

// Sink accepts operations one at a time, in stream order.
type Sink interface {
	Apply(op protocol.Operation) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(op protocol.Operation) error

// Apply calls f(op).
func (f SinkFunc) Apply(op protocol.Operation) error {
	return f(op)
}

// Source is a blocking operation stream such as *transport.Receiver.
// Recv returns io.EOF once the stream is complete.
type Source interface {
	Recv(ctx context.Context) (protocol.Operation, error)
}

// Pump drains src into sinks until the stream ends.
//
// Each operation is applied to every sink, in the order the sinks were
// given, before the next one is received. Returns the number of operations
// applied. A closed receiver ends the stream like io.EOF does.
func Pump(ctx context.Context, src Source, sinks ...Sink) (int, error) {
	n := 0
	for {
		op, err := src.Recv(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, transport.ErrReceiverClosed) {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		for _, s := range sinks {
			if err := s.Apply(op); err != nil {
				return n, fmt.Errorf("apply %s: %w", op, err)
			}
		}
		n++
	}
}

// Tap wraps a Poller so that every operation it yields is also applied to
// sinks. It lets a Renderer, which polls, feed a Recorder or store Sink.
//
// The first sink error stops further sink writes; the operation is still
// yielded. Check Err once the stream is finished.
type Tap struct {
	src   Poller
	sinks []Sink
	err   error
}

// NewTap creates a Tap over src.
func NewTap(src Poller, sinks ...Sink) *Tap {
	return &Tap{src: src, sinks: sinks}
}

// TryRecv returns the next operation from the wrapped Poller.
func (t *Tap) TryRecv() (protocol.Operation, bool) {
	op, ok := t.src.TryRecv()
	if !ok || t.err != nil {
		return op, ok
	}
	for _, s := range t.sinks {
		if err := s.Apply(op); err != nil {
			t.err = fmt.Errorf("apply %s: %w", op, err)
			break
		}
	}
	return op, true
}

// Finished reports whether the wrapped Poller is finished.
func (t *Tap) Finished() bool {
	return t.src.Finished()
}

// Err returns the first sink error, if any.
func (t *Tap) Err() error {
	return t.err
}
