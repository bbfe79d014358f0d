package transport

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/roach88/mergeviz/internal/protocol"
)

// ErrReceiverClosed is returned by Recv after the Receiver itself was closed.
var ErrReceiverClosed = errors.New("transport: receiver closed")

// queue is the shared state behind both halves.
//
// The signal channel (buffered, size 1) coalesces wake-ups so the receiver
// can wait with select and still honour context cancellation. done is
// closed once the stream can make no further progress: either the producer
// finished or the receiver went away.
type queue struct {
	mu         sync.Mutex
	items      []protocol.Operation
	closed     bool // producer finished
	dropped    bool // receiver gone
	doneClosed bool
	signal     chan struct{}
	done       chan struct{}
}

// New creates a transport and returns its two halves.
func New() (*Producer, *Receiver) {
	q := &queue{
		items:  make([]protocol.Operation, 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	return &Producer{q: q}, &Receiver{q: q}
}

// finishLocked closes done exactly once. Caller holds q.mu.
func (q *queue) finishLocked() {
	if q.doneClosed {
		return
	}
	q.doneClosed = true
	close(q.done)
}

// Producer is the sending half. It implements protocol.Sender.
// Safe for use by one goroutine at a time; the engine is its only user.
type Producer struct {
	q *queue
}

// Send appends op to the queue.
// Returns protocol.DeliverySkipped if the receiver was dropped or the
// producer was closed.
func (p *Producer) Send(op protocol.Operation) protocol.Delivery {
	q := p.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.dropped {
		return protocol.DeliverySkipped
	}

	q.items = append(q.items, op)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return protocol.Delivered
}

// Close marks the end of the stream. The receiver drains what is queued
// and then sees io.EOF. Closing twice is a no-op.
func (p *Producer) Close() {
	q := p.q
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.finishLocked()
}

// ReceiverDropped reports whether the consumer half has gone away.
func (p *Producer) ReceiverDropped() bool {
	p.q.mu.Lock()
	defer p.q.mu.Unlock()
	return p.q.dropped
}

// Receiver is the consuming half.
// Must be used from a single goroutine.
type Receiver struct {
	q *queue
}

// TryRecv removes and returns the front operation without blocking.
// Returns false if nothing is queued.
func (r *Receiver) TryRecv() (protocol.Operation, bool) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return protocol.Operation{}, false
	}

	op := q.items[0]
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return op, true
}

// Recv blocks until an operation is available.
//
// Returns io.EOF once the producer closed and the queue is drained,
// ErrReceiverClosed if this receiver was closed, or ctx.Err() on
// cancellation.
func (r *Receiver) Recv(ctx context.Context) (protocol.Operation, error) {
	for {
		if op, ok := r.TryRecv(); ok {
			return op, nil
		}

		r.q.mu.Lock()
		dropped, closed := r.q.dropped, r.q.closed
		r.q.mu.Unlock()

		if dropped {
			return protocol.Operation{}, ErrReceiverClosed
		}
		if closed {
			// Re-check: Send and Close may have raced with the TryRecv above.
			if op, ok := r.TryRecv(); ok {
				return op, nil
			}
			return protocol.Operation{}, io.EOF
		}

		select {
		case <-ctx.Done():
			return protocol.Operation{}, ctx.Err()
		case <-r.q.signal:
		case <-r.q.done:
		}
	}
}

// Done returns a channel closed once the producer finished or the receiver
// was dropped. Queued operations may still be waiting after Done fires.
func (r *Receiver) Done() <-chan struct{} {
	return r.q.done
}

// Finished reports whether the producer closed and nothing is left to read.
func (r *Receiver) Finished() bool {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return r.q.dropped || (r.q.closed && len(r.q.items) == 0)
}

// Len returns the number of queued operations.
func (r *Receiver) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items)
}

// Close drops the receiving half. Queued operations are discarded and
// every later Send is skipped.
func (r *Receiver) Close() {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	q.dropped = true
	q.items = nil
	q.finishLocked()
}
