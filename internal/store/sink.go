package store

import (
	"context"
	"fmt"

	"github.com/roach88/mergeviz/internal/protocol"
)

// DefaultBatchSize is how many operations a Sink buffers per transaction.
const DefaultBatchSize = 256

// Sink records a live stream into a begun run. It satisfies consumer.Sink,
// so it can be pumped alongside a Mirror or Renderer.
//
// Operations are buffered and written in batches; call Flush once the
// stream has ended.
//
// Sink is not safe for concurrent use.
type Sink struct {
	store   *Store
	ctx     context.Context
	runID   string
	batch   int
	buf     []protocol.Operation
	written int
}

// NewSink creates a Sink for runID. A batch size below 1 uses
// DefaultBatchSize.
func (s *Store) NewSink(ctx context.Context, runID string, batch int) *Sink {
	if batch < 1 {
		batch = DefaultBatchSize
	}
	return &Sink{
		store: s,
		ctx:   ctx,
		runID: runID,
		batch: batch,
		buf:   make([]protocol.Operation, 0, batch),
	}
}

// Apply buffers op, writing the buffer once it is full.
func (k *Sink) Apply(op protocol.Operation) error {
	k.buf = append(k.buf, op)
	if len(k.buf) >= k.batch {
		return k.Flush()
	}
	return nil
}

// Flush writes any buffered operations.
func (k *Sink) Flush() error {
	if len(k.buf) == 0 {
		return nil
	}
	if err := k.store.WriteOperations(k.ctx, k.runID, k.buf); err != nil {
		return fmt.Errorf("flush run %s: %w", k.runID, err)
	}
	k.written += len(k.buf)
	k.buf = k.buf[:0]
	return nil
}

// Written returns how many operations have reached the database.
func (k *Sink) Written() int {
	return k.written
}
