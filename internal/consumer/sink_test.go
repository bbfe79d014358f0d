package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mergeviz/internal/engine"
	"github.com/roach88/mergeviz/internal/protocol"
	"github.com/roach88/mergeviz/internal/testutil"
	"github.com/roach88/mergeviz/internal/transport"
)

func quietEngine() *engine.Engine {
	return engine.New(
		engine.WithPacer(engine.NoPacing()),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithRunIDGenerator(testutil.NewFixedRunID("consumer-test")),
	)
}

func TestPump_EngineToMirror(t *testing.T) {
	scenarios := map[string][]int64{
		"four":       {5, 3, 8, 1},
		"empty":      {},
		"single":     {7},
		"duplicates": {2, 2, 1},
		"longer":     {10, -3, 7, 7, 0, 42, 5, 1, 9, 8, 6},
	}

	for name, values := range scenarios {
		t.Run(name, func(t *testing.T) {
			seq := protocol.NewElements(values...)
			mirror := NewMirror(seq)
			rec := NewRecorder()
			tx, rx := transport.New()

			type pumped struct {
				n   int
				err error
			}
			done := make(chan pumped, 1)
			go func() {
				n, err := Pump(context.Background(), rx, mirror, rec)
				done <- pumped{n, err}
			}()

			report, err := quietEngine().Run(context.Background(), seq, tx)
			require.NoError(t, err)
			tx.Close()

			res := <-done
			require.NoError(t, res.err)
			assert.Equal(t, report.Emitted, res.n)
			assert.Equal(t, report.Emitted, rec.Len())
			assert.NoError(t, mirror.Verify(seq))
		})
	}
}

func TestPump_SinkError(t *testing.T) {
	tx, rx := transport.New()
	for _, op := range stamped(protocol.SetPhase(0, protocol.Neutral), protocol.SetPhase(1, protocol.Neutral)) {
		tx.Send(op)
	}
	tx.Close()

	boom := errors.New("boom")
	calls := 0
	n, err := Pump(context.Background(), rx, SinkFunc(func(protocol.Operation) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	}))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "#2 set_phase(1, neutral)")
	assert.Equal(t, 1, n)
}

func TestPump_ReceiverClosedEndsStream(t *testing.T) {
	tx, rx := transport.New()
	tx.Send(protocol.SetPhase(0, protocol.Neutral))
	rx.Close()

	n, err := Pump(context.Background(), rx, NewRecorder())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPump_Cancelled(t *testing.T) {
	_, rx := transport.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Pump(ctx, rx, NewRecorder())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTap_FeedsSinks(t *testing.T) {
	tx, rx := transport.New()
	tx.Send(protocol.Compare(0, 1))
	tx.Send(protocol.SetPhase(0, protocol.Dividing))
	tx.Close()

	rec := NewRecorder()
	tap := NewTap(rx, rec)

	n := 0
	for {
		if _, ok := tap.TryRecv(); !ok {
			break
		}
		n++
	}

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, rec.Len())
	assert.True(t, tap.Finished())
	assert.NoError(t, tap.Err())
}

func TestTap_SinkErrorKeepsYielding(t *testing.T) {
	tx, rx := transport.New()
	tx.Send(protocol.Compare(0, 1))
	tx.Send(protocol.Compare(1, 2))
	tx.Close()

	calls := 0
	boom := errors.New("boom")
	tap := NewTap(rx, SinkFunc(func(protocol.Operation) error {
		calls++
		return boom
	}))

	_, ok := tap.TryRecv()
	require.True(t, ok)
	_, ok = tap.TryRecv()
	require.True(t, ok)
	_, ok = tap.TryRecv()
	require.False(t, ok)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, tap.Err(), boom)
}
