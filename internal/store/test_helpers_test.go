package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/mergeviz/internal/protocol"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestRun begins a merge run over values.
func beginTestRun(t *testing.T, s *Store, id string, values ...int64) {
	t.Helper()
	err := s.BeginRun(context.Background(), RunHeader{
		ID:        id,
		Algorithm: "merge",
		Input:     protocol.NewElements(values...),
	})
	if err != nil {
		t.Fatalf("BeginRun(%s) failed: %v", id, err)
	}
}

// sampleTrace is the full trace for sorting [2, 1].
func sampleTrace() []protocol.Operation {
	ops := []protocol.Operation{
		protocol.SetPhase(0, protocol.Dividing),
		protocol.SetPhase(1, protocol.Dividing),
		protocol.SetPhase(0, protocol.LeftMergeCandidate),
		protocol.SetPhase(1, protocol.RightMergeCandidate),
		protocol.Compare(0, 1),
		protocol.Overwrite(0, protocol.Element{Value: 1, Key: 1, Phase: protocol.Dividing}),
		protocol.SetPhase(0, protocol.PlacedFromRight),
		protocol.Overwrite(1, protocol.Element{Value: 2, Key: 0, Phase: protocol.Dividing}),
		protocol.SetPhase(1, protocol.PlacedFromLeft),
		protocol.SetPhase(0, protocol.Neutral),
		protocol.SetPhase(1, protocol.Neutral),
		protocol.SetPhase(0, protocol.Neutral),
		protocol.SetPhase(1, protocol.Neutral),
	}
	for i := range ops {
		ops[i].Seq = int64(i + 1)
	}
	return ops
}
