package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mergeviz/internal/protocol"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestLatestRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx)
	assert.True(t, errors.Is(err, ErrRunNotFound))

	beginTestRun(t, s, "zzz", 1)
	beginTestRun(t, s, "aaa", 2)

	run, err := s.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "aaa", run.ID, "latest by seq, not by ID")
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	beginTestRun(t, s, "c", 3)
	beginTestRun(t, s, "a", 1)
	beginTestRun(t, s, "b", 2)

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
}

func TestReadOperations_Empty(t *testing.T) {
	s := createTestStore(t)
	beginTestRun(t, s, "run-1", 1)

	ops, err := s.ReadOperations(context.Background(), "run-1")
	require.NoError(t, err)
	assert.NotNil(t, ops)
	assert.Empty(t, ops)
}

func TestReadOperations_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginTestRun(t, s, "run-1", 2, 1)

	ops := sampleTrace()
	reversed := make([]protocol.Operation, len(ops))
	for i, op := range ops {
		reversed[len(ops)-1-i] = op
	}
	require.NoError(t, s.WriteOperations(ctx, "run-1", reversed))

	got, err := s.ReadOperations(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, ops, got)
}

func TestReadOperations_CorruptRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginTestRun(t, s, "run-1", 2, 1)

	_, err := s.DB().Exec(`INSERT INTO operations (run_id, seq, kind, idx) VALUES ('run-1', 1, 'compare', 0)`)
	require.NoError(t, err)

	_, err = s.ReadOperations(ctx, "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compare without idx_b")
}

func TestCountOperations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	beginTestRun(t, s, "run-1", 2, 1)
	require.NoError(t, s.WriteOperations(ctx, "run-1", sampleTrace()))

	counts, err := s.CountOperations(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, map[protocol.Kind]int{
		protocol.KindSetPhase:  10,
		protocol.KindCompare:   1,
		protocol.KindOverwrite: 2,
	}, counts)
}
