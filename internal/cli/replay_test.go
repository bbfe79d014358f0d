package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mergeviz/internal/protocol"
	"github.com/roach88/mergeviz/internal/store"
)

func tamper(t *testing.T, dbPath, query string, args ...any) {
	t.Helper()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	_, err = st.DB().Exec(query, args...)
	require.NoError(t, err)
}

func TestReplay_AllRunsVerify(t *testing.T) {
	dbPath := tempDB(t)
	recordRun(t, dbPath, "run-a", 5, 3, 8, 1)
	recordRun(t, dbPath, "run-b", 2, 1)

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Replay Summary: 2 run(s)")
	assert.Contains(t, out, "✓ Run: run-a (merge, complete)")
	assert.Contains(t, out, "Operations: 49")
	assert.Contains(t, out, "Output: [1 3 5 8]")
	assert.Contains(t, out, "✓ Run: run-b (merge, complete)")
	assert.Contains(t, out, "✓ All runs verified")
}

func TestReplay_JSONSpecificRun(t *testing.T) {
	dbPath := tempDB(t)
	recordRun(t, dbPath, "run-a", 5, 3, 8, 1)
	recordRun(t, dbPath, "run-b", 2, 1)

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath, "--run", "run-b")
	require.NoError(t, err)

	var result ReplayResult
	decodeResponse(t, out, &result)
	require.Equal(t, 1, result.TotalRuns)
	assert.True(t, result.AllVerified)

	r := result.Runs[0]
	assert.Equal(t, "run-b", r.RunID)
	assert.Equal(t, 13, r.Operations)
	assert.Equal(t, []int64{1, 2}, r.Output)
	assert.True(t, r.DigestMatch)
	assert.True(t, r.OutputMatch)
	assert.True(t, r.Verified)
	assert.Empty(t, r.Error)
}

func TestReplay_TamperedOperation(t *testing.T) {
	dbPath := tempDB(t)
	recordRun(t, dbPath, "run-a", 2, 1)
	tamper(t, dbPath, `UPDATE operations SET elem_value = 99 WHERE run_id = ? AND seq = 6`, "run-a")

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ReplayResult
	decodeResponse(t, out, &result)
	assert.False(t, result.AllVerified)
	r := result.Runs[0]
	assert.False(t, r.DigestMatch)
	assert.False(t, r.OutputMatch)
	assert.Equal(t, []int64{99, 2}, r.Output)
	assert.NotEmpty(t, r.Error)
}

func TestReplay_TamperedDigest(t *testing.T) {
	dbPath := tempDB(t)
	recordRun(t, dbPath, "run-a", 2, 1)
	tamper(t, dbPath, `UPDATE runs SET digest = 'bogus' WHERE id = ?`, "run-a")

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Run: run-a")
	assert.Contains(t, out, "does not match recorded bogus")
	assert.Contains(t, out, "✗ Replay verification failed")
}

func TestReplay_CancelledRunChecksDigestOnly(t *testing.T) {
	dbPath := tempDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newRunCommand(runOpts("text", "run-cancel"))
	cmd.SetContext(ctx)
	_, err := execute(t, cmd, "--values", "4,3,2,1", "--no-delay", "--db", dbPath)
	require.Error(t, err)

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Run: run-cancel (merge, cancelled)")
}

func TestReplay_UnfinishedRun(t *testing.T) {
	dbPath := tempDB(t)
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.BeginRun(context.Background(), store.RunHeader{
		ID:        "run-open",
		Algorithm: "merge",
		Input:     protocol.NewElements(2, 1),
	}))
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "run never finished")
}

func TestReplay_EmptyAndMissing(t *testing.T) {
	dbPath := tempDB(t)
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")

	_, err = execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "--db", dbPath, "--run", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}
