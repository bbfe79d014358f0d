package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mergeviz/internal/testutil"
)

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// runOpts returns run options with a fixed run ID and text output.
func runOpts(format, runID string) *RunOptions {
	return &RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      testutil.NewFixedRunID(runID),
	}
}

// recordRun sorts values with the run command into the database at dbPath.
func recordRun(t *testing.T, dbPath, runID string, values ...int64) {
	t.Helper()
	args := []string{"--no-delay", "--db", dbPath, "--values", joinValues(values)}
	_, err := execute(t, newRunCommand(runOpts("text", runID)), args...)
	require.NoError(t, err)
}

func joinValues(values []int64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, ",")
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "runs.db")
}

// decodeResponse parses a JSON CLIResponse and decodes its data into v.
func decodeResponse(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)

	if v != nil {
		data := raw.Data
		if raw.Error != nil {
			details, err := json.Marshal(raw.Error.Details)
			require.NoError(t, err)
			data = details
		}
		require.NoError(t, json.Unmarshal(data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
