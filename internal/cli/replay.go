package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mergeviz/internal/consumer"
	"github.com/roach88/mergeviz/internal/protocol"
	"github.com/roach88/mergeviz/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID       string  `json:"run_id"`
	Algorithm   string  `json:"algorithm"`
	Status      string  `json:"status"`
	Operations  int     `json:"operations"`
	Output      []int64 `json:"output"`
	DigestMatch bool    `json:"digest_match"`
	OutputMatch bool    `json:"output_match"`
	Verified    bool    `json:"verified"`
	Error       string  `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs        []ReplayRunResult `json:"runs"`
	TotalRuns   int               `json:"total_runs"`
	AllVerified bool              `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded traces and verify them",
		Long: `Replay recorded traces onto a fresh mirror and verify them.

Each run's operations are applied, in order, to a copy of its recorded
input. A run verifies when its trace digest matches the recorded digest
and, for completed runs, the mirror ends equal to the recorded output.
Cancelled runs stop mid-merge and failed runs stop where their consumer
broke off, so only their digest is checked.

Exit codes:
  0 - All runs verified
  1 - Verification failed
  2 - Command error (database not found, unknown run)

Examples:
  mergeviz replay --db ./runs.db
  mergeviz replay --db ./runs.db --run 0190c3e2-...
  mergeviz replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := resolveRun(ctx, st, opts.RunID)
		if err != nil {
			return err
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:        make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:   len(runs),
		AllVerified: true,
	}
	for _, run := range runs {
		out.VerboseLog("replaying %s", run.ID)
		r, err := replayRun(ctx, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay run", err)
		}
		if !r.Verified {
			result.AllVerified = false
		}
		result.Runs = append(result.Runs, r)
	}

	if err := out.Success(result, func(w io.Writer) { writeReplayText(w, result) }); err != nil {
		return err
	}
	if !result.AllVerified {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// replayRun applies a run's recorded trace to a mirror of its input.
// Verification failures are reported in the result; only store errors are
// returned.
func replayRun(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	r := ReplayRunResult{
		RunID:     run.ID,
		Algorithm: run.Algorithm,
		Status:    run.Status,
	}

	ops, err := st.ReadOperations(ctx, run.ID)
	if err != nil {
		return r, err
	}
	r.Operations = len(ops)

	if run.Status == store.StatusRunning {
		r.Error = "run never finished"
		return r, nil
	}

	digest, err := protocol.TraceDigest(ops)
	if err != nil {
		return r, err
	}
	r.DigestMatch = digest == run.Digest

	mirror := consumer.NewMirror(run.Input)
	for _, op := range ops {
		if err := mirror.Apply(op); err != nil {
			r.Error = err.Error()
			return r, nil
		}
	}
	r.Output = protocol.Values(mirror.Elements())

	switch run.Status {
	case store.StatusCancelled, store.StatusFailed:
		// The trace stops short of the sort, so only the digest can be checked.
		r.OutputMatch = true
	default:
		if err := mirror.Verify(run.Output); err != nil {
			r.Error = err.Error()
		} else {
			r.OutputMatch = true
		}
	}

	if !r.DigestMatch && r.Error == "" {
		r.Error = fmt.Sprintf("trace digest %s does not match recorded %s", digest, run.Digest)
	}
	r.Verified = r.DigestMatch && r.OutputMatch
	return r, nil
}

func writeReplayText(w io.Writer, result ReplayResult) {
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, r := range result.Runs {
		status := "✓"
		if !r.Verified {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s (%s, %s)\n", status, r.RunID, r.Algorithm, r.Status)
		fmt.Fprintf(w, "  Operations: %d\n", r.Operations)
		if r.Output != nil {
			fmt.Fprintf(w, "  Output: %v\n", r.Output)
		}
		if r.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", r.Error)
		}
		fmt.Fprintln(w)
	}

	if result.AllVerified {
		fmt.Fprintln(w, "✓ All runs verified")
		return
	}
	fmt.Fprintln(w, "✗ Replay verification failed")
}
