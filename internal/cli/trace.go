package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mergeviz/internal/protocol"
	"github.com/roach88/mergeviz/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional; defaults to the latest run
	Kind     string // optional filter
}

// TraceResult holds a recorded run and its trace.
type TraceResult struct {
	Run        store.Run        `json:"run"`
	Operations []map[string]any `json:"operations"`
	Counts     map[string]int   `json:"counts"`
	Total      int              `json:"total"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded operation trace",
		Long: `Print the operations a recorded run emitted, in sequence order.

Without --run the most recently recorded run is shown. --kind restricts the
listing to one operation kind (set_phase, compare, overwrite); the per-kind
counts always cover the whole trace.

Examples:
  mergeviz trace --db ./runs.db
  mergeviz trace --db ./runs.db --run 0190c3e2-... --kind compare
  mergeviz trace --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to trace (default: latest)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only list operations of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	out := newFormatter(opts.RootOptions, cmd)

	var filter *protocol.Kind
	if opts.Kind != "" {
		k, err := protocol.ParseKind(opts.Kind)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		filter = &k
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := resolveRun(ctx, st, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) && opts.RunID == "" {
		return out.Success(TraceResult{Operations: []map[string]any{}, Counts: map[string]int{}}, func(w io.Writer) {
			fmt.Fprintln(w, "No runs found in database.")
		})
	}
	if err != nil {
		return err
	}

	ops, err := st.ReadOperations(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	counts, err := st.CountOperations(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count operations", err)
	}

	result := TraceResult{
		Run:        run,
		Operations: []map[string]any{},
		Counts:     make(map[string]int, len(counts)),
		Total:      len(ops),
	}
	for k, n := range counts {
		result.Counts[k.String()] = n
	}

	listed := ops[:0:0]
	for _, op := range ops {
		if filter != nil && op.Kind != *filter {
			continue
		}
		listed = append(listed, op)
		result.Operations = append(result.Operations, protocol.OperationMap(op))
	}

	return out.Success(result, func(w io.Writer) {
		writeTraceText(w, run, listed, counts)
	})
}

func writeTraceText(w io.Writer, run store.Run, ops []protocol.Operation, counts map[protocol.Kind]int) {
	fmt.Fprintf(w, "Run: %s (%s, %d elements, %s)\n", run.ID, run.Algorithm, run.Length, run.Status)
	fmt.Fprintf(w, "  Input:  %v\n", protocol.Values(run.Input))
	fmt.Fprintf(w, "  Output: %v\n", protocol.Values(run.Output))
	fmt.Fprintln(w)

	for _, op := range ops {
		fmt.Fprintf(w, "  %s\n", op)
	}
	if len(ops) > 0 {
		fmt.Fprintln(w)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(w, "%d operations: %d set_phase, %d compare, %d overwrite\n",
		total,
		counts[protocol.KindSetPhase],
		counts[protocol.KindCompare],
		counts[protocol.KindOverwrite],
	)
}

// openExisting opens a database that must already exist. store.Open would
// otherwise create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// resolveRun reads the run with the given ID, or the latest run when id is
// empty. A missing run is returned as an ExitError wrapping
// store.ErrRunNotFound.
func resolveRun(ctx context.Context, st *store.Store, id string) (store.Run, error) {
	var run store.Run
	var err error
	if id == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, id)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		return store.Run{}, WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return store.Run{}, WrapExitError(ExitCommandError, "failed to read run", err)
	}
	return run, nil
}
