package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/roach88/mergeviz/internal/config"
	"github.com/roach88/mergeviz/internal/consumer"
	"github.com/roach88/mergeviz/internal/engine"
	"github.com/roach88/mergeviz/internal/protocol"
	"github.com/roach88/mergeviz/internal/store"
	"github.com/roach88/mergeviz/internal/transport"
)

// MaxRandomLength caps --random. The transport queue is unbounded, so a
// fast engine feeding a slow consumer buffers the whole trace.
const MaxRandomLength = 4096

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Values    []int64
	Random    int
	Seed      uint64
	Algorithm string
	Pacing    string
	Speed     float64
	NoDelay   bool
	Database  string
	Render    bool
	Hold      bool

	// RunIDs overrides the run ID source (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// Screen overrides the terminal screen used by --render (for testing).
	// If nil, tcell.NewScreen is used.
	Screen tcell.Screen

	// Sinks are extra consumers fed after the mirror, recorder and store.
	Sinks []consumer.Sink
}

// SortResult is what the run command reports.
type SortResult struct {
	Report   engine.Report `json:"report"`
	Input    []int64       `json:"input"`
	Output   []int64       `json:"output"`
	Seed     *uint64       `json:"seed,omitempty"`
	Digest   string        `json:"digest"`
	Applied  int           `json:"applied"`
	Verified bool          `json:"verified"`
	Recorded bool          `json:"recorded"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sort a sequence and stream its operations",
		Long: `Sort a sequence while an independent consumer follows along.

The engine runs on one goroutine and streams every operation over an
unbounded queue. The consumer runs on another: a terminal visualizer with
--render, otherwise a mirror that replays the stream and checks it ends in
the engine's output. With --db the stream is also recorded to SQLite.

Exit codes:
  0 - Sorted and verified
  1 - Cancelled, or the consumer diverged from the engine
  2 - Command error (bad input, unreadable profile, database error)

Examples:
  mergeviz run --values 5,3,8,1 --no-delay
  mergeviz run --random 64 --seed 7 --render
  mergeviz run --random 200 --pacing fast.cue --db ./runs.db
  mergeviz run --values 4,2,9 --algorithm insertion --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(opts, cmd)
		},
	}

	cmd.Flags().Int64SliceVar(&opts.Values, "values", nil, "comma-separated values to sort")
	cmd.Flags().IntVar(&opts.Random, "random", 0, fmt.Sprintf("sort N random values (at most %d)", MaxRandomLength))
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for --random (default: time-based)")
	cmd.MarkFlagsMutuallyExclusive("values", "random")
	cmd.MarkFlagsOneRequired("values", "random")

	cmd.Flags().StringVar(&opts.Algorithm, "algorithm", "merge", fmt.Sprintf("sorting algorithm %v", engine.AlgorithmNames()))
	cmd.Flags().StringVar(&opts.Pacing, "pacing", "", "CUE pacing profile")
	cmd.Flags().Float64Var(&opts.Speed, "speed", 1, "pacing speed multiplier (overrides the profile)")
	cmd.Flags().BoolVar(&opts.NoDelay, "no-delay", false, "disable pacing")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")
	cmd.Flags().BoolVar(&opts.Render, "render", false, "draw the sort in the terminal")
	cmd.Flags().BoolVar(&opts.Hold, "hold", true, "with --render, keep the final frame until q is pressed")

	return cmd
}

func runSort(opts *RunOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)

	input, seed, err := opts.input(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid input", err)
	}

	alg, err := engine.LookupAlgorithm(opts.Algorithm)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid algorithm", err)
	}

	profile, err := opts.profile(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid pacing profile", err)
	}
	palette, err := consumer.ParsePalette(profile.Palette)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid palette", err)
	}
	pacer := profile.Pacer()
	if opts.NoDelay {
		pacer = engine.NoPacing()
	}

	// The renderer owns the terminal, so logs are held until it is done.
	var held bytes.Buffer
	logOut := cmd.ErrOrStderr()
	if opts.Render {
		logOut = &held
		defer func() {
			_, _ = cmd.ErrOrStderr().Write(held.Bytes())
		}()
	}
	logger := newLogger(opts.RootOptions, logOut)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	runID := runIDs.Generate()

	eng := engine.New(
		engine.WithAlgorithm(alg),
		engine.WithPacer(pacer),
		engine.WithLogger(logger),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
	)

	// A cancelled run is still recorded, so store writes ignore cancellation.
	storeCtx := context.WithoutCancel(ctx)

	// Everything that can fail before the sort starts happens before the run
	// is recorded, so a recorded run always reaches FinishRun.
	var screen tcell.Screen
	if opts.Render {
		if screen, err = opts.screen(); err != nil {
			return WrapExitError(ExitCommandError, "failed to open terminal", err)
		}
		if err := screen.Init(); err != nil {
			return WrapExitError(ExitCommandError, "failed to initialize terminal", err)
		}
		defer screen.Fini()
	}

	rec := consumer.NewRecorder()
	sinks := []consumer.Sink{rec}

	var st *store.Store
	var sink *store.Sink
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		if err := st.BeginRun(storeCtx, store.RunHeader{
			ID:        runID,
			Algorithm: alg.Name(),
			Input:     input,
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		sink = st.NewSink(storeCtx, runID, 0)
		sinks = append(sinks, sink)
	}
	// Extra sinks go last so the recorder and store see every operation
	// that reached any of them.
	sinks = append(sinks, opts.Sinks...)

	tx, rx := transport.New()
	consumed := make(chan error, 1)
	var mirror *consumer.Mirror

	if opts.Render {
		renderer := consumer.NewRenderer(screen, input,
			consumer.WithPalette(palette),
			consumer.WithTitle(fmt.Sprintf("%s sort, %d elements", alg.Name(), len(input))),
			consumer.WithRendererLogger(logger),
		)
		mirror = renderer.Mirror()
		go renderer.WatchKeys(cancel)

		tap := consumer.NewTap(rx, sinks...)
		go func() {
			err := renderer.Run(ctx, tap)
			if err == nil {
				err = tap.Err()
			}
			if err != nil {
				rx.Close()
			}
			consumed <- err
		}()
	} else {
		mirror = consumer.NewMirror(input)
		go func() {
			// The queue always ends with Close, so the pump needs no deadline
			// of its own and drains what a cancelled run did send.
			_, err := consumer.Pump(storeCtx, rx, append([]consumer.Sink{mirror}, sinks...)...)
			if err != nil {
				rx.Close()
			}
			consumed <- err
		}()
	}

	seq := protocol.Clone(input)
	report, runErr := eng.Run(ctx, seq, tx)
	tx.Close()
	consumeErr := <-consumed
	quit := errors.Is(consumeErr, context.Canceled)
	if quit {
		consumeErr = nil
	}

	if opts.Render && opts.Hold && runErr == nil && consumeErr == nil {
		<-ctx.Done()
	}

	digest, digestErr := rec.Digest()

	result := SortResult{
		Report:  report,
		Input:   protocol.Values(input),
		Output:  protocol.Values(seq),
		Seed:    seed,
		Digest:  digest,
		Applied: mirror.Applied(),
	}

	var failure *ExitError
	var code string
	switch {
	case consumeErr != nil:
		failure = WrapExitError(ExitFailure, "consumer failed", consumeErr)
		code = CodeMismatch
	case runErr != nil:
		failure = WrapExitError(ExitFailure, "run cancelled", runErr)
		code = CodeCancelled
	case quit:
		failure = NewExitError(ExitFailure, "renderer closed before the stream ended")
		code = CodeCancelled
	case digestErr != nil:
		failure = WrapExitError(ExitFailure, "failed to digest trace", digestErr)
		code = CodeMismatch
	default:
		if err := mirror.Verify(seq); err != nil {
			failure = WrapExitError(ExitFailure, "consumer diverged from engine", err)
			code = CodeMismatch
		} else {
			result.Verified = true
		}
	}

	if sink != nil {
		status := store.StatusComplete
		switch code {
		case CodeCancelled:
			status = store.StatusCancelled
		case CodeMismatch:
			status = store.StatusFailed
		}
		flushErr := sink.Flush()
		if flushErr != nil {
			status = store.StatusFailed
		}
		if err := st.FinishRun(storeCtx, runID, store.RunResult{
			Output:  seq,
			Emitted: report.Emitted,
			Dropped: report.Dropped,
			Digest:  digest,
			Status:  status,
		}); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		if flushErr != nil {
			return WrapExitError(ExitCommandError, "failed to record operations", flushErr)
		}
		result.Recorded = true
		logger.Debug("run recorded", "run_id", runID, "status", status, "operations", sink.Written())
	}

	if failure != nil && out.IsJSON() {
		if err := out.Error(code, failure.Error(), result); err != nil {
			return err
		}
		return failure
	}
	if err := out.Success(result, func(w io.Writer) { writeSortText(w, result) }); err != nil {
		return err
	}
	if failure != nil {
		return failure
	}
	return nil
}

// input resolves --values or --random. seed is set only for --random.
func (opts *RunOptions) input(cmd *cobra.Command) ([]protocol.Element, *uint64, error) {
	if !cmd.Flags().Changed("random") {
		return protocol.NewElements(opts.Values...), nil, nil
	}

	if opts.Random < 0 || opts.Random > MaxRandomLength {
		return nil, nil, fmt.Errorf("--random must be between 0 and %d, got %d", MaxRandomLength, opts.Random)
	}
	seed := opts.Seed
	if !cmd.Flags().Changed("seed") {
		seed = uint64(time.Now().UnixNano())
	}
	return protocol.NewElements(randomValues(opts.Random, seed)...), &seed, nil
}

// profile loads --pacing and applies --speed.
func (opts *RunOptions) profile(cmd *cobra.Command) (config.Profile, error) {
	profile := config.Default()
	if opts.Pacing != "" {
		var err error
		profile, err = config.Load(opts.Pacing)
		if err != nil {
			return config.Profile{}, err
		}
	}
	if cmd.Flags().Changed("speed") {
		if opts.Speed <= 0 {
			return config.Profile{}, fmt.Errorf("--speed must be positive, got %g", opts.Speed)
		}
		profile.Speed = opts.Speed
	}
	return profile, nil
}

func (opts *RunOptions) screen() (tcell.Screen, error) {
	if opts.Screen != nil {
		return opts.Screen, nil
	}
	return tcell.NewScreen()
}

// randomValues returns n values in [1, 4n], reproducible from seed.
func randomValues(n int, seed uint64) []int64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	values := make([]int64, n)
	for i := range values {
		values[i] = r.Int64N(int64(n)*4) + 1
	}
	return values
}

func writeSortText(w io.Writer, r SortResult) {
	rep := r.Report
	fmt.Fprintf(w, "Run: %s\n", rep.RunID)
	fmt.Fprintf(w, "  Algorithm: %s (%d elements)\n", rep.Algorithm, rep.Length)
	if r.Seed != nil {
		fmt.Fprintf(w, "  Seed: %d\n", *r.Seed)
	}
	fmt.Fprintf(w, "  Input:  %v\n", r.Input)
	fmt.Fprintf(w, "  Output: %v\n", r.Output)
	fmt.Fprintf(w, "  Operations: %d emitted, %d delivered, %d dropped\n", rep.Emitted, rep.Delivered, rep.Dropped)
	fmt.Fprintf(w, "  Compares: %d  Overwrites: %d  Phase changes: %d  Pauses: %d\n",
		rep.Compares, rep.Overwrites, rep.PhaseChanges, rep.Pauses)
	fmt.Fprintf(w, "  Digest: %s\n", r.Digest)
	fmt.Fprintf(w, "  Elapsed: %s (paced %s)\n", rep.Elapsed.Round(time.Millisecond), rep.Paced.Round(time.Millisecond))
	if r.Recorded {
		fmt.Fprintln(w, "  Recorded: yes")
	}
	fmt.Fprintln(w)

	switch {
	case rep.Cancelled:
		fmt.Fprintf(w, "✗ Run cancelled after %d operations\n", rep.Emitted)
	case r.Verified:
		fmt.Fprintf(w, "✓ Consumer applied %d operations and matches the engine\n", r.Applied)
	default:
		fmt.Fprintln(w, "✗ Consumer diverged from the engine")
	}
}
