package store

import (
	"context"
	"fmt"

	"github.com/roach88/mergeviz/internal/protocol"
)

// Run status values.
const (
	StatusRunning   = "running"
	StatusComplete  = "complete"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RunHeader is what is known about a run before it starts.
type RunHeader struct {
	ID        string
	Algorithm string
	Input     []protocol.Element
}

// RunResult is what is known about a run once it ends.
type RunResult struct {
	Output  []protocol.Element
	Emitted int
	Dropped int
	Digest  string

	// Status is StatusComplete, StatusCancelled or StatusFailed (the
	// consumer broke off, so the trace is partial). Empty means complete.
	Status string
}

// BeginRun records a run as running. The store assigns the run's seq.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - beginning the same run
// twice is silently ignored.
func (s *Store) BeginRun(ctx context.Context, h RunHeader) error {
	input, err := marshalElements(h.Input)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, algorithm, length, input, engine_version, protocol_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		h.ID,
		h.Algorithm,
		len(h.Input),
		input,
		protocol.EngineVersion,
		protocol.ProtocolVersion,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run started with BeginRun.
// Returns an error wrapping sql.ErrNoRows if the run was never begun.
func (s *Store) FinishRun(ctx context.Context, id string, r RunResult) error {
	output, err := marshalElements(r.Output)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	status := r.Status
	switch status {
	case "":
		status = StatusComplete
	case StatusComplete, StatusCancelled, StatusFailed:
	default:
		return fmt.Errorf("finish run %s: invalid status %q", id, status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET output = ?, status = ?, emitted = ?, dropped = ?, digest = ?
		WHERE id = ?
	`, output, status, r.Emitted, r.Dropped, r.Digest, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// WriteOperations appends ops to a run's trace in a single transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting an operation with
// the same (run_id, seq) is silently ignored.
//
// The run must have been begun (foreign key constraint).
func (s *Store) WriteOperations(ctx context.Context, runID string, ops []protocol.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write operations: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO operations
		(run_id, seq, kind, idx, idx_b, phase, elem_value, elem_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write operations: prepare: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		row := toRow(op)
		if _, err := stmt.ExecContext(ctx,
			runID, op.Seq, row.kind, row.idx, row.idxB, row.phase, row.value, row.key,
		); err != nil {
			return fmt.Errorf("write operation %d: %w", op.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write operations: commit: %w", err)
	}
	return nil
}
