package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mergeviz/internal/protocol"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a recorded run.
type Run struct {
	ID              string             `json:"id"`
	Seq             int64              `json:"seq"`
	Algorithm       string             `json:"algorithm"`
	Length          int                `json:"length"`
	Input           []protocol.Element `json:"input"`
	Output          []protocol.Element `json:"output"`
	Status          string             `json:"status"`
	Emitted         int                `json:"emitted"`
	Dropped         int                `json:"dropped"`
	Digest          string             `json:"digest"`
	EngineVersion   string             `json:"engine_version"`
	ProtocolVersion string             `json:"protocol_version"`
}

const runColumns = `id, seq, algorithm, length, input, output, status, emitted, dropped, digest, engine_version, protocol_version`

// ReadRun retrieves a single run by ID.
// Returns an error wrapping ErrRunNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// LatestRun returns the most recently begun run.
// Returns ErrRunNotFound if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns every run in the order they were begun.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadOperations returns a run's trace ordered by seq.
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) ReadOperations(ctx context.Context, runID string) ([]protocol.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, idx, idx_b, phase, elem_value, elem_key
		FROM operations
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []protocol.Operation{}
	for rows.Next() {
		var seq int64
		var row opRow
		if err := rows.Scan(&seq, &row.kind, &row.idx, &row.idxB, &row.phase, &row.value, &row.key); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op, err := fromRow(seq, row)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// CountOperations returns how many recorded operations of each kind a run
// has.
func (s *Store) CountOperations(ctx context.Context, runID string) (map[protocol.Kind]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM operations
		WHERE run_id = ?
		GROUP BY kind
		ORDER BY kind
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count operations: %w", err)
	}
	defer rows.Close()

	counts := make(map[protocol.Kind]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		kind, err := protocol.ParseKind(name)
		if err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counts: %w", err)
	}
	return counts, nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (Run, error) {
	var run Run
	var input, output string

	err := sc.Scan(
		&run.ID,
		&run.Seq,
		&run.Algorithm,
		&run.Length,
		&input,
		&output,
		&run.Status,
		&run.Emitted,
		&run.Dropped,
		&run.Digest,
		&run.EngineVersion,
		&run.ProtocolVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.Input, err = unmarshalElements(input); err != nil {
		return Run{}, fmt.Errorf("run %s input: %w", run.ID, err)
	}
	if run.Output, err = unmarshalElements(output); err != nil {
		return Run{}, fmt.Errorf("run %s output: %w", run.ID, err)
	}
	return run, nil
}
