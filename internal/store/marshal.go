package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/mergeviz/internal/protocol"
)

// marshalElements converts a sequence to canonical JSON TEXT for storage.
func marshalElements(elems []protocol.Element) (string, error) {
	if elems == nil {
		elems = []protocol.Element{}
	}
	data, err := protocol.MarshalElements(elems)
	if err != nil {
		return "", fmt.Errorf("marshal elements: %w", err)
	}
	return string(data), nil
}

// unmarshalElements parses a stored sequence. Never returns nil.
func unmarshalElements(text string) ([]protocol.Element, error) {
	elems := []protocol.Element{}
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return nil, fmt.Errorf("unmarshal elements: %w", err)
	}
	return elems, nil
}

// opRow is the column form of an operation.
type opRow struct {
	kind  string
	idx   int
	idxB  sql.NullInt64
	phase sql.NullString
	value sql.NullInt64
	key   sql.NullInt64
}

func toRow(op protocol.Operation) opRow {
	row := opRow{kind: op.Kind.String(), idx: op.Index}
	switch op.Kind {
	case protocol.KindSetPhase:
		row.phase = sql.NullString{String: op.Phase.String(), Valid: true}
	case protocol.KindCompare:
		row.idxB = sql.NullInt64{Int64: int64(op.IndexB), Valid: true}
	case protocol.KindOverwrite:
		row.phase = sql.NullString{String: op.Element.Phase.String(), Valid: true}
		row.value = sql.NullInt64{Int64: op.Element.Value, Valid: true}
		row.key = sql.NullInt64{Int64: int64(op.Element.Key), Valid: true}
	}
	return row
}

func fromRow(seq int64, row opRow) (protocol.Operation, error) {
	kind, err := protocol.ParseKind(row.kind)
	if err != nil {
		return protocol.Operation{}, fmt.Errorf("operation %d: %w", seq, err)
	}

	op := protocol.Operation{Seq: seq, Kind: kind, Index: row.idx}
	switch kind {
	case protocol.KindSetPhase:
		op.Phase, err = parseNullPhase(row.phase)
	case protocol.KindCompare:
		if !row.idxB.Valid {
			return protocol.Operation{}, fmt.Errorf("operation %d: compare without idx_b", seq)
		}
		op.IndexB = int(row.idxB.Int64)
	case protocol.KindOverwrite:
		if !row.value.Valid || !row.key.Valid {
			return protocol.Operation{}, fmt.Errorf("operation %d: overwrite without element", seq)
		}
		op.Element.Value = row.value.Int64
		op.Element.Key = int(row.key.Int64)
		op.Element.Phase, err = parseNullPhase(row.phase)
	}
	if err != nil {
		return protocol.Operation{}, fmt.Errorf("operation %d: %w", seq, err)
	}
	return op, nil
}

func parseNullPhase(ns sql.NullString) (protocol.Phase, error) {
	if !ns.Valid {
		return 0, fmt.Errorf("missing phase")
	}
	return protocol.ParsePhase(ns.String)
}
