package protocol

import (
	"errors"
	"fmt"
)

// Kind distinguishes operation variants.
type Kind uint8

const (
	// KindSetPhase changes the phase at Index. The value is unchanged.
	KindSetPhase Kind = iota + 1
	// KindCompare reports that Index and IndexB were just compared.
	// It carries no ordering result.
	KindCompare
	// KindOverwrite replaces the element stored at Index with Element.
	KindOverwrite
)

var kindNames = map[Kind]string{
	KindSetPhase:  "set_phase",
	KindCompare:   "compare",
	KindOverwrite: "overwrite",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation kind %q", name)
}

// Operation is an immutable record of one visualization-relevant step.
//
// Which fields are meaningful depends on Kind:
//   - KindSetPhase:  Index, Phase
//   - KindCompare:   Index, IndexB
//   - KindOverwrite: Index, Element
//
// Seq is stamped by the engine when the operation is emitted. It starts at
// 1 for every run and increases by one per operation.
type Operation struct {
	Seq     int64
	Kind    Kind
	Index   int
	IndexB  int
	Phase   Phase
	Element Element
}

// SetPhase builds a KindSetPhase operation.
func SetPhase(index int, phase Phase) Operation {
	return Operation{Kind: KindSetPhase, Index: index, Phase: phase}
}

// Compare builds a KindCompare operation.
func Compare(a, b int) Operation {
	return Operation{Kind: KindCompare, Index: a, IndexB: b}
}

// Overwrite builds a KindOverwrite operation carrying a copy of e.
func Overwrite(index int, e Element) Operation {
	return Operation{Kind: KindOverwrite, Index: index, Element: e}
}

// ErrIndexOutOfRange is returned when an operation names an index outside
// the sequence it is applied to.
var ErrIndexOutOfRange = errors.New("index out of range")

// Validate checks that op is well formed for a sequence of the given length.
func (op Operation) Validate(length int) error {
	inRange := func(i int) bool { return i >= 0 && i < length }

	switch op.Kind {
	case KindSetPhase:
		if !op.Phase.Valid() {
			return fmt.Errorf("seq %d: invalid phase %d", op.Seq, uint8(op.Phase))
		}
		if !inRange(op.Index) {
			return fmt.Errorf("seq %d: set_phase index %d (len %d): %w", op.Seq, op.Index, length, ErrIndexOutOfRange)
		}
	case KindCompare:
		if !inRange(op.Index) || !inRange(op.IndexB) {
			return fmt.Errorf("seq %d: compare %d,%d (len %d): %w", op.Seq, op.Index, op.IndexB, length, ErrIndexOutOfRange)
		}
	case KindOverwrite:
		if !inRange(op.Index) {
			return fmt.Errorf("seq %d: overwrite index %d (len %d): %w", op.Seq, op.Index, length, ErrIndexOutOfRange)
		}
	default:
		return fmt.Errorf("seq %d: unknown operation kind %d", op.Seq, uint8(op.Kind))
	}
	return nil
}

func (op Operation) String() string {
	switch op.Kind {
	case KindSetPhase:
		return fmt.Sprintf("#%d set_phase(%d, %s)", op.Seq, op.Index, op.Phase)
	case KindCompare:
		return fmt.Sprintf("#%d compare(%d, %d)", op.Seq, op.Index, op.IndexB)
	case KindOverwrite:
		return fmt.Sprintf("#%d overwrite(%d, value=%d key=%d)", op.Seq, op.Index, op.Element.Value, op.Element.Key)
	default:
		return fmt.Sprintf("#%d %s", op.Seq, op.Kind)
	}
}
