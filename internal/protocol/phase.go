package protocol

import "fmt"

// Phase tags an element's current role in the algorithm.
//
// The set is closed. The zero value is Neutral.
type Phase uint8

const (
	// Neutral marks an element with no active role.
	Neutral Phase = iota
	// Dividing marks every element of a range about to be split.
	Dividing
	// LeftMergeCandidate marks the left half of a range being merged.
	LeftMergeCandidate
	// RightMergeCandidate marks the right half of a range being merged.
	RightMergeCandidate
	// PlacedFromLeft marks a slot just written from the left half.
	PlacedFromLeft
	// PlacedFromRight marks a slot just written from the right half.
	PlacedFromRight
)

var phaseNames = [...]string{
	Neutral:             "neutral",
	Dividing:            "dividing",
	LeftMergeCandidate:  "left_merge_candidate",
	RightMergeCandidate: "right_merge_candidate",
	PlacedFromLeft:      "placed_from_left",
	PlacedFromRight:     "placed_from_right",
}

// Phases returns every phase in declaration order.
func Phases() []Phase {
	return []Phase{Neutral, Dividing, LeftMergeCandidate, RightMergeCandidate, PlacedFromLeft, PlacedFromRight}
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	return int(p) < len(phaseNames)
}

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
	return phaseNames[p]
}

// ParsePhase returns the phase with the given name.
func ParsePhase(name string) (Phase, error) {
	for i, n := range phaseNames {
		if n == name {
			return Phase(i), nil
		}
	}
	return Neutral, fmt.Errorf("unknown phase %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
