package engine

import (
	"fmt"
	"time"
)

// Pause names an instrumentation point where an algorithm yields wall-clock
// time so a human can follow its progress.
type Pause int

const (
	// PauseDivide follows marking a range as Dividing.
	PauseDivide Pause = iota
	// PauseMergeStart follows marking both halves as merge candidates.
	PauseMergeStart
	// PauseCompare follows each Compare.
	PauseCompare
	// PausePlace follows each placement made after a comparison.
	PausePlace
	// PauseDrain follows each placement made while draining a half.
	PauseDrain
	// PauseMergeDone follows resetting a merged range to Neutral.
	PauseMergeDone
)

var pauseNames = [...]string{
	PauseDivide:     "divide",
	PauseMergeStart: "merge_start",
	PauseCompare:    "compare",
	PausePlace:      "place",
	PauseDrain:      "drain",
	PauseMergeDone:  "merge_done",
}

// Pauses returns every pause point in declaration order.
func Pauses() []Pause {
	return []Pause{PauseDivide, PauseMergeStart, PauseCompare, PausePlace, PauseDrain, PauseMergeDone}
}

func (p Pause) String() string {
	if p < 0 || int(p) >= len(pauseNames) {
		return fmt.Sprintf("pause(%d)", int(p))
	}
	return pauseNames[p]
}

// ParsePause returns the pause point with the given name.
func ParsePause(name string) (Pause, error) {
	for i, n := range pauseNames {
		if n == name {
			return Pause(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pause point %q", name)
}

// Pacer maps an instrumentation point to the delay taken there.
// Pacing controls timing only; it never changes what is emitted.
type Pacer interface {
	Delay(p Pause) time.Duration
}

// PacerFunc adapts a function to the Pacer interface.
type PacerFunc func(p Pause) time.Duration

// Delay calls f(p).
func (f PacerFunc) Delay(p Pause) time.Duration {
	return f(p)
}

// PacingTable is a Pacer backed by a fixed table. Missing points have no
// delay.
type PacingTable map[Pause]time.Duration

// Delay returns the table entry for p.
func (t PacingTable) Delay(p Pause) time.Duration {
	return t[p]
}

// DefaultPacing returns the standard human-perceivable delays.
func DefaultPacing() PacingTable {
	return PacingTable{
		PauseDivide:     100 * time.Millisecond,
		PauseMergeStart: 100 * time.Millisecond,
		PauseCompare:    80 * time.Millisecond,
		PausePlace:      60 * time.Millisecond,
		PauseDrain:      40 * time.Millisecond,
		PauseMergeDone:  50 * time.Millisecond,
	}
}

// NoPacing returns a Pacer with zero delay everywhere.
func NoPacing() Pacer {
	return PacerFunc(func(Pause) time.Duration { return 0 })
}

// Scaled divides every delay of p by speed. A speed of 2 runs twice as
// fast. Non-positive speeds leave p unchanged.
func Scaled(p Pacer, speed float64) Pacer {
	if speed <= 0 || speed == 1 {
		return p
	}
	return PacerFunc(func(pause Pause) time.Duration {
		return time.Duration(float64(p.Delay(pause)) / speed)
	})
}
