package engine

import "sync/atomic"

// Clock hands out operation sequence numbers for one run.
//
// The zero Clock is ready to use and its first Next returns 1. Emitters
// build a fresh Clock per run, so replaying a run reproduces its seq
// numbers exactly.
type Clock struct {
	last atomic.Int64
}

// NewClock returns a Clock whose first Next is 1.
func NewClock() *Clock {
	return new(Clock)
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	return c.last.Add(1)
}

// Current returns the last sequence number handed out, or 0 if none.
func (c *Clock) Current() int64 {
	return c.last.Load()
}
