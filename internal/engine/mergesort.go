package engine

import (
	"context"

	"github.com/roach88/mergeviz/internal/protocol"
)

// MergeSort is top-down merge sort with a left-biased midpoint.
//
// Every divide and merge step is instrumented. There is no early exit for
// already-sorted input, so the number of SetPhase and Overwrite operations
// depends only on the length. Compare counts depend on the data.
type MergeSort struct{}

// Name implements Algorithm.
func (MergeSort) Name() string { return "merge" }

// Sort implements Algorithm.
func (m MergeSort) Sort(ctx context.Context, seq []protocol.Element, em *Emitter) error {
	if len(seq) > 1 {
		m.sortRange(ctx, seq, 0, len(seq)-1, em)
	}
	return em.Err()
}

// sortRange sorts the inclusive range [left, right].
func (m MergeSort) sortRange(ctx context.Context, seq []protocol.Element, left, right int, em *Emitter) {
	if left >= right || em.Halted() {
		return
	}

	mid := left + (right-left)/2

	for i := left; i <= right; i++ {
		em.SetPhase(seq, i, protocol.Dividing)
	}
	if em.Pause(ctx, PauseDivide) != nil {
		return
	}

	m.sortRange(ctx, seq, left, mid, em)
	if em.Halted() {
		return
	}
	m.sortRange(ctx, seq, mid+1, right, em)
	if em.Halted() {
		return
	}
	m.merge(ctx, seq, left, mid, right, em)
}

// merge combines the sorted ranges [left, mid] and [mid+1, right].
//
// Both halves are copied first because the destination overlaps them.
// Once started a merge always places every element, even if the emitter
// halts part way, so seq never holds a duplicated or lost element.
func (m MergeSort) merge(ctx context.Context, seq []protocol.Element, left, mid, right int, em *Emitter) {
	leftBuf := protocol.Clone(seq[left : mid+1])
	rightBuf := protocol.Clone(seq[mid+1 : right+1])

	for i := left; i <= mid; i++ {
		em.SetPhase(seq, i, protocol.LeftMergeCandidate)
	}
	for i := mid + 1; i <= right; i++ {
		em.SetPhase(seq, i, protocol.RightMergeCandidate)
	}
	_ = em.Pause(ctx, PauseMergeStart)

	i, j, k := 0, 0, left
	for i < len(leftBuf) && j < len(rightBuf) {
		em.Compare(left+i, mid+1+j)
		_ = em.Pause(ctx, PauseCompare)

		// <= takes the left element on ties: stability.
		if leftBuf[i].LessOrEqual(rightBuf[j]) {
			em.Overwrite(seq, k, leftBuf[i])
			em.SetPhase(seq, k, protocol.PlacedFromLeft)
			i++
		} else {
			em.Overwrite(seq, k, rightBuf[j])
			em.SetPhase(seq, k, protocol.PlacedFromRight)
			j++
		}
		_ = em.Pause(ctx, PausePlace)
		k++
	}

	for ; i < len(leftBuf); i++ {
		em.Overwrite(seq, k, leftBuf[i])
		em.SetPhase(seq, k, protocol.PlacedFromLeft)
		_ = em.Pause(ctx, PauseDrain)
		k++
	}

	for ; j < len(rightBuf); j++ {
		em.Overwrite(seq, k, rightBuf[j])
		em.SetPhase(seq, k, protocol.PlacedFromRight)
		_ = em.Pause(ctx, PauseDrain)
		k++
	}

	for idx := left; idx <= right; idx++ {
		em.SetPhase(seq, idx, protocol.Neutral)
	}
	_ = em.Pause(ctx, PauseMergeDone)
}
