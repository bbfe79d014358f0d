package engine

import (
	"context"

	"github.com/roach88/mergeviz/internal/protocol"
)

// InsertionSort is a stable insertion sort speaking the same protocol as
// MergeSort. Phases are reused as follows: the element being inserted is a
// RightMergeCandidate, the sorted prefix it moves through is a
// LeftMergeCandidate, shifted slots are PlacedFromLeft and the slot that
// receives the inserted element is PlacedFromRight.
type InsertionSort struct{}

// Name implements Algorithm.
func (InsertionSort) Name() string { return "insertion" }

// Sort implements Algorithm.
func (InsertionSort) Sort(ctx context.Context, seq []protocol.Element, em *Emitter) error {
	for i := 1; i < len(seq); i++ {
		if em.Halted() {
			break
		}

		for p := 0; p < i; p++ {
			em.SetPhase(seq, p, protocol.LeftMergeCandidate)
		}
		em.SetPhase(seq, i, protocol.RightMergeCandidate)
		_ = em.Pause(ctx, PauseMergeStart)

		key := seq[i]
		j := i - 1
		for j >= 0 {
			em.Compare(j, j+1)
			_ = em.Pause(ctx, PauseCompare)
			// Strict > leaves equal elements in front of key: stability.
			if seq[j].Value <= key.Value {
				break
			}
			em.Overwrite(seq, j+1, seq[j])
			em.SetPhase(seq, j+1, protocol.PlacedFromLeft)
			_ = em.Pause(ctx, PausePlace)
			j--
		}

		em.Overwrite(seq, j+1, key)
		em.SetPhase(seq, j+1, protocol.PlacedFromRight)
		_ = em.Pause(ctx, PauseDrain)

		for p := 0; p <= i; p++ {
			em.SetPhase(seq, p, protocol.Neutral)
		}
		_ = em.Pause(ctx, PauseMergeDone)
	}
	return em.Err()
}
