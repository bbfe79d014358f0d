package protocol

// Element is one position in the sequence being sorted.
//
// Value is the only field the algorithm compares. Key records the element's
// original position so stability can be checked after the sort; Phase is
// presentation state and is never read by the algorithm.
type Element struct {
	Value int64 `json:"value"`
	Key   int   `json:"key"`
	Phase Phase `json:"phase"`
}

// LessOrEqual reports whether e sorts at or before o.
// This is the merge tie-break: taking the left element on equality keeps
// equal values in their original left-to-right order.
func (e Element) LessOrEqual(o Element) bool {
	return e.Value <= o.Value
}

// NewElements builds a sequence from values. Each element's Key is its
// index and its Phase is Neutral.
func NewElements(values ...int64) []Element {
	elems := make([]Element, len(values))
	for i, v := range values {
		elems[i] = Element{Value: v, Key: i, Phase: Neutral}
	}
	return elems
}

// Clone returns a copy of elems that shares no storage with it.
// Returns nil for a nil slice.
func Clone(elems []Element) []Element {
	if elems == nil {
		return nil
	}
	out := make([]Element, len(elems))
	copy(out, elems)
	return out
}

// Values extracts the value of every element in order.
func Values(elems []Element) []int64 {
	out := make([]int64, len(elems))
	for i, e := range elems {
		out[i] = e.Value
	}
	return out
}
