package usage

import "sort"

// RangedView is a resolved window over a sorted label sequence. Start
// and End are the actual labels at the resolved indices, not the
// requested bounds. An empty view has EndIndex == -1 and StartIndex == 0.
type RangedView struct {
	Start      string
	End        string
	Labels     []string
	StartIndex int
	EndIndex   int
}

// Empty reports whether the view selects no days.
func (v RangedView) Empty() bool {
	return v.EndIndex < v.StartIndex
}

// Len returns the number of selected days.
func (v RangedView) Len() int {
	if v.Empty() {
		return 0
	}
	return v.EndIndex - v.StartIndex + 1
}

// ResolveRange clamps the requested [start, end] day window onto the
// sorted label sequence. Reversed bounds are swapped before resolution.
// Each bound clamps independently: start snaps to the first label >= it
// (falling back to index 0 past the end), end snaps to the last label
// <= it (falling back to the last index before the start). If the
// clamped indices cross, they are swapped so a request overlapping the
// data never yields an empty view.
func ResolveRange(labels []string, start, end string) RangedView {
	if len(labels) == 0 {
		return RangedView{StartIndex: 0, EndIndex: -1}
	}

	if start > end {
		start, end = end, start
	}

	startIdx := sort.SearchStrings(labels, start)
	if startIdx >= len(labels) {
		startIdx = 0
	}

	// Last label <= end.
	endIdx := sort.SearchStrings(labels, end)
	if endIdx < len(labels) && labels[endIdx] == end {
		// exact hit
	} else {
		endIdx--
	}
	if endIdx < 0 {
		endIdx = len(labels) - 1
	}

	if startIdx > endIdx {
		startIdx, endIdx = endIdx, startIdx
	}

	return RangedView{
		Start:      labels[startIdx],
		End:        labels[endIdx],
		Labels:     labels[startIdx : endIdx+1],
		StartIndex: startIdx,
		EndIndex:   endIdx,
	}
}

// ResolveAll returns the view covering every label.
func ResolveAll(labels []string) RangedView {
	if len(labels) == 0 {
		return RangedView{StartIndex: 0, EndIndex: -1}
	}
	return RangedView{
		Start:      labels[0],
		End:        labels[len(labels)-1],
		Labels:     labels,
		StartIndex: 0,
		EndIndex:   len(labels) - 1,
	}
}
