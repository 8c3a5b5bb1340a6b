package sceneplayer

import "sort"

// mark is a one-shot event fired once playback position reaches AtMs.
type mark struct {
	atMs int64
	fire func()
}

// eventCursor tracks a sorted list of time-ordered marks and a
// first-not-yet-fired cursor. Advancing the cursor as position increases
// avoids re-scanning already-fired marks every tick; a seek rewinds (or
// fast-forwards) the cursor so marks before the new position are treated
// as already fired and marks after it are re-armed to fire again when
// reached.
type eventCursor struct {
	marks []mark
	next  int
}

func newEventCursor(marks []mark) *eventCursor {
	sorted := append([]mark(nil), marks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].atMs < sorted[j].atMs })
	return &eventCursor{marks: sorted}
}

// advance fires every not-yet-fired mark at or before positionMs.
func (c *eventCursor) advance(positionMs int64) {
	for c.next < len(c.marks) && c.marks[c.next].atMs <= positionMs {
		c.marks[c.next].fire()
		c.next++
	}
}

// rearm repositions the cursor for a jump to positionMs: marks at or
// before positionMs are treated as already fired (won't refire without a
// further seek backward), marks after it become eligible again.
func (c *eventCursor) rearm(positionMs int64) {
	next := 0
	for next < len(c.marks) && c.marks[next].atMs <= positionMs {
		next++
	}
	c.next = next
}
