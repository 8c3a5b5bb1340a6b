package sceneplayer

import "testing"

func TestEventCursor_FiresInOrderOnce(t *testing.T) {
	var fired []int64
	c := newEventCursor([]mark{
		{atMs: 100, fire: func() { fired = append(fired, 100) }},
		{atMs: 50, fire: func() { fired = append(fired, 50) }},
		{atMs: 200, fire: func() { fired = append(fired, 200) }},
	})

	c.advance(60)
	c.advance(60) // re-scanning same position fires nothing new
	c.advance(150)

	want := []int64{50, 100}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired = %v, want %v", fired, want)
		}
	}
}

func TestEventCursor_RearmOnSeekBack(t *testing.T) {
	count := 0
	c := newEventCursor([]mark{{atMs: 100, fire: func() { count++ }}})

	c.advance(150)
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	c.rearm(0) // seek back to start
	c.advance(150)
	if count != 2 {
		t.Fatalf("count after rearm+advance = %d, want 2", count)
	}
}

func TestEventCursor_RearmForwardSkipsPassedMarks(t *testing.T) {
	count := 0
	c := newEventCursor([]mark{{atMs: 100, fire: func() { count++ }}})

	c.rearm(500) // seek forward past the mark
	c.advance(500)
	if count != 0 {
		t.Errorf("count = %d, want 0 (mark before seek target should not refire)", count)
	}
}
