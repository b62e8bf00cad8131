package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// queueScheduler serves pre-scheduled events from an EventQueue.
type queueScheduler struct{ q *EventQueue }

func (s queueScheduler) Next(limit float64) (Event, bool) {
	ev, ok := s.q.Peek()
	if !ok || ev.Time > limit {
		return Event{}, false
	}
	return s.q.PopNext()
}

func TestDrive_StopsAtLimit_Inclusive(t *testing.T) {
	// GIVEN events at 1, 2, 2, 3 and 4
	q := NewEventQueue()
	for i, ts := range []float64{4, 2, 1, 3, 2} {
		q.Schedule(Event{Time: ts, Class: i})
	}
	h := &recordingHandler{}

	// WHEN driven to t=3
	n := Drive(queueScheduler{q}, h, 3)

	// THEN events up to and including t=3 are applied in order, ties FIFO
	assert.Equal(t, 4, n)
	var classes []int
	for _, ev := range h.events {
		classes = append(classes, ev.Class)
	}
	assert.Equal(t, []int{2, 1, 4, 3}, classes)
	assert.Equal(t, 1, q.Len(), "the event past the limit stays pending")

	// AND driving further picks up where it stopped
	assert.Equal(t, 1, Drive(queueScheduler{q}, h, 10))
	assert.Equal(t, 0, Drive(queueScheduler{q}, h, 10))
}
