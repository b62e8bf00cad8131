package sim

import "container/heap"

// eventHeap implements heap.Interface.
// Order by: timestamp → insertion sequence. Equal timestamps are allowed and
// come out first-in first-out; no timestamp is ever perturbed.
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// EventQueue is a min-ordered queue of events keyed by timestamp.
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)
	return q
}

// Schedule inserts ev in O(log n) and returns it with its sequence assigned.
func (q *EventQueue) Schedule(ev Event) Event {
	q.nextSeq++
	ev.seq = q.nextSeq
	heap.Push(&q.events, ev)
	return ev
}

// PopNext removes and returns the earliest event.
func (q *EventQueue) PopNext() (Event, bool) {
	if q.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(&q.events).(Event), true
}

// Peek returns the earliest event without removing it.
func (q *EventQueue) Peek() (Event, bool) {
	if q.Len() == 0 {
		return Event{}, false
	}
	return q.events[0], true
}

// Len returns the number of pending events.
func (q *EventQueue) Len() int {
	return q.events.Len()
}

// Reset drops every pending event. Sequence numbers keep increasing.
func (q *EventQueue) Reset() {
	q.events = q.events[:0]
}
