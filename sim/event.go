package sim

import "fmt"

// EventKind labels what happened at an Event's timestamp.
type EventKind int

const (
	// EventArrival is an arrival into the system: a customer joining a line,
	// a resource returned to a station, a demand for a resource, a contact.
	EventArrival EventKind = iota
	// EventDeparture is a service completion.
	EventDeparture
	// EventClockTick is an external observation instant at a step boundary.
	EventClockTick
)

func (k EventKind) String() string {
	switch k {
	case EventArrival:
		return "arrival"
	case EventDeparture:
		return "departure"
	case EventClockTick:
		return "tick"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is an immutable scheduled occurrence.
// Class is the category index for multi-class models; Service carries a
// pre-drawn service duration for arrivals into a queue.
type Event struct {
	Time    float64
	Kind    EventKind
	Class   int
	Service float64

	seq uint64 // insertion order, assigned by EventQueue
}

// Seq returns the insertion sequence assigned when the event was scheduled.
func (e Event) Seq() uint64 {
	return e.seq
}

func (e Event) String() string {
	return fmt.Sprintf("%s(class=%d) at %.6f", e.Kind, e.Class, e.Time)
}
