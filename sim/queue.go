package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Clock names used by the single-server queue models.
const (
	ClockArrival = "arrival"
	ClockService = "service"
)

// Queue strategies.
const (
	QueueStrategyTick  = "tick"
	QueueStrategyEvent = "event"
)

// QueueModel advances a single-server queue one unit step at a time.
type QueueModel interface {
	// Advance simulates the next unit interval [i, i+1) and returns the
	// number of customers waiting (not in service) at its end.
	Advance() int
	// Stats returns cumulative counters since construction.
	Stats() QueueStats
}

// QueueStats holds cumulative counters of a queue model.
type QueueStats struct {
	Steps    int     // unit steps simulated
	Arrivals int     // customers that joined the line
	Served   int     // customers whose service has started
	BusyTime float64 // Σ (service end − service start) over served customers
	Waiting  int     // customers waiting at the end of the last step
}

// ServiceRecord describes one customer's service as booked by a queue model.
type ServiceRecord struct {
	Arrival float64
	Start   float64
	End     float64
}

// NewQueueModel builds the queue model for strategy over v.
func NewQueueModel(strategy string, v Variates) (QueueModel, error) {
	switch strategy {
	case QueueStrategyTick, "":
		return NewTickQueue(v), nil
	case QueueStrategyEvent:
		return NewEventOrderedQueue(v), nil
	default:
		return nil, fmt.Errorf("unknown queue strategy %q; valid: tick, event", strategy)
	}
}

// === Tick-based (residual-clock) variant ===

// TickQueue steps through unit intervals. Arrivals within a step get exact
// instants from a uniform offset; service bookkeeping carries the residual
// of a service that straddles a step boundary into the next step.
type TickQueue struct {
	v    Variates
	line *EventQueue // waiting customers keyed by arrival instant

	// nextService is the earliest instant the server is free.
	nextService float64
	stats       QueueStats

	// OnServe, if set, is called for every customer taken into service.
	OnServe func(ServiceRecord)
}

// NewTickQueue creates an empty tick-based queue.
func NewTickQueue(v Variates) *TickQueue {
	return &TickQueue{v: v, line: NewEventQueue()}
}

// Advance implements QueueModel.
func (q *TickQueue) Advance() int {
	i := float64(q.stats.Steps)

	arrivals := q.v.DrawCount(ClockArrival)
	for j := 0; j < arrivals; j++ {
		at := i + q.v.DrawUniform()
		q.line.Schedule(Event{Time: at, Kind: EventArrival, Service: q.v.DrawInterval(ClockService)})
	}
	q.stats.Arrivals += arrivals

	for q.line.Len() > 0 && q.nextService < i+1 {
		client, _ := q.line.PopNext()
		// residual of the previous service still running at step start
		delta := math.Max(q.nextService-i, 0)
		start := i + delta
		q.nextService = start + client.Service
		q.stats.Served++
		q.stats.BusyTime += q.nextService - start
		if q.OnServe != nil {
			q.OnServe(ServiceRecord{Arrival: client.Time, Start: start, End: q.nextService})
		}
	}

	q.stats.Steps++
	q.stats.Waiting = q.line.Len()
	logrus.Tracef("[step %d] arrivals=%d waiting=%d next service=%.4f", q.stats.Steps-1, arrivals, q.stats.Waiting, q.nextService)
	return q.stats.Waiting
}

// Stats implements QueueModel.
func (q *TickQueue) Stats() QueueStats {
	return q.stats
}

// NextServiceTime returns the instant the server next becomes free.
func (q *TickQueue) NextServiceTime() float64 {
	return q.nextService
}

// === Event-ordered variant ===

// EventOrderedQueue is a next-event single-server queue. Interarrival gaps
// come from the arrival clock, service durations from the service clock,
// and a ClockTick at every integer instant samples the waiting line.
type EventOrderedQueue struct {
	v       Variates
	events  *EventQueue
	waiting []Event // FIFO of customers not yet in service
	busy    bool
	current ServiceRecord
	stats   QueueStats

	// OnServe, if set, is called for every customer taken into service.
	OnServe func(ServiceRecord)
}

// NewEventOrderedQueue creates an empty queue with its first arrival pending.
func NewEventOrderedQueue(v Variates) *EventOrderedQueue {
	q := &EventOrderedQueue{v: v, events: NewEventQueue()}
	q.events.Schedule(Event{Time: v.DrawInterval(ClockArrival), Kind: EventArrival})
	return q
}

// Next implements Scheduler.
func (q *EventOrderedQueue) Next(limit float64) (Event, bool) {
	ev, ok := q.events.Peek()
	if !ok || ev.Time > limit {
		return Event{}, false
	}
	return q.events.PopNext()
}

// Apply implements Handler.
func (q *EventOrderedQueue) Apply(ev Event) {
	switch ev.Kind {
	case EventArrival:
		q.events.Schedule(Event{Time: ev.Time + q.v.DrawInterval(ClockArrival), Kind: EventArrival})
		ev.Service = q.v.DrawInterval(ClockService)
		q.stats.Arrivals++
		if q.busy {
			q.waiting = append(q.waiting, ev)
			return
		}
		q.startService(ev, ev.Time)
	case EventDeparture:
		q.busy = false
		if len(q.waiting) > 0 {
			next := q.waiting[0]
			q.waiting = q.waiting[1:]
			q.startService(next, ev.Time)
		}
	case EventClockTick:
		q.stats.Waiting = len(q.waiting)
	}
}

func (q *EventOrderedQueue) startService(client Event, now float64) {
	end := now + client.Service
	q.busy = true
	q.current = ServiceRecord{Arrival: client.Time, Start: now, End: end}
	q.stats.Served++
	q.stats.BusyTime += end - now
	q.events.Schedule(Event{Time: end, Kind: EventDeparture})
	if q.OnServe != nil {
		q.OnServe(q.current)
	}
}

// Advance implements QueueModel.
func (q *EventOrderedQueue) Advance() int {
	boundary := float64(q.stats.Steps + 1)
	q.events.Schedule(Event{Time: boundary, Kind: EventClockTick})
	n := Drive(q, q, boundary)
	q.stats.Steps++
	logrus.Tracef("[step %d] events=%d waiting=%d", q.stats.Steps-1, n, q.stats.Waiting)
	return q.stats.Waiting
}

// Stats implements QueueModel.
func (q *EventOrderedQueue) Stats() QueueStats {
	return q.stats
}
