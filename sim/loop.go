package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// maxHorizon drives a model until its scheduler runs dry.
const maxHorizon = math.MaxFloat64

// Scheduler produces a model's time-ordered event stream.
type Scheduler interface {
	// Next removes and returns the earliest pending event whose timestamp
	// is <= limit, generating further events from its clocks as needed.
	// It returns false once the earliest pending event lies beyond limit.
	Next(limit float64) (Event, bool)
}

// Handler applies category-specific state transitions for one event.
type Handler interface {
	Apply(ev Event)
}

// Drive feeds events from s to h in timestamp order until the next event
// lies beyond limit. It returns the number of events applied.
func Drive(s Scheduler, h Handler, limit float64) int {
	n := 0
	for {
		ev, ok := s.Next(limit)
		if !ok {
			return n
		}
		logrus.Tracef("[t=%.6f] applying %s", ev.Time, ev)
		h.Apply(ev)
		n++
	}
}
