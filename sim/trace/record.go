// Package trace provides per-event trace recording for simulation runs.
// It has no dependencies on sim/ and stores pure data types.
package trace

// Outcome names what a handler did with an event.
type Outcome string

const (
	OutcomeRestocked Outcome = "restocked"  // supply added to stock
	OutcomeHandedOff Outcome = "handed_off" // supply went straight to a waiting client
	OutcomeServed    Outcome = "served"     // demand met from stock
	OutcomePenalized Outcome = "penalized"  // demand met an empty station and left
	OutcomeWaiting   Outcome = "waiting"    // demand met an empty station and joined the backlog
	OutcomeContact   Outcome = "contact"    // epidemic contact without transmission
	OutcomeInfected  Outcome = "infected"   // epidemic contact that transmitted
)

// EventRecord captures a single applied event and the state right after it.
type EventRecord struct {
	Trial     int
	Time      float64
	Class     int
	Outcome   Outcome
	Available int     // resource count after the event
	Money     float64 // accrued money after the event
}
