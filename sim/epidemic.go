package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/queuesim/queuesim/sim/trace"
)

// ClockContact names the epidemic contact clock.
const ClockContact = "contact"

// EpidemicOutcome summarizes one contact-process trial.
type EpidemicOutcome struct {
	TimeToFull float64 `json:"time_to_full"` // instant the last person was infected
	Contacts   int     `json:"contacts"`
	Infections int     `json:"infections"` // transmissions, excluding patient zero
}

// Epidemic is a closed-population contact process. At exponential intervals
// two distinct people meet; if exactly one is infected the other catches it
// with the configured probability.
type Epidemic struct {
	cfg      EpidemicConfig
	v        Variates
	infected []bool
	count    int
	clock    float64
	contacts int
	next     float64 // drawn time of the next contact, 0 if not yet drawn
	trace    *trace.SimulationTrace
	trial    int
}

// NewEpidemic creates a population with one randomly chosen person infected.
func NewEpidemic(cfg EpidemicConfig, v Variates, tr *trace.SimulationTrace, trial int) *Epidemic {
	e := &Epidemic{cfg: cfg, v: v, infected: make([]bool, cfg.Population), trace: tr, trial: trial}
	e.infected[v.DrawIndex(cfg.Population)] = true
	e.count = 1
	return e
}

// Infected returns the current number of infected people.
func (e *Epidemic) Infected() int {
	return e.count
}

// Next implements Scheduler. Contacts are generated one at a time, so the
// next contact is drawn only after the previous one has been applied.
func (e *Epidemic) Next(limit float64) (Event, bool) {
	if e.count == len(e.infected) {
		return Event{}, false
	}
	if e.next == 0 {
		e.next = e.clock + e.v.DrawInterval(ClockContact)
	}
	if e.next > limit {
		return Event{}, false
	}
	at := e.next
	e.next = 0
	return Event{Time: at, Kind: EventArrival}, true
}

// Apply implements Handler.
func (e *Epidemic) Apply(ev Event) {
	e.clock = ev.Time
	e.contacts++

	// two distinct people, sampled without replacement
	n := len(e.infected)
	a := e.v.DrawIndex(n)
	b := e.v.DrawIndex(n - 1)
	if b >= a {
		b++
	}

	outcome := trace.OutcomeContact
	if e.infected[a] != e.infected[b] && e.v.DrawUniform() < e.cfg.InfectionProb {
		e.infected[a], e.infected[b] = true, true
		e.count++
		outcome = trace.OutcomeInfected
	}
	if e.trace.Enabled() {
		e.trace.RecordEvent(trace.EventRecord{Trial: e.trial, Time: ev.Time, Outcome: outcome, Available: e.count})
	}
}

// RunEpidemicTrial runs contacts until the whole population is infected.
func RunEpidemicTrial(cfg EpidemicConfig, v Variates, tr *trace.SimulationTrace, trial int) EpidemicOutcome {
	e := NewEpidemic(cfg, v, tr, trial)
	Drive(e, e, maxHorizon)
	logrus.Debugf("trial %d: %d contacts, fully infected at t=%.4f", trial, e.contacts, e.clock)
	return EpidemicOutcome{TimeToFull: e.clock, Contacts: e.contacts, Infections: e.count - 1}
}
