package sim

import (
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/queuesim/queuesim/sim/trace"
)

// Station strategies.
const (
	StationStrategyPerClass  = "per-class"
	StationStrategyAggregate = "aggregate"
	StationStrategyBernoulli = "bernoulli"
)

// SupplyClass is the class index of the supply clock; demand classes are 1..N.
const SupplyClass = 0

// ClockSupply and ClockAggregate name the station's non-demand clocks.
const (
	ClockSupply    = "supply"
	ClockAggregate = "aggregate"
)

// StationClockName returns the clock name used for class k.
func StationClockName(k int) string {
	if k == SupplyClass {
		return ClockSupply
	}
	return fmt.Sprintf("class-%d", k)
}

// StationClocks returns the clock specs a station run must register.
func StationClocks(cfg StationConfig) []ClockSpec {
	specs := []ClockSpec{{Name: ClockSupply, Dist: DistExponential, Rate: cfg.SupplyRate}}
	for k, c := range cfg.Classes {
		specs = append(specs, ClockSpec{Name: StationClockName(k + 1), Dist: DistExponential, Rate: c.Rate})
	}
	if cfg.Strategy == StationStrategyAggregate {
		specs = append(specs, ClockSpec{Name: ClockAggregate, Dist: DistPoisson, Rate: cfg.TotalRate()})
	}
	return specs
}

// StationState is the mutable state of one station trial.
type StationState struct {
	Clock     float64
	Available int
	Money     float64
	TimeEmpty float64
	Served    int // rides handed out
	Penalized int // demands that met an empty station
	Lost      int // penalized demands that left without a ride
	Events    int

	emptyOpen  bool
	emptySince float64
}

// StationOutcome summarizes a finished station trial.
type StationOutcome struct {
	Money           float64 `json:"money"`
	TimeEmpty       float64 `json:"time_empty"`
	Dissatisfaction float64 `json:"dissatisfaction"`
	Available       int     `json:"available"`
	Served          int     `json:"served"`
	Penalized       int     `json:"penalized"`
	Lost            int     `json:"lost"`
	Backlogged      int     `json:"backlogged"`
	Events          int     `json:"events"`
}

// Statistic returns the named trial statistic.
func (o StationOutcome) Statistic(name string) float64 {
	switch name {
	case StatisticMoney:
		return o.Money
	case StatisticTimeEmpty:
		return o.TimeEmpty
	default:
		return o.Dissatisfaction
	}
}

// Station applies the supply/demand rules of a resource station.
//
// Transfer rule: a supply event hands its unit to the longest-waiting
// backlogged client if there is one, otherwise it restocks. A demand takes
// a unit from stock if any; otherwise it pays the class penalty and either
// joins the backlog (Backlog mode) or is lost. A ride fee is charged when a
// ride is actually handed out.
type Station struct {
	cfg    StationConfig
	state  StationState
	ledger *Ledger
	trace  *trace.SimulationTrace
	trial  int
}

// NewStation creates a station at t=0 with the configured initial stock.
// tr may be nil.
func NewStation(cfg StationConfig, tr *trace.SimulationTrace, trial int) *Station {
	s := &Station{cfg: cfg, ledger: NewLedger(), trace: tr, trial: trial}
	s.state.Available = cfg.InitialStock
	s.state.Money = cfg.InitialMoney()
	if s.state.Available == 0 {
		s.state.emptyOpen = true
	}
	return s
}

// Apply implements Handler.
func (s *Station) Apply(ev Event) {
	st := &s.state
	st.Clock = ev.Time
	st.Events++

	var outcome trace.Outcome
	if ev.Class == SupplyClass {
		outcome = s.supply(ev.Time)
	} else {
		outcome = s.demand(ev.Class, ev.Time)
	}

	logrus.Debugf("[t=%.4f] class %d %s: available=%d money=%.2f", ev.Time, ev.Class, outcome, st.Available, st.Money)
	if s.trace.Enabled() {
		s.trace.RecordEvent(trace.EventRecord{
			Trial: s.trial, Time: ev.Time, Class: ev.Class, Outcome: outcome,
			Available: st.Available, Money: st.Money,
		})
	}
}

func (s *Station) supply(now float64) trace.Outcome {
	st := &s.state
	if s.cfg.Backlog {
		if c, ok := s.ledger.PopOldest(); ok {
			st.Money += s.cfg.Classes[c.Class-1].RideFee
			st.Served++
			return trace.OutcomeHandedOff
		}
	}
	st.Available++
	if st.emptyOpen {
		st.TimeEmpty += now - st.emptySince
		st.emptyOpen = false
	}
	return trace.OutcomeRestocked
}

func (s *Station) demand(class int, now float64) trace.Outcome {
	st := &s.state
	spec := s.cfg.Classes[class-1]
	if st.Available > 0 {
		st.Available--
		st.Money += spec.RideFee
		st.Served++
		if st.Available == 0 {
			st.emptyOpen = true
			st.emptySince = now
		}
		return trace.OutcomeServed
	}
	st.Money -= spec.Penalty
	st.Penalized++
	if s.cfg.Backlog {
		s.ledger.Add(class, now)
		return trace.OutcomeWaiting
	}
	st.Lost++
	return trace.OutcomePenalized
}

// Finish closes an empty interval still open at horizon and returns the outcome.
func (s *Station) Finish(horizon float64) StationOutcome {
	st := &s.state
	if st.emptyOpen {
		st.TimeEmpty += horizon - st.emptySince
		st.emptySince = horizon
	}
	return StationOutcome{
		Money:           st.Money,
		TimeEmpty:       st.TimeEmpty,
		Dissatisfaction: s.cfg.DissatisfactionCost(st.TimeEmpty),
		Available:       st.Available,
		Served:          st.Served,
		Penalized:       st.Penalized,
		Lost:            st.Lost,
		Backlogged:      s.ledger.Len(),
		Events:          st.Events,
	}
}

// === Schedulers ===

// NewStationScheduler builds the scheduler selected by cfg.Strategy.
func NewStationScheduler(cfg StationConfig, v Variates) (Scheduler, error) {
	switch cfg.Strategy {
	case StationStrategyPerClass, "":
		return NewPerClassScheduler(v, cfg.ClassCount()), nil
	case StationStrategyAggregate:
		logrus.Infof("aggregate lambda is %.4f", cfg.TotalRate())
		return NewAggregateScheduler(v, cfg.Rates()), nil
	case StationStrategyBernoulli:
		return NewBernoulliScheduler(v, cfg.Rates(), cfg.Resolution), nil
	default:
		return nil, fmt.Errorf("unknown station strategy %q; valid: per-class, aggregate, bernoulli", cfg.Strategy)
	}
}

// PerClassScheduler keeps exactly one pending event per class. Consuming a
// class's event immediately schedules that class's next occurrence.
type PerClassScheduler struct {
	v      Variates
	events *EventQueue
}

// NewPerClassScheduler draws the first event of each of n classes.
func NewPerClassScheduler(v Variates, n int) *PerClassScheduler {
	s := &PerClassScheduler{v: v, events: NewEventQueue()}
	for k := 0; k < n; k++ {
		s.events.Schedule(Event{Time: v.DrawInterval(StationClockName(k)), Kind: EventArrival, Class: k})
	}
	return s
}

// Next implements Scheduler.
func (s *PerClassScheduler) Next(limit float64) (Event, bool) {
	ev, ok := s.events.Peek()
	if !ok || ev.Time > limit {
		return Event{}, false
	}
	ev, _ = s.events.PopNext()
	s.events.Schedule(Event{Time: ev.Time + s.v.DrawInterval(StationClockName(ev.Class)), Kind: EventArrival, Class: ev.Class})
	return ev, true
}

// intervalScheduler materializes events one unit interval at a time.
type intervalScheduler struct {
	events *EventQueue
	filled int // intervals [0, filled) have been generated
	fill   func(start float64, events *EventQueue)
}

func (s *intervalScheduler) Next(limit float64) (Event, bool) {
	for float64(s.filled) <= limit {
		if ev, ok := s.events.Peek(); ok && ev.Time < float64(s.filled) {
			break
		}
		s.fill(float64(s.filled), s.events)
		s.filled++
	}
	ev, ok := s.events.Peek()
	if !ok || ev.Time > limit {
		return Event{}, false
	}
	return s.events.PopNext()
}

// AggregateScheduler draws one Poisson count per unit interval from the
// summed rate of all classes, places each event uniformly in the interval
// and labels it with a class drawn in proportion to the class rates.
type AggregateScheduler struct {
	intervalScheduler
}

// NewAggregateScheduler creates a superposed-clock scheduler. The
// ClockAggregate clock must carry the sum of rates.
func NewAggregateScheduler(v Variates, rates []float64) *AggregateScheduler {
	weights := slices.Clone(rates)
	s := &AggregateScheduler{}
	s.events = NewEventQueue()
	s.fill = func(start float64, events *EventQueue) {
		n := v.DrawCount(ClockAggregate)
		times := make([]float64, n)
		for i := range times {
			times[i] = start + v.DrawUniform()
		}
		slices.Sort(times)
		for _, t := range times {
			events.Schedule(Event{Time: t, Kind: EventArrival, Class: v.DrawCategory(weights)})
		}
	}
	return s
}

// BernoulliScheduler approximates each Poisson clock by resolution
// Bernoulli trials per unit interval, each succeeding with rate/resolution.
type BernoulliScheduler struct {
	intervalScheduler
}

// NewBernoulliScheduler creates a Bernoulli tick-approximation scheduler.
func NewBernoulliScheduler(v Variates, rates []float64, resolution int) *BernoulliScheduler {
	probs := make([]float64, len(rates))
	for k, r := range rates {
		probs[k] = r / float64(resolution)
	}
	dt := 1 / float64(resolution)
	s := &BernoulliScheduler{}
	s.events = NewEventQueue()
	s.fill = func(start float64, events *EventQueue) {
		for q := 0; q < resolution; q++ {
			t := start + float64(q)*dt
			for k, p := range probs {
				if v.DrawBernoulli(p) {
					events.Schedule(Event{Time: t, Kind: EventArrival, Class: k})
				}
			}
		}
	}
	return s
}

// RunStationTrial simulates one station trial to cfg.Horizon.
func RunStationTrial(cfg StationConfig, v Variates, tr *trace.SimulationTrace, trial int) (StationOutcome, error) {
	sched, err := NewStationScheduler(cfg, v)
	if err != nil {
		return StationOutcome{}, err
	}
	st := NewStation(cfg, tr, trial)
	Drive(sched, st, cfg.Horizon)
	return st.Finish(cfg.Horizon), nil
}
