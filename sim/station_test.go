package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queuesim/queuesim/sim/internal/testutil"
	"github.com/queuesim/queuesim/sim/trace"
)

// smallStation has one supply clock and two demand classes.
func smallStation() StationConfig {
	return StationConfig{
		Strategy:     StationStrategyPerClass,
		Horizon:      5,
		InitialStock: 1,
		SupplyRate:   1,
		Classes: []ClassSpec{
			{Name: "member", Rate: 1, Penalty: 1.0, AnnualFee: 0.5},
			{Name: "casual", Rate: 2, Penalty: 0.25, RideFee: 1.25},
		},
		Estimator: TrialEstimatorConfig(0.01, 1.96),
	}
}

// smallStationScript fires: member@1, casual@2, casual@2.5, supply@3, member@4.
func smallStationScript() *testutil.ScriptedVariates {
	return &testutil.ScriptedVariates{
		Intervals: map[string][]float64{
			ClockSupply: {3.0, 10},
			"class-1":   {1.0, 3.0, 10},
			"class-2":   {2.0, 0.5, 10},
		},
	}
}

func TestStation_HandComputedTrace(t *testing.T) {
	// GIVEN a T=5 station with one unit in stock and scripted clocks
	cfg := smallStation()
	tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents})

	// WHEN the trial runs to the horizon
	out, err := RunStationTrial(cfg, smallStationScript(), tr, 0)
	require.NoError(t, err)

	// THEN the outcome matches the hand trace:
	//   t=1   member takes the only unit (empty from 1)
	//   t=2   casual penalized 0.25
	//   t=2.5 casual penalized 0.25
	//   t=3   supply restocks (empty 1..3)
	//   t=4   member takes it (empty 4..5, closed at the horizon)
	assert.Equal(t, 0.0, out.Money, "0.5 annual − 2 × 0.25")
	assert.Equal(t, 3.0, out.TimeEmpty)
	assert.Equal(t, -4.5, out.Dissatisfaction, "−3 × (1×1.0 + 2×0.25)")
	assert.Equal(t, 0, out.Available)
	assert.Equal(t, 2, out.Served)
	assert.Equal(t, 2, out.Penalized)
	assert.Equal(t, 2, out.Lost)
	assert.Equal(t, 0, out.Backlogged)
	assert.Equal(t, 5, out.Events)

	var outcomes []trace.Outcome
	var times []float64
	for _, r := range tr.Events {
		outcomes = append(outcomes, r.Outcome)
		times = append(times, r.Time)
	}
	assert.Equal(t, []trace.Outcome{
		trace.OutcomeServed, trace.OutcomePenalized, trace.OutcomePenalized,
		trace.OutcomeRestocked, trace.OutcomeServed,
	}, outcomes)
	assert.Equal(t, []float64{1, 2, 2.5, 3, 4}, times)
}

// bikeStationScript spaces every clock evenly over T=5:
// supply at 2, 4; class 1 at 1.5, 3, 4.5; class 2 at 3.7; class 3 every 0.7.
func bikeStationScript() *testutil.ScriptedVariates {
	return &testutil.ScriptedVariates{
		Intervals: map[string][]float64{
			ClockSupply: {2},
			"class-1":   {1.5},
			"class-2":   {3.7},
			"class-3":   {0.7},
		},
	}
}

func TestStation_BikeStationParameters_ScriptedTrace(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		money     float64
		timeEmpty float64
		dissat    float64
		available int
		served    int
		penalized int
	}{
		{
			// stock never drops below 1: annual 1.6 plus 7 rides at 1.25
			name: "stock 10", stock: 10,
			money: 10.35, available: 1, served: 11,
		},
		{
			// empty 1.4..2, 2.1..4 and 4.2..5; every class pays its penalty while empty
			name: "stock 2", stock: 2,
			money: 1.6 + 5 - 3.25, timeEmpty: 3.3, dissat: -3.3 * 3.25,
			available: 0, served: 4, penalized: 7,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN the bike-station rates and fees over T=5
			cfg := bikeStation()
			cfg.Horizon = 5
			cfg.InitialStock = tt.stock
			tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents})

			// WHEN the trial runs on evenly spaced clocks
			out, err := RunStationTrial(cfg, bikeStationScript(), tr, 0)
			require.NoError(t, err)

			// THEN all 13 events apply and the totals match the hand trace
			assert.Equal(t, 13, out.Events)
			assert.InDelta(t, tt.money, out.Money, 1e-9)
			assert.InDelta(t, tt.timeEmpty, out.TimeEmpty, 1e-9)
			assert.InDelta(t, tt.dissat, out.Dissatisfaction, 1e-9)
			assert.Equal(t, tt.available, out.Available)
			assert.Equal(t, tt.served, out.Served)
			assert.Equal(t, tt.penalized, out.Penalized)
			assert.Equal(t, tt.penalized, out.Lost)

			require.Len(t, tr.Events, 13)
			var classes []int
			for _, r := range tr.Events {
				classes = append(classes, r.Class)
			}
			assert.Equal(t, []int{3, 3, 1, 0, 3, 3, 1, 3, 2, 0, 3, 1, 3}, classes)
			assert.InDelta(t, 4.9, tr.Events[12].Time, 1e-9)
		})
	}
}

func TestStation_Backlog_SupplyGoesToOldestWaiting(t *testing.T) {
	// GIVEN the same script with unserved demand waiting for supply
	cfg := smallStation()
	cfg.Backlog = true

	// WHEN the trial runs
	out, err := RunStationTrial(cfg, smallStationScript(), nil, 0)
	require.NoError(t, err)

	// THEN the supply at t=3 goes to the casual rider who waited since t=2,
	// the station never restocks and stays empty from t=1 to the horizon
	assert.Equal(t, 0.25, out.Money, "0.5 − 0.25 − 0.25 + 1.25 − 1.0")
	assert.Equal(t, 4.0, out.TimeEmpty)
	assert.Equal(t, -6.0, out.Dissatisfaction)
	assert.Equal(t, 0, out.Available)
	assert.Equal(t, 2, out.Served)
	assert.Equal(t, 3, out.Penalized)
	assert.Equal(t, 0, out.Lost)
	assert.Equal(t, 2, out.Backlogged)
}

func TestStation_EmptyAtStart_CountsFromZero(t *testing.T) {
	cfg := smallStation()
	cfg.InitialStock = 0
	v := &testutil.ScriptedVariates{
		Intervals: map[string][]float64{
			ClockSupply: {2.0, 10},
			"class-1":   {10},
			"class-2":   {10},
		},
	}
	out, err := RunStationTrial(cfg, v, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.TimeEmpty)
	assert.Equal(t, 1, out.Available)
}

func TestStationOutcome_Statistic(t *testing.T) {
	o := StationOutcome{Money: 1, TimeEmpty: 2, Dissatisfaction: -3}
	assert.Equal(t, 1.0, o.Statistic(StatisticMoney))
	assert.Equal(t, 2.0, o.Statistic(StatisticTimeEmpty))
	assert.Equal(t, -3.0, o.Statistic(StatisticDissatisfaction))
	assert.Equal(t, -3.0, o.Statistic(""))
}

func TestStationConfig_Derived(t *testing.T) {
	cfg := smallStation()
	assert.Equal(t, 3, cfg.ClassCount())
	assert.Equal(t, []float64{1, 1, 2}, cfg.Rates())
	assert.Equal(t, 4.0, cfg.TotalRate())
	assert.Equal(t, 0.5, cfg.InitialMoney())
	assert.Equal(t, -1.5, cfg.DissatisfactionCost(1))

	names := []string{}
	for _, c := range StationClocks(cfg) {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"supply", "class-1", "class-2"}, names)

	cfg.Strategy = StationStrategyAggregate
	clocks := StationClocks(cfg)
	last := clocks[len(clocks)-1]
	assert.Equal(t, ClockAggregate, last.Name)
	assert.Equal(t, 4.0, last.Rate)
}

type recordingHandler struct{ events []Event }

func (h *recordingHandler) Apply(ev Event) { h.events = append(h.events, ev) }

func TestAggregateScheduler_SortsWithinIntervalAndClassifies(t *testing.T) {
	// GIVEN counts 2, 0, 1, 0 for the intervals [0,1) .. [3,4)
	v := &testutil.ScriptedVariates{
		Counts:     map[string][]int{ClockAggregate: {2, 0, 1, 0}},
		Uniforms:   []float64{0.7, 0.2, 0.5},
		Categories: []int{1, 0, 2},
	}
	s := NewAggregateScheduler(v, []float64{6, 3, 1})
	h := &recordingHandler{}

	// WHEN driven to t=3
	n := Drive(s, h, 3)

	// THEN instants are sorted within their interval and classes drawn in time order
	require.Equal(t, 3, n)
	assert.Equal(t, 0.2, h.events[0].Time)
	assert.Equal(t, 1, h.events[0].Class)
	assert.Equal(t, 0.7, h.events[1].Time)
	assert.Equal(t, 0, h.events[1].Class)
	assert.Equal(t, 2.5, h.events[2].Time)
	assert.Equal(t, 2, h.events[2].Class)
}

func TestBernoulliScheduler_SubSteps(t *testing.T) {
	// GIVEN two clocks and two sub-steps per unit
	v := &testutil.ScriptedVariates{
		Bernoullis: []bool{true, false, false, true, false},
	}
	s := NewBernoulliScheduler(v, []float64{1, 2}, 2)
	h := &recordingHandler{}

	// WHEN driven inside the first unit interval
	Drive(s, h, 0.9)

	// THEN sub-step 0 fired class 0 and sub-step 1 fired class 1
	require.Len(t, h.events, 2)
	assert.Equal(t, 0.0, h.events[0].Time)
	assert.Equal(t, 0, h.events[0].Class)
	assert.Equal(t, 0.5, h.events[1].Time)
	assert.Equal(t, 1, h.events[1].Class)
	assert.Equal(t, 4, v.Calls, "one trial per clock per sub-step")
}

func TestPerClassScheduler_OnePendingEventPerClass(t *testing.T) {
	v := smallStationScript()
	s := NewPerClassScheduler(v, 3)
	assert.Equal(t, 3, s.events.Len())
	_, ok := s.Next(5)
	require.True(t, ok)
	assert.Equal(t, 3, s.events.Len(), "consuming an event schedules the same class again")
}

func TestNewStationScheduler_UnknownStrategy(t *testing.T) {
	_, err := NewStationScheduler(StationConfig{Strategy: "round-robin"}, smallStationScript())
	assert.ErrorContains(t, err, "unknown station strategy")
}

func TestRunStationTrial_StockConservation(t *testing.T) {
	// GIVEN the bike-station parameters and real clocks, for every strategy
	for _, strategy := range []string{StationStrategyPerClass, StationStrategyAggregate, StationStrategyBernoulli} {
		t.Run(strategy, func(t *testing.T) {
			cfg := StationConfig{
				Strategy: strategy, Horizon: 120, InitialStock: 10, SupplyRate: 6, Resolution: 20,
				Classes: []ClassSpec{
					{Rate: 3, Penalty: 1.0, AnnualFee: 0.5},
					{Rate: 1, Penalty: 0.25, AnnualFee: 0.1},
					{Rate: 4, RideFee: 1.25},
				},
				Estimator: TrialEstimatorConfig(0.01, 1.96),
			}
			require.NoError(t, cfg.Validate())
			bank := newTestBank(t, 21, StationClocks(cfg)...)
			tr := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents})

			// WHEN one trial runs
			out, err := RunStationTrial(cfg, bank, tr, 0)
			require.NoError(t, err)

			// THEN stock = initial + restocks − rides from stock, never negative
			summary := trace.Summarize(tr)
			restocked := summary.ByOutcome[trace.OutcomeRestocked]
			served := summary.ByOutcome[trace.OutcomeServed]
			assert.Equal(t, 10+restocked-served, out.Available)
			assert.GreaterOrEqual(t, summary.MinAvailable, 0)
			assert.Equal(t, out.Events, summary.TotalEvents)
			assert.LessOrEqual(t, summary.LastEventAt, 120.0)
			assert.GreaterOrEqual(t, out.TimeEmpty, 0.0)
			assert.LessOrEqual(t, out.TimeEmpty, 120.0)
			assert.Equal(t, out.Penalized, out.Lost)
		})
	}
}
