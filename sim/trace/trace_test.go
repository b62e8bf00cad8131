package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"events", true},
		{"", true},
		{"decisions", false},
		{"EVENTS", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTraceLevel(tt.level))
		})
	}
}

func TestSimulationTrace_RecordEvent(t *testing.T) {
	// GIVEN an events-level trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN two records are added
	st.RecordEvent(EventRecord{Time: 1, Class: 0, Outcome: OutcomeRestocked, Available: 3})
	st.RecordEvent(EventRecord{Time: 2, Class: 1, Outcome: OutcomeServed, Available: 2})

	// THEN both are stored in order
	assert.Len(t, st.Events, 2)
	assert.Equal(t, OutcomeServed, st.Events[1].Outcome)
	assert.Equal(t, 0, st.Dropped)
}

func TestSimulationTrace_MaxRecords_CountsDropped(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents, MaxRecords: 2})
	for i := 0; i < 5; i++ {
		st.RecordEvent(EventRecord{Time: float64(i)})
	}
	assert.Len(t, st.Events, 2)
	assert.Equal(t, 3, st.Dropped)
	assert.Equal(t, 1.0, st.Events[1].Time, "the earliest records are kept")
}

func TestSimulationTrace_Disabled(t *testing.T) {
	// GIVEN a none-level trace and a nil trace
	none := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})
	var nilTrace *SimulationTrace

	// WHEN recording
	none.RecordEvent(EventRecord{Time: 1})
	nilTrace.RecordEvent(EventRecord{Time: 1})

	// THEN nothing is stored and nothing panics
	assert.False(t, none.Enabled())
	assert.False(t, nilTrace.Enabled())
	assert.Empty(t, none.Events)
	assert.Equal(t, 0, none.Dropped)
}
