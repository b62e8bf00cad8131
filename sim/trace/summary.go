package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents  int             `json:"total_events"`
	Dropped      int             `json:"dropped"`
	ByClass      map[int]int     `json:"by_class"`   // class index → event count
	ByOutcome    map[Outcome]int `json:"by_outcome"` // outcome → event count
	FirstEventAt float64         `json:"first_event_at"`
	LastEventAt  float64         `json:"last_event_at"`
	MinAvailable int             `json:"min_available"`
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ByClass:   make(map[int]int),
		ByOutcome: make(map[Outcome]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	summary.Dropped = st.Dropped
	for i, r := range st.Events {
		summary.ByClass[r.Class]++
		summary.ByOutcome[r.Outcome]++
		if i == 0 {
			summary.FirstEventAt = r.Time
			summary.MinAvailable = r.Available
		}
		summary.LastEventAt = r.Time
		if r.Available < summary.MinAvailable {
			summary.MinAvailable = r.Available
		}
	}
	return summary
}
