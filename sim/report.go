package sim

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/queuesim/queuesim/sim/trace"
)

// Models.
const (
	ModelQueue    = "queue"
	ModelStation  = "station"
	ModelEpidemic = "epidemic"
)

// TrialResult is the outcome of one trial.
type TrialResult struct {
	Trial int     `json:"trial"`
	Value float64 `json:"value"` // the trial statistic fed to the summary estimator
	Steps int     `json:"steps"` // unit steps (queue) or applied events
	Draws int64   `json:"draws"`

	Estimate *Estimate        `json:"estimate,omitempty"` // per-trial batch means (queue)
	Station  *StationOutcome  `json:"station,omitempty"`
	Epidemic *EpidemicOutcome `json:"epidemic,omitempty"`
}

// StationSummary carries the cross-trial intervals of every station statistic.
type StationSummary struct {
	Money           Estimate `json:"money"`
	TimeEmpty       Estimate `json:"time_empty"`
	Dissatisfaction Estimate `json:"dissatisfaction"`
}

// Report is the result of a run.
type Report struct {
	RunID     string        `json:"run_id"`
	Model     string        `json:"model"`
	Strategy  string        `json:"strategy"`
	Statistic string        `json:"statistic"`
	Seed      int64         `json:"seed"`
	Trials    []TrialResult `json:"trials"`
	Summary   Estimate      `json:"summary"` // interval over trial values
	Events    int           `json:"events"`  // Σ steps over trials

	// Reference is the analytic value for comparison, when one exists.
	Reference *float64 `json:"reference,omitempty"`

	Station *StationSummary     `json:"station_summary,omitempty"`
	Trace   *trace.TraceSummary `json:"trace,omitempty"`
}

func newReport(model, strategy, statistic string, seed int64) *Report {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Report{RunID: id.String(), Model: model, Strategy: strategy, Statistic: statistic, Seed: seed}
}

// Print writes one line per trial followed by the summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "=== %s (%s) run %s, seed %d ===\n", r.Model, r.Strategy, r.RunID, r.Seed)
	for _, t := range r.Trials {
		switch {
		case t.Estimate != nil:
			fmt.Fprintf(w, "trial %d: mean %s %.6f ± %.6f after %d steps (%d batches)\n",
				t.Trial, r.Statistic, t.Value, t.Estimate.HalfWidth, t.Steps, t.Estimate.Batches)
		case t.Station != nil:
			fmt.Fprintf(w, "trial %d: money %.4f, time empty %.4f, dissatisfaction %.4f, %d events\n",
				t.Trial, t.Station.Money, t.Station.TimeEmpty, t.Station.Dissatisfaction, t.Steps)
		default:
			fmt.Fprintf(w, "trial %d: %s %.6f after %d events\n", t.Trial, r.Statistic, t.Value, t.Steps)
		}
	}

	fmt.Fprintln(w, "=== Summary ===")
	if r.Station != nil {
		printInterval(w, "Average Money", r.Station.Money)
		printInterval(w, "Average Time Empty", r.Station.TimeEmpty)
		printInterval(w, "Dissatisfaction Cost", r.Station.Dissatisfaction)
	} else {
		printInterval(w, "Mean "+r.Statistic, r.Summary)
	}
	if r.Reference != nil {
		fmt.Fprintf(w, "%-22s: %.6f\n", "Analytic Reference", *r.Reference)
	}
	fmt.Fprintf(w, "%-22s: %d\n", "Trials", len(r.Trials))
	fmt.Fprintf(w, "%-22s: %d\n", "Total Steps/Events", r.Events)
	if r.Trace != nil {
		fmt.Fprintf(w, "%-22s: %d recorded, %d dropped\n", "Trace", r.Trace.TotalEvents, r.Trace.Dropped)
	}
}

func printInterval(w io.Writer, label string, e Estimate) {
	if !e.Valid {
		fmt.Fprintf(w, "%-22s: %.6f (interval undefined, %d observations)\n", label, e.Mean, e.Observations)
		return
	}
	fmt.Fprintf(w, "%-22s: %.6f ± %.6f\n", label, e.Mean, e.HalfWidth)
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
