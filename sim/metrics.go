package sim

import "time"

// Metric names emitted by the runners.
const (
	MetricTrialsTotal   = "queuesim_trials_total"
	MetricTrialDuration = "queuesim_trial_duration_seconds"
	MetricTrialValue    = "queuesim_trial_value"
	MetricHalfWidth     = "queuesim_half_width"
	MetricBatches       = "queuesim_batches"
	MetricEvents        = "queuesim_events"
)

// MetricsCollector receives run-level measurements. Implementations must
// not influence the simulation; only wall-clock durations and finished
// statistics are reported.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordDuration(string, time.Duration, map[string]string) {}
func (NoopMetrics) IncrementCounter(string, map[string]string) {}
func (NoopMetrics) RecordValue(string, float64, map[string]string) {}

var _ MetricsCollector = NoopMetrics{}
