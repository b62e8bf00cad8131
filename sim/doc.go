// Package sim provides the discrete-event simulation engine for queueing
// and resource-station models.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - clock.go: the clock bank, the single seeded source every draw comes from
//   - eventqueue.go: time-ordered pending events (ties resolve in insertion order)
//   - loop.go: the Scheduler/Handler split and Drive, the one event loop
//   - batchmeans.go: the batch-means estimator and its stop rule
//
// # Models
//
//   - queue.go: single-server queue, tick-based (residual clock) and event-ordered
//   - station.go: multi-class supply/demand station with three scheduling strategies
//   - epidemic.go: closed-population contact process
//
// Each model is a Handler fed by a Scheduler; the runners in runner.go loop
// over trials, feed trial values to a cross-trial BatchMeans and build a Report.
//
// # Sub-packages
//   - sim/scenario/: YAML scenario and preset loading
//   - sim/telemetry/: OpenTelemetry adapter for MetricsCollector
//   - sim/trace/: per-event trace recording
package sim
