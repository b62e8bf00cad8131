// Package telemetry exports run metrics through the OpenTelemetry metrics API.
package telemetry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/queuesim/queuesim/sim"
)

// InstrumentationName names the meter the run recorder creates.
const InstrumentationName = "github.com/queuesim/queuesim/sim"

// Collector implements sim.MetricsCollector over an OpenTelemetry meter:
//   - RecordDuration -> Float64Histogram (seconds)
//   - IncrementCounter -> Int64Counter
//   - RecordValue -> Float64Gauge
//
// Instruments are created on first use and cached by name.
type Collector struct {
	meter      metric.Meter
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
}

// NewCollector creates a collector that records through meter.
func NewCollector(meter metric.Meter) *Collector {
	return &Collector{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// RecordDuration implements sim.MetricsCollector.
func (c *Collector) RecordDuration(name string, d time.Duration, labels map[string]string) {
	h := c.histogram(name)
	if h == nil {
		return
	}
	h.Record(context.Background(), d.Seconds(), metric.WithAttributes(attrs(labels)...))
}

// IncrementCounter implements sim.MetricsCollector.
func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	ctr := c.counter(name)
	if ctr == nil {
		return
	}
	ctr.Add(context.Background(), 1, metric.WithAttributes(attrs(labels)...))
}

// RecordValue implements sim.MetricsCollector.
func (c *Collector) RecordValue(name string, value float64, labels map[string]string) {
	g := c.gauge(name)
	if g == nil {
		return
	}
	g.Record(context.Background(), value, metric.WithAttributes(attrs(labels)...))
}

func attrs(labels map[string]string) []attribute.KeyValue {
	kv := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		kv = append(kv, attribute.String(k, v))
	}
	return kv
}

func (c *Collector) histogram(name string) metric.Float64Histogram {
	if h, ok := c.histograms[name]; ok {
		return h
	}
	h, err := c.meter.Float64Histogram(name,
		metric.WithDescription("simulation wall-clock duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logrus.Warnf("telemetry: creating histogram %q: %v", name, err)
		return nil
	}
	c.histograms[name] = h
	return h
}

func (c *Collector) counter(name string) metric.Int64Counter {
	if ctr, ok := c.counters[name]; ok {
		return ctr
	}
	ctr, err := c.meter.Int64Counter(name, metric.WithDescription("simulation counter"))
	if err != nil {
		logrus.Warnf("telemetry: creating counter %q: %v", name, err)
		return nil
	}
	c.counters[name] = ctr
	return ctr
}

func (c *Collector) gauge(name string) metric.Float64Gauge {
	if g, ok := c.gauges[name]; ok {
		return g
	}
	g, err := c.meter.Float64Gauge(name, metric.WithDescription("simulation statistic"))
	if err != nil {
		logrus.Warnf("telemetry: creating gauge %q: %v", name, err)
		return nil
	}
	c.gauges[name] = g
	return g
}

var _ sim.MetricsCollector = (*Collector)(nil)
