package telemetry

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Point is one collected data point, flattened for printing.
type Point struct {
	Name       string
	Kind       string // histogram, counter, gauge
	Attributes string
	Count      uint64  // histogram observations
	Value      float64 // histogram sum, counter total or gauge value
}

// Recorder is a Collector backed by an in-process SDK meter provider whose
// data points can be read back at the end of a run.
type Recorder struct {
	*Collector
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewRecorder creates a Recorder with its own manual reader.
func NewRecorder() *Recorder {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &Recorder{
		Collector: NewCollector(provider.Meter(InstrumentationName)),
		reader:    reader,
		provider:  provider,
	}
}

// Collect returns every data point recorded so far, sorted by name then attributes.
func (r *Recorder) Collect(ctx context.Context) ([]Point, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}
	var points []Point
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: m.Name, Kind: "histogram", Attributes: encode(dp.Attributes), Count: dp.Count, Value: dp.Sum})
				}
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: m.Name, Kind: "counter", Attributes: encode(dp.Attributes), Value: float64(dp.Value)})
				}
			case metricdata.Gauge[float64]:
				for _, dp := range data.DataPoints {
					points = append(points, Point{Name: m.Name, Kind: "gauge", Attributes: encode(dp.Attributes), Value: dp.Value})
				}
			}
		}
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Name != points[j].Name {
			return points[i].Name < points[j].Name
		}
		return points[i].Attributes < points[j].Attributes
	})
	return points, nil
}

// Shutdown releases the meter provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

func encode(set attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}

// WritePoints prints one line per data point.
func WritePoints(w io.Writer, points []Point) {
	fmt.Fprintln(w, "=== Run Metrics ===")
	for _, p := range points {
		if p.Kind == "histogram" {
			fmt.Fprintf(w, "%s{%s} count=%d sum=%.6f\n", p.Name, p.Attributes, p.Count, p.Value)
			continue
		}
		fmt.Fprintf(w, "%s{%s} %s=%.6f\n", p.Name, p.Attributes, p.Kind, p.Value)
	}
}
