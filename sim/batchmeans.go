package sim

import (
	"math"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Estimate is a read-only snapshot of a batch-means estimator.
type Estimate struct {
	Batches      int     `json:"batches"`      // completed batches, warm-up included
	Observations int     `json:"observations"` // observations behind Mean
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	HalfWidth    float64 `json:"half_width"`
	// Valid is false until the denominator n-1 is positive.
	Valid     bool `json:"valid"`
	Converged bool `json:"converged"` // 2·HalfWidth <= precision after warm-up
}

// BatchMeans groups a stream of observations into fixed-size batches and
// tracks a confidence interval over the batch means.
type BatchMeans struct {
	cfg       EstimatorConfig
	means     []float64
	batchSum  float64
	batchN    int
	converged bool
	capped    bool
}

// NewBatchMeans creates an estimator. cfg must have passed Validate.
func NewBatchMeans(cfg EstimatorConfig) *BatchMeans {
	if cfg.Denominator == "" {
		cfg.Denominator = DenominatorObservations
	}
	return &BatchMeans{cfg: cfg}
}

// Config returns the estimator's parameters.
func (b *BatchMeans) Config() EstimatorConfig {
	return b.cfg
}

// Observe adds one observation and reports whether the run should stop.
// Once reported, the stop is latched; later observations still count.
func (b *BatchMeans) Observe(x float64) bool {
	b.batchSum += x
	b.batchN++
	if b.batchN < b.cfg.BatchSize {
		return b.Done()
	}
	b.means = append(b.means, b.batchSum/float64(b.batchN))
	b.batchSum, b.batchN = 0, 0

	k := len(b.means)
	est := b.Estimate()
	logrus.Debugf("batch %d: mean=%.6f global=%.6f h=%.6f", k, b.means[k-1], est.Mean, est.HalfWidth)

	if b.Done() {
		return true
	}
	// the stop rule is only evaluated once every warm-up batch is behind us
	if k > b.cfg.WarmupBatches && est.Valid && 2*est.HalfWidth <= b.cfg.Precision {
		b.converged = true
		return true
	}
	if b.cfg.MaxBatches > 0 && k >= b.cfg.MaxBatches {
		b.capped = true
		logrus.Warnf("estimator stopped at max_batches=%d without reaching precision %.4g (2h=%.4g)",
			b.cfg.MaxBatches, b.cfg.Precision, 2*est.HalfWidth)
		return true
	}
	return false
}

// Done reports whether the estimator converged or hit its batch cap.
func (b *BatchMeans) Done() bool {
	return b.converged || b.capped
}

// BatchMeans returns a copy of the completed batch means.
func (b *BatchMeans) BatchMeans() []float64 {
	return slices.Clone(b.means)
}

// Estimate returns the current interval. Valid needs at least two
// observations behind the mean, or two batch means with the batches
// denominator; until then StdDev and HalfWidth are zero.
func (b *BatchMeans) Estimate() Estimate {
	est := Estimate{Batches: len(b.means), Converged: b.converged}
	used := b.means
	if b.cfg.DiscardWarmup {
		if len(used) <= b.cfg.WarmupBatches {
			return est
		}
		used = used[b.cfg.WarmupBatches:]
	}
	if len(used) == 0 {
		return est
	}

	k := float64(len(used))
	est.Observations = len(used) * b.cfg.BatchSize
	est.Mean = stat.Mean(used, nil)

	n := float64(est.Observations)
	if b.cfg.Denominator == DenominatorBatches {
		n = k
	}
	// n-1 divides the squared deviations
	if n < 2 {
		return est
	}

	dev := slices.Clone(used)
	floats.AddConst(-est.Mean, dev)
	est.StdDev = math.Sqrt(floats.Dot(dev, dev) / (n - 1))
	est.HalfWidth = b.cfg.Z * est.StdDev / math.Sqrt(n)
	est.Valid = true
	return est
}

// Reset clears all batches so the estimator can serve another trial.
func (b *BatchMeans) Reset() {
	b.means = b.means[:0]
	b.batchSum, b.batchN = 0, 0
	b.converged, b.capped = false, false
}
