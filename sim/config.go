package sim

import (
	"fmt"
	"math"
)

// Estimator standard-deviation denominators.
const (
	DenominatorObservations = "observations" // k·B − 1, h = z·s/√(k·B)
	DenominatorBatches      = "batches"      // k − 1,   h = z·s/√k
)

// Station trial statistics.
const (
	StatisticMoney           = "money"
	StatisticTimeEmpty       = "time_empty"
	StatisticDissatisfaction = "dissatisfaction"
)

var validStatistics = map[string]bool{
	StatisticMoney: true, StatisticTimeEmpty: true, StatisticDissatisfaction: true, "": true,
}

// EstimatorConfig groups batch-means parameters.
type EstimatorConfig struct {
	BatchSize     int     `yaml:"batch_size"`     // observations per batch (must be > 0)
	WarmupBatches int     `yaml:"warmup_batches"` // batches before the stop rule is checked
	Precision     float64 `yaml:"precision"`      // stop when 2h <= Precision
	Z             float64 `yaml:"z"`              // normal quantile for the interval
	Denominator   string  `yaml:"denominator,omitempty"`
	DiscardWarmup bool    `yaml:"discard_warmup,omitempty"` // exclude warm-up batches from the global mean
	MaxBatches    int     `yaml:"max_batches,omitempty"`    // 0 = unbounded
}

// DefaultEstimatorConfig returns the batch-means defaults for a long queue run.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		BatchSize:     500,
		WarmupBatches: 5,
		Precision:     0.01,
		Z:             1.96,
		Denominator:   DenominatorObservations,
	}
}

// TrialEstimatorConfig returns the estimator used across independent trials:
// one observation per batch and no warm-up.
func TrialEstimatorConfig(precision, z float64) EstimatorConfig {
	return EstimatorConfig{BatchSize: 1, Precision: precision, Z: z, Denominator: DenominatorObservations}
}

// Validate checks the estimator parameters.
func (c EstimatorConfig) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.WarmupBatches < 0 {
		return fmt.Errorf("warmup_batches must be non-negative, got %d", c.WarmupBatches)
	}
	if err := validateFinitePositive("precision", c.Precision); err != nil {
		return err
	}
	if err := validateFinitePositive("z", c.Z); err != nil {
		return err
	}
	switch c.Denominator {
	case "", DenominatorObservations, DenominatorBatches:
	default:
		return fmt.Errorf("unknown denominator %q; valid: observations, batches", c.Denominator)
	}
	if c.MaxBatches < 0 {
		return fmt.Errorf("max_batches must be non-negative, got %d", c.MaxBatches)
	}
	if c.MaxBatches > 0 && c.MaxBatches <= c.WarmupBatches {
		return fmt.Errorf("max_batches (%d) must exceed warmup_batches (%d)", c.MaxBatches, c.WarmupBatches)
	}
	return nil
}

// RunConfig groups run-wide parameters.
type RunConfig struct {
	Seed         int64  // master seed
	Trials       int    // independent trials (must be >= 1)
	TrialSeeding string // "shared" (default) or "independent"
}

// Validate checks the run parameters.
func (c RunConfig) Validate() error {
	if c.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Trials)
	}
	switch c.TrialSeeding {
	case "", TrialSeedingShared, TrialSeedingIndependent:
	default:
		return fmt.Errorf("unknown trial_seeding %q; valid: shared, independent", c.TrialSeeding)
	}
	return nil
}

// QueueConfig describes a single-server queue run.
type QueueConfig struct {
	Strategy  string          `yaml:"strategy"` // "tick" (default) or "event"
	Arrival   ClockSpec       `yaml:"arrival"`
	Service   ClockSpec       `yaml:"service"`
	Estimator EstimatorConfig `yaml:"estimator"`
}

// Clocks returns the clock specs named as the queue models expect them.
func (c QueueConfig) Clocks() []ClockSpec {
	arrival, service := c.Arrival, c.Service
	arrival.Name, service.Name = ClockArrival, ClockService
	return []ClockSpec{arrival, service}
}

// Validate checks the queue parameters.
func (c QueueConfig) Validate() error {
	switch c.Strategy {
	case "", QueueStrategyTick, QueueStrategyEvent:
	default:
		return fmt.Errorf("unknown queue strategy %q; valid: tick, event", c.Strategy)
	}
	for _, spec := range c.Clocks() {
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	if c.Arrival.Dist != DistPoisson && c.Arrival.Dist != DistExponential {
		return fmt.Errorf("arrival clock must be poisson or exponential, got %q", c.Arrival.Dist)
	}
	return c.Estimator.Validate()
}

// ClassSpec describes one demand class of a station.
type ClassSpec struct {
	Name      string  `yaml:"name"`
	Rate      float64 `yaml:"rate"`                 // demands per unit time
	Penalty   float64 `yaml:"penalty"`              // charged when demand meets an empty station
	RideFee   float64 `yaml:"ride_fee,omitempty"`   // charged per unit handed out
	AnnualFee float64 `yaml:"annual_fee,omitempty"` // prorated fee collected up front, per unit rate
}

// StationConfig describes a multi-class resource station run.
type StationConfig struct {
	Strategy        string          `yaml:"strategy"` // per-class (default), aggregate, bernoulli
	Horizon         float64         `yaml:"horizon"`
	InitialStock    int             `yaml:"initial_stock"`
	SupplyRate      float64         `yaml:"supply_rate"`
	Classes         []ClassSpec     `yaml:"classes"`
	Resolution      int             `yaml:"resolution,omitempty"` // bernoulli sub-steps per unit
	Backlog         bool            `yaml:"backlog,omitempty"`    // unserved demand waits instead of leaving
	Statistic       string          `yaml:"statistic,omitempty"`  // money, time_empty, dissatisfaction
	StopOnPrecision bool            `yaml:"stop_on_precision,omitempty"`
	Estimator       EstimatorConfig `yaml:"estimator"`
}

// ClassCount returns the number of event classes including supply.
func (c StationConfig) ClassCount() int {
	return len(c.Classes) + 1
}

// Rates returns per-class rates indexed by event class (supply first).
func (c StationConfig) Rates() []float64 {
	rates := make([]float64, 0, c.ClassCount())
	rates = append(rates, c.SupplyRate)
	for _, cl := range c.Classes {
		rates = append(rates, cl.Rate)
	}
	return rates
}

// TotalRate returns the superposed rate of every clock.
func (c StationConfig) TotalRate() float64 {
	total := 0.0
	for _, r := range c.Rates() {
		total += r
	}
	return total
}

// InitialMoney returns the prorated annual fees collected before the first event.
func (c StationConfig) InitialMoney() float64 {
	m := 0.0
	for _, cl := range c.Classes {
		m += cl.AnnualFee * cl.Rate
	}
	return m
}

// DissatisfactionCost converts time without stock into the (negative)
// penalty mass the demand classes would have paid over that time.
func (c StationConfig) DissatisfactionCost(timeEmpty float64) float64 {
	cost := 0.0
	for _, cl := range c.Classes {
		cost -= timeEmpty * cl.Rate * cl.Penalty
	}
	return cost
}

// Validate checks the station parameters.
func (c StationConfig) Validate() error {
	switch c.Strategy {
	case "", StationStrategyPerClass, StationStrategyAggregate, StationStrategyBernoulli:
	default:
		return fmt.Errorf("unknown station strategy %q; valid: per-class, aggregate, bernoulli", c.Strategy)
	}
	if err := validateFinitePositive("horizon", c.Horizon); err != nil {
		return err
	}
	if c.InitialStock < 0 {
		return fmt.Errorf("initial_stock must be non-negative, got %d", c.InitialStock)
	}
	if err := validateFinitePositive("supply_rate", c.SupplyRate); err != nil {
		return err
	}
	if len(c.Classes) == 0 {
		return fmt.Errorf("at least one demand class required")
	}
	for i, cl := range c.Classes {
		prefix := fmt.Sprintf("class[%d]", i)
		if err := validateFinitePositive(prefix+".rate", cl.Rate); err != nil {
			return err
		}
		fees := []struct {
			name string
			val  float64
		}{{"penalty", cl.Penalty}, {"ride_fee", cl.RideFee}, {"annual_fee", cl.AnnualFee}}
		for _, f := range fees {
			if math.IsNaN(f.val) || math.IsInf(f.val, 0) || f.val < 0 {
				return fmt.Errorf("%s.%s must be a finite non-negative number, got %f", prefix, f.name, f.val)
			}
		}
	}
	if c.Strategy == StationStrategyBernoulli {
		maxRate := 0.0
		for _, r := range c.Rates() {
			maxRate = math.Max(maxRate, r)
		}
		if float64(c.Resolution) < maxRate {
			return fmt.Errorf("resolution must be at least the largest class rate (%.2f), got %d", maxRate, c.Resolution)
		}
	}
	if !validStatistics[c.Statistic] {
		return fmt.Errorf("unknown statistic %q; valid: money, time_empty, dissatisfaction", c.Statistic)
	}
	return c.Estimator.Validate()
}

// EpidemicConfig describes a contact-process run.
type EpidemicConfig struct {
	Population      int             `yaml:"population"`
	ContactRate     float64         `yaml:"contact_rate"`   // contacts per unit time
	InfectionProb   float64         `yaml:"infection_prob"` // transmission probability per contact
	StopOnPrecision bool            `yaml:"stop_on_precision,omitempty"`
	Estimator       EstimatorConfig `yaml:"estimator"`
}

// Clocks returns the contact clock.
func (c EpidemicConfig) Clocks() []ClockSpec {
	return []ClockSpec{{Name: ClockContact, Dist: DistExponential, Rate: c.ContactRate}}
}

// Validate checks the epidemic parameters.
func (c EpidemicConfig) Validate() error {
	if c.Population < 2 {
		return fmt.Errorf("population must be at least 2, got %d", c.Population)
	}
	if err := validateFinitePositive("contact_rate", c.ContactRate); err != nil {
		return err
	}
	if err := validateFinitePositive("infection_prob", c.InfectionProb); err != nil {
		return err
	}
	if c.InfectionProb > 1 {
		return fmt.Errorf("infection_prob must be at most 1, got %f", c.InfectionProb)
	}
	return c.Estimator.Validate()
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
