package sim

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// Clock distribution names accepted by ClockSpec.Dist.
const (
	DistPoisson     = "poisson"
	DistExponential = "exponential"
	DistGamma       = "gamma"
	DistConstant    = "constant"
)

var validDists = map[string]bool{
	DistPoisson: true, DistExponential: true, DistGamma: true, DistConstant: true,
}

// ClockSpec describes one named stochastic clock.
//
// Poisson and exponential clocks share Rate: counts per unit interval are
// Poisson(Rate) and gaps between events are Exponential(Rate). Gamma clocks
// use Shape (k) and Scale (θ). Constant clocks always return Value.
type ClockSpec struct {
	Name  string  `yaml:"name"`
	Dist  string  `yaml:"dist"`
	Rate  float64 `yaml:"rate,omitempty"`
	Shape float64 `yaml:"shape,omitempty"`
	Scale float64 `yaml:"scale,omitempty"`
	Value float64 `yaml:"value,omitempty"`
}

// Validate reports the first parameter that would make the clock degenerate.
func (c ClockSpec) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("clock name must not be empty")
	}
	if !validDists[c.Dist] {
		return fmt.Errorf("clock %q: unknown dist %q; valid: poisson, exponential, gamma, constant", c.Name, c.Dist)
	}
	switch c.Dist {
	case DistPoisson, DistExponential:
		if err := validateFinitePositive(c.Name+".rate", c.Rate); err != nil {
			return fmt.Errorf("clock %w", err)
		}
	case DistGamma:
		if err := validateFinitePositive(c.Name+".shape", c.Shape); err != nil {
			return fmt.Errorf("clock %w", err)
		}
		if err := validateFinitePositive(c.Name+".scale", c.Scale); err != nil {
			return fmt.Errorf("clock %w", err)
		}
	case DistConstant:
		if err := validateFinitePositive(c.Name+".value", c.Value); err != nil {
			return fmt.Errorf("clock %w", err)
		}
	}
	return nil
}

// Mean returns the expected interval length of the clock.
func (c ClockSpec) Mean() float64 {
	switch c.Dist {
	case DistGamma:
		return c.Shape * c.Scale
	case DistConstant:
		return c.Value
	default:
		return 1 / c.Rate
	}
}

// SecondMoment returns E[X²] of the interval distribution.
func (c ClockSpec) SecondMoment() float64 {
	switch c.Dist {
	case DistGamma:
		return c.Shape * (c.Shape + 1) * c.Scale * c.Scale
	case DistConstant:
		return c.Value * c.Value
	default:
		return 2 / (c.Rate * c.Rate)
	}
}

// Variates is the draw contract the simulation loops consume.
// ClockBank is the production implementation; tests substitute scripted fakes.
type Variates interface {
	// DrawCount returns a Poisson count of events for one unit interval.
	DrawCount(clock string) int
	// DrawInterval returns the time until the clock's next event.
	DrawInterval(clock string) float64
	// DrawUniform returns a value in [0,1).
	DrawUniform() float64
	// DrawCategory returns i with probability weights[i]/Σweights.
	DrawCategory(weights []float64) int
	// DrawIndex returns a uniform integer in [0,n).
	DrawIndex(n int) int
	// DrawBernoulli returns true with probability p.
	DrawBernoulli(p float64) bool
}

type clock struct {
	spec     ClockSpec
	count    distuv.Poisson
	interval func() float64
}

// ClockBank holds named clocks that all draw from one source.
// Draws are strictly sequential; a ClockBank must not be shared across goroutines.
type ClockBank struct {
	src     *rand.Rand
	clocks  map[string]*clock
	uniform distuv.Uniform
	draws   int64

	// sampler for the last weight vector passed to DrawCategory
	catWeights []float64
	cat        distuv.Categorical
}

// NewClockBank registers the given clocks over src.
func NewClockBank(src *rand.Rand, specs ...ClockSpec) (*ClockBank, error) {
	b := &ClockBank{
		src:     src,
		clocks:  make(map[string]*clock, len(specs)),
		uniform: distuv.Uniform{Min: 0, Max: 1, Src: src},
	}
	for _, s := range specs {
		if err := b.Register(s); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Register adds a clock. Re-registering a name is an error.
func (b *ClockBank) Register(spec ClockSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if _, dup := b.clocks[spec.Name]; dup {
		return fmt.Errorf("clock %q registered twice", spec.Name)
	}
	c := &clock{spec: spec}
	switch spec.Dist {
	case DistPoisson, DistExponential:
		c.count = distuv.Poisson{Lambda: spec.Rate, Src: b.src}
		exp := distuv.Exponential{Rate: spec.Rate, Src: b.src}
		c.interval = exp.Rand
	case DistGamma:
		// gonum parameterises Gamma by rate; θ is a scale.
		g := distuv.Gamma{Alpha: spec.Shape, Beta: 1 / spec.Scale, Src: b.src}
		c.count = distuv.Poisson{Lambda: 1 / spec.Mean(), Src: b.src}
		c.interval = g.Rand
	case DistConstant:
		c.count = distuv.Poisson{Lambda: 1 / spec.Value, Src: b.src}
		v := spec.Value
		c.interval = func() float64 { return v }
	}
	b.clocks[spec.Name] = c
	logrus.Debugf("registered clock %q (%s, mean interval %.4f)", spec.Name, spec.Dist, spec.Mean())
	return nil
}

// Spec returns the registered spec for name.
func (b *ClockBank) Spec(name string) (ClockSpec, bool) {
	c, ok := b.clocks[name]
	if !ok {
		return ClockSpec{}, false
	}
	return c.spec, true
}

// Draws returns the number of variates produced so far.
func (b *ClockBank) Draws() int64 {
	return b.draws
}

func (b *ClockBank) lookup(name string) *clock {
	c, ok := b.clocks[name]
	if !ok {
		panic(fmt.Sprintf("clock bank: unknown clock %q", name))
	}
	return c
}

// DrawCount implements Variates.
func (b *ClockBank) DrawCount(name string) int {
	b.draws++
	return int(b.lookup(name).count.Rand())
}

// DrawInterval implements Variates.
func (b *ClockBank) DrawInterval(name string) float64 {
	b.draws++
	return b.lookup(name).interval()
}

// DrawUniform implements Variates.
func (b *ClockBank) DrawUniform() float64 {
	b.draws++
	return b.uniform.Rand()
}

// DrawCategory implements Variates.
func (b *ClockBank) DrawCategory(weights []float64) int {
	b.draws++
	if b.catWeights == nil || !slices.Equal(weights, b.catWeights) {
		b.cat = distuv.NewCategorical(weights, b.src)
		b.catWeights = slices.Clone(weights)
	}
	return int(b.cat.Rand())
}

// DrawIndex implements Variates.
func (b *ClockBank) DrawIndex(n int) int {
	b.draws++
	return b.src.IntN(n)
}

// DrawBernoulli implements Variates.
func (b *ClockBank) DrawBernoulli(p float64) bool {
	b.draws++
	return distuv.Bernoulli{P: p, Src: b.src}.Rand() == 1
}
