// Package testutil provides shared test infrastructure for the simulator:
// a scripted variate source and float assertion helpers.
package testutil

import (
	"fmt"
	"math"
	"testing"
)

// ScriptedVariates replays fixed draws. Every script repeats its last value
// once exhausted; drawing from an empty script panics so a test cannot
// silently consume draws it never planned for.
//
// It satisfies sim.Variates without importing sim.
type ScriptedVariates struct {
	Counts     map[string][]int
	Intervals  map[string][]float64
	Uniforms   []float64
	Categories []int
	Indices    []int
	Bernoullis []bool

	pos   map[string]int
	Calls int
}

func next[T any](s *ScriptedVariates, key string, script []T) T {
	if len(script) == 0 {
		panic(fmt.Sprintf("scripted variates: no script for %s", key))
	}
	if s.pos == nil {
		s.pos = make(map[string]int)
	}
	s.Calls++
	i := s.pos[key]
	if i >= len(script) {
		return script[len(script)-1]
	}
	s.pos[key] = i + 1
	return script[i]
}

// DrawCount returns the next scripted count for clock.
func (s *ScriptedVariates) DrawCount(clock string) int {
	return next(s, "count:"+clock, s.Counts[clock])
}

// DrawInterval returns the next scripted interval for clock.
func (s *ScriptedVariates) DrawInterval(clock string) float64 {
	return next(s, "interval:"+clock, s.Intervals[clock])
}

// DrawUniform returns the next scripted uniform.
func (s *ScriptedVariates) DrawUniform() float64 {
	return next(s, "uniform", s.Uniforms)
}

// DrawCategory returns the next scripted category; weights are ignored.
func (s *ScriptedVariates) DrawCategory(weights []float64) int {
	return next(s, "category", s.Categories)
}

// DrawIndex returns the next scripted index, reduced modulo n.
func (s *ScriptedVariates) DrawIndex(n int) int {
	return next(s, "index", s.Indices) % n
}

// DrawBernoulli returns the next scripted outcome; p is ignored.
func (s *ScriptedVariates) DrawBernoulli(p float64) bool {
	return next(s, "bernoulli", s.Bernoullis)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
