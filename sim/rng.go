package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// NewSource returns the single random source for a run seeded by key.
// Every clock in a ClockBank draws from the returned generator.
func NewSource(key SimulationKey) *rand.Rand {
	return newRandFromSeed(int64(key))
}

func newRandFromSeed(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^pcgStream))
}

// pcgStream is the fixed PCG increment seed; only the state seed varies by key.
const pcgStream = 0x9e3779b97f4a7c15

// === Trial seeding ===

const (
	// TrialSeedingShared keeps one source running across all trials of a run.
	// Trial-to-trial independence is statistical, not structural.
	TrialSeedingShared = "shared"

	// TrialSeedingIndependent gives each trial its own derived source.
	TrialSeedingIndependent = "independent"
)

// SubsystemTrial returns the subsystem name for trial N.
func SubsystemTrial(n int) string {
	return fmt.Sprintf("trial_%d", n)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated sources per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded source for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := newRandFromSeed(int64(p.key) ^ fnv1a64(name))
	p.subsystems[name] = rng
	return rng
}

// ForTrial is shorthand for ForSubsystem(SubsystemTrial(n)).
func (p *PartitionedRNG) ForTrial(n int) *rand.Rand {
	return p.ForSubsystem(SubsystemTrial(n))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// TrialSources hands out the source each trial should draw from.
type TrialSources struct {
	mode   string
	shared *rand.Rand
	parts  *PartitionedRNG
}

// NewTrialSources builds the per-trial source policy for a run.
func NewTrialSources(key SimulationKey, mode string) *TrialSources {
	ts := &TrialSources{mode: mode}
	if mode == TrialSeedingIndependent {
		ts.parts = NewPartitionedRNG(key)
	} else {
		ts.shared = NewSource(key)
	}
	return ts
}

// ForTrial returns the source for trial n.
func (ts *TrialSources) ForTrial(n int) *rand.Rand {
	if ts.parts != nil {
		return ts.parts.ForTrial(n)
	}
	return ts.shared
}
