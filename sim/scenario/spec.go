// Package scenario loads run descriptions from YAML and dispatches them to
// the matching sim runner.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/queuesim/queuesim/sim"
)

var validModels = map[string]bool{
	sim.ModelQueue: true, sim.ModelStation: true, sim.ModelEpidemic: true,
}

// Scenario is one complete run description. Exactly the section matching
// Model must be present.
type Scenario struct {
	Description  string              `yaml:"description,omitempty"`
	Model        string              `yaml:"model"`
	Seed         int64               `yaml:"seed"`
	Trials       int                 `yaml:"trials"`
	TrialSeeding string              `yaml:"trial_seeding,omitempty"`
	Queue        *sim.QueueConfig    `yaml:"queue,omitempty"`
	Station      *sim.StationConfig  `yaml:"station,omitempty"`
	Epidemic     *sim.EpidemicConfig `yaml:"epidemic,omitempty"`
}

// PresetFile is the structure of defaults.yaml.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type PresetFile struct {
	Version string              `yaml:"version"`
	Presets map[string]Scenario `yaml:"presets"`
}

func decodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}

// Parse decodes a scenario with strict field checking.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := decodeStrict(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &s, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// ParsePresets decodes a preset file with strict field checking.
func ParsePresets(data []byte) (*PresetFile, error) {
	var pf PresetFile
	if err := decodeStrict(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing presets: %w", err)
	}
	return &pf, nil
}

// LoadPresets reads and parses a preset file.
func LoadPresets(path string) (*PresetFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets: %w", err)
	}
	return ParsePresets(data)
}

// Names returns the preset names in sorted order.
func (pf *PresetFile) Names() []string {
	names := make([]string, 0, len(pf.Presets))
	for name := range pf.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a copy of the named preset.
func (pf *PresetFile) Get(name string) (*Scenario, bool) {
	s, ok := pf.Presets[name]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Clone returns a deep copy, so overrides never leak into a shared preset.
func (s *Scenario) Clone() *Scenario {
	c := *s
	if s.Queue != nil {
		q := *s.Queue
		c.Queue = &q
	}
	if s.Station != nil {
		st := *s.Station
		st.Classes = append([]sim.ClassSpec(nil), s.Station.Classes...)
		c.Station = &st
	}
	if s.Epidemic != nil {
		e := *s.Epidemic
		c.Epidemic = &e
	}
	return &c
}

// Validate checks the scenario shape and the selected model's configuration.
func (s *Scenario) Validate() error {
	if !validModels[s.Model] {
		return fmt.Errorf("unknown model %q; valid: queue, station, epidemic", s.Model)
	}
	if err := s.RunConfig().Validate(); err != nil {
		return err
	}
	sections := map[string]bool{
		sim.ModelQueue:    s.Queue != nil,
		sim.ModelStation:  s.Station != nil,
		sim.ModelEpidemic: s.Epidemic != nil,
	}
	for name, present := range sections {
		if name == s.Model && !present {
			return fmt.Errorf("model %q requires a %s section", s.Model, name)
		}
		if name != s.Model && present {
			return fmt.Errorf("model %q does not use a %s section", s.Model, name)
		}
	}
	switch s.Model {
	case sim.ModelQueue:
		return s.Queue.Validate()
	case sim.ModelStation:
		return s.Station.Validate()
	default:
		return s.Epidemic.Validate()
	}
}

// RunConfig returns the run-wide settings.
func (s *Scenario) RunConfig() sim.RunConfig {
	return sim.RunConfig{Seed: s.Seed, Trials: s.Trials, TrialSeeding: s.TrialSeeding}
}

// Estimator returns the selected model's estimator settings for in-place
// overrides, or nil when the model section is missing.
func (s *Scenario) Estimator() *sim.EstimatorConfig {
	switch {
	case s.Model == sim.ModelQueue && s.Queue != nil:
		return &s.Queue.Estimator
	case s.Model == sim.ModelStation && s.Station != nil:
		return &s.Station.Estimator
	case s.Model == sim.ModelEpidemic && s.Epidemic != nil:
		return &s.Epidemic.Estimator
	}
	return nil
}

// SetStrategy overrides the strategy of a queue or station scenario.
func (s *Scenario) SetStrategy(strategy string) error {
	switch {
	case s.Model == sim.ModelQueue && s.Queue != nil:
		s.Queue.Strategy = strategy
	case s.Model == sim.ModelStation && s.Station != nil:
		s.Station.Strategy = strategy
	default:
		return fmt.Errorf("model %q has no strategy to override", s.Model)
	}
	return nil
}

// SetHorizon overrides the station horizon.
func (s *Scenario) SetHorizon(horizon float64) error {
	if s.Model != sim.ModelStation || s.Station == nil {
		return fmt.Errorf("model %q has no horizon; the queue stops on precision and the epidemic on full infection", s.Model)
	}
	s.Station.Horizon = horizon
	return nil
}

// Run validates the scenario and dispatches it to the matching runner.
// opts.Run is replaced by the scenario's own run settings.
func (s *Scenario) Run(opts sim.RunOptions) (*sim.Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	opts.Run = s.RunConfig()
	switch s.Model {
	case sim.ModelQueue:
		return sim.RunQueue(*s.Queue, opts)
	case sim.ModelStation:
		return sim.RunStation(*s.Station, opts)
	default:
		return sim.RunEpidemic(*s.Epidemic, opts)
	}
}
