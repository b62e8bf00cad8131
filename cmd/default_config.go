package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/queuesim/queuesim/sim/scenario"
)

// resolveDefaultsPath falls back to the parent directory so tests run from cmd/ find the repo file.
func resolveDefaultsPath(path string) string {
	if _, err := os.Stat(path); err == nil || filepath.IsAbs(path) {
		return path
	}
	parent := filepath.Join("..", path)
	if _, err := os.Stat(parent); err == nil {
		return parent
	}
	return path
}

// loadPresets parses defaults.yaml. Uses strict field checking.
func loadPresets(path string) *scenario.PresetFile {
	pf, err := scenario.LoadPresets(resolveDefaultsPath(path))
	if err != nil {
		logrus.Fatalf("Failed to load defaults file: %v", err)
	}
	return pf
}

// resolveScenario returns the named preset, or parses ref as a scenario
// file when no preset has that name.
func resolveScenario(ref, defaultsPath string) (*scenario.Scenario, error) {
	if _, statErr := os.Stat(ref); statErr != nil {
		pf, err := scenario.LoadPresets(resolveDefaultsPath(defaultsPath))
		if err != nil {
			return nil, err
		}
		s, ok := pf.Get(ref)
		if !ok {
			return nil, fmt.Errorf("unknown preset or scenario file %q; presets: %v", ref, pf.Names())
		}
		logrus.Infof("Using preset %q", ref)
		return s, nil
	}
	return scenario.Load(ref)
}
