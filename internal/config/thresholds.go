package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/verte-zerg/penpipe/internal/gate"
)

// LoadThresholds reads a versioned thresholds file. Keys missing from the
// file keep their default values. An empty path returns the defaults.
func LoadThresholds(path string) (gate.Thresholds, error) {
	th := gate.DefaultThresholds()
	if path == "" {
		return th, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return gate.Thresholds{}, fmt.Errorf("failed to read thresholds: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &th); err != nil {
		return gate.Thresholds{}, fmt.Errorf("failed to decode thresholds: %w", err)
	}
	if th.Version == "" {
		return gate.Thresholds{}, fmt.Errorf("thresholds file %s has no version", path)
	}
	if th.MinFastWindows < 0 || th.FinalTolerance < 0 {
		return gate.Thresholds{}, fmt.Errorf("thresholds file %s has negative limits", path)
	}
	return th, nil
}

// WriteThresholds stores th as YAML at path.
func WriteThresholds(path string, th gate.Thresholds) error {
	data, err := yaml.Marshal(th)
	if err != nil {
		return fmt.Errorf("failed to encode thresholds: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write thresholds: %w", err)
	}
	return nil
}
