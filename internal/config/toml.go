// Package config provides configuration helpers and file parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/pressure"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Pipeline PipelineSection `toml:"pipeline"`
	Gate     GateSection     `toml:"gate"`
}

// PipelineSection maps pipeline settings. Nil fields were not set in the file.
type PipelineSection struct {
	Pressure      *bool        `toml:"pressure"`
	PressureCurve [][2]float64 `toml:"pressure-curve"`
	DeviceTime    *bool        `toml:"device-time"`
	MaxSpeed      *float64     `toml:"max-speed"`
	Smoothing     *int         `toml:"smoothing"`
	Spacing       *float64     `toml:"spacing"`
	MaxInterval   *float64     `toml:"max-interval"`
}

// GateSection maps gate-run settings.
type GateSection struct {
	Thresholds  *string `toml:"thresholds"`
	ArtifactDir *string `toml:"artifact-dir"`
	Baseline    *string `toml:"baseline"`
	Device      *string `toml:"device"`
	Jobs        *int    `toml:"jobs"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Patch converts the pipeline section into a configuration patch.
func (s PipelineSection) Patch() (model.ConfigPatch, error) {
	patch := model.ConfigPatch{
		PressureEnabled:        s.Pressure,
		UseDeviceTimeForSpeed:  s.DeviceTime,
		MaxAllowedSpeedPxPerMs: s.MaxSpeed,
		SpeedSmoothingSamples:  s.Smoothing,
		SpacingPx:              s.Spacing,
		MaxIntervalUs:          s.MaxInterval,
	}
	if len(s.PressureCurve) > 0 {
		points := make([]pressure.Point, len(s.PressureCurve))
		for i, pair := range s.PressureCurve {
			points[i] = pressure.Point{In: pair[0], Out: pair[1]}
		}
		lut, err := pressure.NewLUT(points)
		if err != nil {
			return model.ConfigPatch{}, fmt.Errorf("failed to parse pressure-curve: %w", err)
		}
		patch.GlobalPressureLUT = &lut
	}
	return patch, nil
}

// Template is the commented config written by `penpipe config`.
const Template = `# penpipe configuration

[pipeline]
# pressure = true
# pressure-curve = [[0.0, 0.0], [0.5, 0.4], [1.0, 1.0]]
# device-time = false
# max-speed = 4.0      # px/ms mapped to drawing speed 1.0
# smoothing = 3        # speed smoothing window, samples
# spacing = 2.0        # px between emitted points
# max-interval = 8000  # us between emitted points

[gate]
# thresholds = "~/.config/penpipe/thresholds.yaml"
# artifact-dir = "~/.local/share/penpipe/artifacts"
# baseline = "baseline-v1"
# device = "wacom-intuos"
# jobs = 4
`
