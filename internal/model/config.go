package model

import (
	"math"

	"github.com/verte-zerg/penpipe/internal/pressure"
)

// Safe bounds applied by Sanitized.
const (
	MinSpacingPx             = 0.5
	MinMaxIntervalUs         = 1000.0
	MinMaxSpeedPxPerMs       = 0.01
	MinSpeedSmoothingSample  = 1
	MaxSpeedSmoothingSamples = 1024
)

// PipelineConfig is the configuration surface consumed by the pipeline.
type PipelineConfig struct {
	PressureEnabled        bool
	GlobalPressureLUT      pressure.LUT
	UseDeviceTimeForSpeed  bool
	MaxAllowedSpeedPxPerMs float64
	SpeedSmoothingSamples  int
	SpacingPx              float64
	MaxIntervalUs          float64
}

// ConfigPatch carries a partial configuration update. Nil fields are left unchanged.
type ConfigPatch struct {
	PressureEnabled        *bool
	GlobalPressureLUT      *pressure.LUT
	UseDeviceTimeForSpeed  *bool
	MaxAllowedSpeedPxPerMs *float64
	SpeedSmoothingSamples  *int
	SpacingPx              *float64
	MaxIntervalUs          *float64
}

// DefaultPipelineConfig returns the stock tool configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		PressureEnabled:        true,
		GlobalPressureLUT:      pressure.Identity(),
		UseDeviceTimeForSpeed:  false,
		MaxAllowedSpeedPxPerMs: 4.0,
		SpeedSmoothingSamples:  3,
		SpacingPx:              2.0,
		MaxIntervalUs:          8000,
	}
}

// Sanitized returns a copy with numeric fields raised to their safe minimums
// and the smoothing window capped. Non-finite values fall back to the defaults.
func (c PipelineConfig) Sanitized() PipelineConfig {
	def := DefaultPipelineConfig()
	c.MaxAllowedSpeedPxPerMs = atLeast(c.MaxAllowedSpeedPxPerMs, MinMaxSpeedPxPerMs, def.MaxAllowedSpeedPxPerMs)
	c.SpacingPx = atLeast(c.SpacingPx, MinSpacingPx, def.SpacingPx)
	c.MaxIntervalUs = atLeast(c.MaxIntervalUs, MinMaxIntervalUs, def.MaxIntervalUs)
	if c.SpeedSmoothingSamples < MinSpeedSmoothingSample {
		c.SpeedSmoothingSamples = MinSpeedSmoothingSample
	}
	if c.SpeedSmoothingSamples > MaxSpeedSmoothingSamples {
		c.SpeedSmoothingSamples = MaxSpeedSmoothingSamples
	}
	return c
}

// Apply returns a copy of c with the non-nil patch fields applied.
func (c PipelineConfig) Apply(p ConfigPatch) PipelineConfig {
	if p.PressureEnabled != nil {
		c.PressureEnabled = *p.PressureEnabled
	}
	if p.GlobalPressureLUT != nil {
		c.GlobalPressureLUT = *p.GlobalPressureLUT
	}
	if p.UseDeviceTimeForSpeed != nil {
		c.UseDeviceTimeForSpeed = *p.UseDeviceTimeForSpeed
	}
	if p.MaxAllowedSpeedPxPerMs != nil {
		c.MaxAllowedSpeedPxPerMs = *p.MaxAllowedSpeedPxPerMs
	}
	if p.SpeedSmoothingSamples != nil {
		c.SpeedSmoothingSamples = *p.SpeedSmoothingSamples
	}
	if p.SpacingPx != nil {
		c.SpacingPx = *p.SpacingPx
	}
	if p.MaxIntervalUs != nil {
		c.MaxIntervalUs = *p.MaxIntervalUs
	}
	return c
}

func atLeast(v, minimum, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	if v < minimum {
		return minimum
	}
	return v
}
