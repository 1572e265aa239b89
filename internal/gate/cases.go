package gate

import (
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/pressure"
)

// Case is a named variation of the run configuration or of the captured
// samples. A nil Transform replays the capture unchanged.
type Case struct {
	Name      string
	Configure func(model.PipelineConfig) model.PipelineConfig
	Transform func([]model.RawInputSample) []model.RawInputSample
}

// Preset is a brush preset: a complete pipeline configuration that does not
// inherit from the run configuration.
type Preset struct {
	Name   string
	Config model.PipelineConfig
}

// Cases returns the case variants evaluated on every run, in reporting order.
func Cases() []Case {
	return []Case{
		{Name: "baseline", Configure: keep},
		{Name: "device_time_speed", Configure: func(c model.PipelineConfig) model.PipelineConfig {
			c.UseDeviceTimeForSpeed = true
			return c
		}},
		{Name: "pressure_disabled", Configure: func(c model.PipelineConfig) model.PipelineConfig {
			c.PressureEnabled = false
			return c
		}},
		{Name: "soft_pressure_curve", Configure: func(c model.PipelineConfig) model.PipelineConfig {
			c.GlobalPressureLUT = mustLUT(pressure.NewLUT([]pressure.Point{
				{In: 0, Out: 0},
				{In: 0.5, Out: 0.25},
				{In: 1, Out: 1},
			}))
			return c
		}},
		{Name: "dense_spacing", Configure: func(c model.PipelineConfig) model.PipelineConfig {
			c.SpacingPx = model.MinSpacingPx
			return c
		}},
		{Name: "coarse_spacing", Configure: func(c model.PipelineConfig) model.PipelineConfig {
			c.SpacingPx = 8
			c.MaxIntervalUs = 50000
			return c
		}},
		{Name: "unsmoothed_speed", Configure: func(c model.PipelineConfig) model.PipelineConfig {
			c.SpeedSmoothingSamples = 1
			return c
		}},
		{Name: "double_rate_replay", Configure: keep, Transform: scaleTime(0.5)},
	}
}

// Presets returns the brush presets evaluated on every run, in reporting order.
func Presets() []Preset {
	base := model.DefaultPipelineConfig()

	inkPen := base
	inkPen.GlobalPressureLUT = mustLUT(pressure.NewTableLUT([]float64{0, 0.15, 0.45, 0.8, 1}))
	inkPen.SpacingPx = 1

	pencil := base
	pencil.GlobalPressureLUT = mustLUT(pressure.NewTableLUT([]float64{0, 0.4, 0.65, 0.85, 1}))
	pencil.SpacingPx = 1
	pencil.SpeedSmoothingSamples = 2

	airbrush := base
	airbrush.SpacingPx = 4
	airbrush.MaxIntervalUs = 4000
	airbrush.SpeedSmoothingSamples = 6
	airbrush.MaxAllowedSpeedPxPerMs = 2

	marker := base
	marker.PressureEnabled = false
	marker.SpacingPx = 3

	return []Preset{
		{Name: "basic_round", Config: base},
		{Name: "ink_pen", Config: inkPen},
		{Name: "pencil", Config: pencil},
		{Name: "airbrush", Config: airbrush},
		{Name: "marker", Config: marker},
	}
}

func keep(c model.PipelineConfig) model.PipelineConfig {
	return c
}

// scaleTime returns a transform that multiplies both clocks by factor.
func scaleTime(factor float64) func([]model.RawInputSample) []model.RawInputSample {
	return func(samples []model.RawInputSample) []model.RawInputSample {
		out := make([]model.RawInputSample, len(samples))
		for i, s := range samples {
			s.DeviceTimeUs *= factor
			s.HostTimeUs *= factor
			out[i] = s
		}
		return out
	}
}

// mustLUT panics on curve construction errors. Only used with constant,
// known-good control points.
func mustLUT(l pressure.LUT, err error) pressure.LUT {
	if err != nil {
		panic(err)
	}
	return l
}
