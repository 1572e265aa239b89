package paintinfo

import (
	"github.com/verte-zerg/penpipe/internal/input"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/pressure"
	"github.com/verte-zerg/penpipe/internal/speed"
)

// Anomalies counts malformed input seen by a Builder. Anomalous samples are
// still built; counters survive stroke resets.
type Anomalies struct {
	UnresolvedSource   int
	NonFiniteField     int
	PressureClamped    int
	NonMonotonicTimeUs int
}

// Builder turns raw samples into PaintInfo records for one stroke.
type Builder struct {
	cfg      model.PipelineConfig
	smoother *speed.Smoother

	hasPrevTime bool
	prevTime    float64
	anomalies   Anomalies
}

// NewBuilder returns a Builder for the sanitized configuration.
func NewBuilder(cfg model.PipelineConfig) *Builder {
	cfg = cfg.Sanitized()
	return &Builder{
		cfg:      cfg,
		smoother: speed.New(speed.ConfigFrom(cfg)),
	}
}

// SetConfig replaces the configuration for subsequent samples.
func (b *Builder) SetConfig(cfg model.PipelineConfig) {
	b.cfg = cfg.Sanitized()
	b.smoother.SetConfig(speed.ConfigFrom(b.cfg))
}

// Config returns the sanitized configuration in use.
func (b *Builder) Config() model.PipelineConfig {
	return b.cfg
}

// Reset starts a new stroke.
func (b *Builder) Reset() {
	b.smoother.Reset()
	b.hasPrevTime = false
	b.prevTime = 0
}

// ClearAnomalies zeroes the anomaly counters.
func (b *Builder) ClearAnomalies() {
	b.anomalies = Anomalies{}
}

// Anomalies returns the counters accumulated since construction or the last
// ClearAnomalies.
func (b *Builder) Anomalies() Anomalies {
	return b.anomalies
}

// Build produces the PaintInfo for one raw sample.
func (b *Builder) Build(raw model.RawInputSample) model.PaintInfo {
	b.countAnomalies(raw)

	t := TimeBase(raw, b.cfg.UseDeviceTimeForSpeed)
	if b.hasPrevTime && t < b.prevTime {
		b.anomalies.NonMonotonicTimeUs++
	}
	b.hasPrevTime = true
	b.prevTime = t

	return model.PaintInfo{
		XPx:            input.ClampFinite(raw.XPx, 0),
		YPx:            input.ClampFinite(raw.YPx, 0),
		Pressure01:     Pressure(raw.Pressure01, b.cfg),
		DrawingSpeed01: input.Clamp01(b.smoother.Next(raw)),
		TimeUs:         t,
	}
}

// Pressure maps raw pressure through the configured curve, or returns full
// pressure when pressure is disabled.
func Pressure(raw float64, cfg model.PipelineConfig) float64 {
	if !cfg.PressureEnabled {
		return 1
	}
	return input.Clamp01(pressure.Sample(cfg.GlobalPressureLUT, input.Clamp01(raw)))
}

// TimeBase picks the sample time: device time when enabled and available,
// host time otherwise.
func TimeBase(raw model.RawInputSample, useDevice bool) float64 {
	device := input.ClampFinite(raw.DeviceTimeUs, 0)
	if useDevice && device > 0 {
		return device
	}
	return input.ClampFinite(raw.HostTimeUs, 0)
}

func (b *Builder) countAnomalies(raw model.RawInputSample) {
	if _, ok := input.NormalizeSource(raw.Source); !ok {
		b.anomalies.UnresolvedSource++
	}
	for _, v := range []float64{raw.XPx, raw.YPx, raw.Pressure01, raw.TiltXDeg, raw.TiltYDeg, raw.RotationDeg, raw.DeviceTimeUs, raw.HostTimeUs} {
		if !input.IsFinite(v) {
			b.anomalies.NonFiniteField++
		}
	}
	if input.IsFinite(raw.Pressure01) && (raw.Pressure01 < 0 || raw.Pressure01 > 1) {
		b.anomalies.PressureClamped++
	}
}
