// Package speed computes the smoothed, normalized drawing speed of a stroke.
package speed

import (
	"math"

	"github.com/verte-zerg/penpipe/internal/input"
	"github.com/verte-zerg/penpipe/internal/model"
)

// Config controls speed smoothing.
type Config struct {
	UseDeviceTime   bool
	MaxSpeedPxPerMs float64
	Window          int
}

// ConfigFrom extracts the smoother settings from a pipeline configuration.
func ConfigFrom(cfg model.PipelineConfig) Config {
	cfg = cfg.Sanitized()
	return Config{
		UseDeviceTime:   cfg.UseDeviceTimeForSpeed,
		MaxSpeedPxPerMs: cfg.MaxAllowedSpeedPxPerMs,
		Window:          cfg.SpeedSmoothingSamples,
	}
}

// Smoother keeps a rolling window of recent normalized speeds for one stroke.
// It is not safe for concurrent use.
type Smoother struct {
	cfg Config

	hasPrev    bool
	prevX      float64
	prevY      float64
	prevHost   float64
	prevDevice float64

	ring  []float64
	next  int
	count int
	sum   float64
}

// New returns a Smoother in its start-of-stroke state.
func New(cfg Config) *Smoother {
	s := &Smoother{}
	s.SetConfig(cfg)
	return s
}

// SetConfig replaces the configuration. The most recent window entries are
// kept when the window shrinks.
func (s *Smoother) SetConfig(cfg Config) {
	cfg.Window = min(max(cfg.Window, model.MinSpeedSmoothingSample), model.MaxSpeedSmoothingSamples)
	if !input.IsFinite(cfg.MaxSpeedPxPerMs) || cfg.MaxSpeedPxPerMs < model.MinMaxSpeedPxPerMs {
		cfg.MaxSpeedPxPerMs = model.MinMaxSpeedPxPerMs
	}
	recent := s.recent()
	s.cfg = cfg
	s.ring = make([]float64, cfg.Window)
	s.next, s.count, s.sum = 0, 0, 0
	if len(recent) > cfg.Window {
		recent = recent[len(recent)-cfg.Window:]
	}
	for _, v := range recent {
		s.push(v)
	}
}

// Reset returns the smoother to its start-of-stroke state.
func (s *Smoother) Reset() {
	s.hasPrev = false
	s.next, s.count, s.sum = 0, 0, 0
	for i := range s.ring {
		s.ring[i] = 0
	}
}

// Next returns the smoothed speed in [0,1] for the sample. The first sample
// of a stroke always yields 0.
func (s *Smoother) Next(sample model.RawInputSample) float64 {
	x := input.ClampFinite(sample.XPx, 0)
	y := input.ClampFinite(sample.YPx, 0)
	host := input.ClampFinite(sample.HostTimeUs, 0)
	device := input.ClampFinite(sample.DeviceTimeUs, 0)

	if !s.hasPrev {
		s.remember(x, y, host, device)
		return 0
	}

	dtUs := host - s.prevHost
	if s.cfg.UseDeviceTime && device > 0 && s.prevDevice > 0 {
		dtUs = device - s.prevDevice
	}

	contribution := 0.0
	if dtUs > 0 {
		dist := math.Hypot(x-s.prevX, y-s.prevY)
		raw := dist / (dtUs / 1000.0)
		if raw > s.cfg.MaxSpeedPxPerMs {
			raw = s.cfg.MaxSpeedPxPerMs
		}
		contribution = raw / s.cfg.MaxSpeedPxPerMs
	}
	s.push(contribution)
	s.remember(x, y, host, device)

	return input.Clamp01(s.sum / float64(s.count))
}

func (s *Smoother) remember(x, y, host, device float64) {
	s.hasPrev = true
	s.prevX, s.prevY = x, y
	s.prevHost, s.prevDevice = host, device
}

func (s *Smoother) push(v float64) {
	if s.count == len(s.ring) {
		s.sum -= s.ring[s.next]
	} else {
		s.count++
	}
	s.ring[s.next] = v
	s.sum += v
	s.next = (s.next + 1) % len(s.ring)
}

// recent returns the window contents, oldest first.
func (s *Smoother) recent() []float64 {
	if s.count == 0 {
		return nil
	}
	out := make([]float64, 0, s.count)
	start := (s.next - s.count + len(s.ring)) % len(s.ring)
	for i := 0; i < s.count; i++ {
		out = append(out, s.ring[(start+i)%len(s.ring)])
	}
	return out
}
