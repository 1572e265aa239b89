// Package synth builds deterministic synthetic pen captures.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/verte-zerg/penpipe/internal/model"
)

// Config shapes the generated strokes. JitterPx is the maximum positional
// noise per sample. ClockSkewUs offsets device time from host time; 0 leaves
// device time unset.
type Config struct {
	Strokes          int
	SamplesPerStroke int
	RateHz           float64
	LengthPx         float64
	PeakPressure     float64
	JitterPx         float64
	ClockSkewUs      float64
	Hover            bool
	Source           string
}

// DefaultConfig returns a single fast stroke sampled at 200 Hz.
func DefaultConfig() Config {
	return Config{
		Strokes:          1,
		SamplesPerStroke: 40,
		RateHz:           200,
		LengthPx:         600,
		PeakPressure:     0.8,
		JitterPx:         0.5,
		ClockSkewUs:      1500,
		Hover:            true,
		Source:           string(model.SourceWintab),
	}
}

// Generator produces synthetic captures.
type Generator struct {
	rnd  *rand.Rand
	seed int64
}

// New returns a Generator whose output depends only on seed.
func New(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed)), seed: seed}
}

// Generate builds a capture. Each stroke follows a gentle arc with an
// ease-in-out speed profile and a pressure bell that lifts to zero at the up
// sample, so early and late samples are slow and the middle is fast.
func (g *Generator) Generate(cfg Config) (model.CapturedStroke, error) {
	if err := validate(cfg); err != nil {
		return model.CapturedStroke{}, err
	}
	stepUs := 1e6 / cfg.RateHz
	var samples []model.RawInputSample
	var seq int64
	t := 1000.0

	add := func(x, y, p float64, phase model.Phase) {
		s := model.RawInputSample{
			XPx:         x + g.jitter(cfg.JitterPx),
			YPx:         y + g.jitter(cfg.JitterPx),
			Pressure01:  p,
			TiltXDeg:    20 + g.jitter(2),
			TiltYDeg:    -10 + g.jitter(2),
			RotationDeg: 0,
			HostTimeUs:  t,
			Source:      cfg.Source,
			Phase:       string(phase),
		}
		if cfg.ClockSkewUs != 0 {
			s.DeviceTimeUs = t + cfg.ClockSkewUs + g.jitter(stepUs*0.05)
		}
		n := seq
		s.Seq = &n
		seq++
		samples = append(samples, s)
		t += stepUs
	}

	for k := 0; k < cfg.Strokes; k++ {
		originX := 100 + float64(k)*40
		originY := 100 + float64(k)*120
		if cfg.Hover {
			add(originX-5, originY-5, 0, model.PhaseHover)
		}
		last := cfg.SamplesPerStroke - 1
		for i := 0; i <= last; i++ {
			u := float64(i) / float64(last)
			along := easeInOut(u) * cfg.LengthPx
			x := originX + along
			y := originY + math.Sin(u*math.Pi)*cfg.LengthPx*0.1
			p := cfg.PeakPressure * math.Sin(u*math.Pi*0.98+0.02*math.Pi)
			phase := model.PhaseMove
			switch i {
			case 0:
				phase = model.PhaseDown
			case last:
				phase = model.PhaseUp
				p = 0
			}
			add(x, y, math.Max(0, p), phase)
		}
		t += 20 * stepUs
	}

	return model.CapturedStroke{
		ID:      fmt.Sprintf("synth-%d", g.seed),
		Samples: samples,
	}, nil
}

func (g *Generator) jitter(amplitude float64) float64 {
	if amplitude <= 0 {
		return 0
	}
	return (g.rnd.Float64()*2 - 1) * amplitude
}

func easeInOut(u float64) float64 {
	return 0.5 - 0.5*math.Cos(u*math.Pi)
}

func validate(cfg Config) error {
	if cfg.Strokes <= 0 {
		return fmt.Errorf("strokes must be > 0")
	}
	if cfg.SamplesPerStroke < 2 {
		return fmt.Errorf("samples per stroke must be >= 2")
	}
	if cfg.RateHz <= 0 {
		return fmt.Errorf("rate must be > 0")
	}
	if cfg.LengthPx < 0 {
		return fmt.Errorf("length must be >= 0")
	}
	if cfg.PeakPressure < 0 || cfg.PeakPressure > 1 {
		return fmt.Errorf("peak pressure must be between 0 and 1")
	}
	if cfg.Source == "" {
		return fmt.Errorf("source must not be empty")
	}
	return nil
}
