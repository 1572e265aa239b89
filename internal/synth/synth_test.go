package synth

import (
	"reflect"
	"testing"

	"github.com/verte-zerg/penpipe/internal/gate"
	"github.com/verte-zerg/penpipe/internal/model"
)

func TestGenerateIsDeterministic(t *testing.T) {
	a, err := New(42).Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := New(42).Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical captures for the same seed")
	}
	c, err := New(7).Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reflect.DeepEqual(a.Samples, c.Samples) {
		t.Fatalf("expected different seeds to differ")
	}
	if a.ID != "synth-42" {
		t.Fatalf("expected id synth-42, got %q", a.ID)
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strokes = 2
	stroke, err := New(1).Generate(cfg)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := cfg.Strokes * (cfg.SamplesPerStroke + 1)
	if len(stroke.Samples) != want {
		t.Fatalf("expected %d samples, got %d", want, len(stroke.Samples))
	}

	counts := map[string]int{}
	prev := -1.0
	for i, s := range stroke.Samples {
		counts[s.Phase]++
		if s.HostTimeUs <= prev {
			t.Fatalf("expected increasing host time at %d", i)
		}
		prev = s.HostTimeUs
		if *s.Seq != int64(i) {
			t.Fatalf("expected seq %d, got %d", i, *s.Seq)
		}
		if s.Phase == string(model.PhaseUp) && s.Pressure01 != 0 {
			t.Fatalf("expected zero pressure on up, got %v", s.Pressure01)
		}
	}
	if counts["hover"] != 2 || counts["down"] != 2 || counts["up"] != 2 {
		t.Fatalf("unexpected phase counts %v", counts)
	}
}

func TestGenerateValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SamplesPerStroke = 1
	if _, err := New(1).Generate(cfg); err == nil {
		t.Fatalf("expected error for a single-sample stroke")
	}
	cfg = DefaultConfig()
	cfg.PeakPressure = 1.5
	if _, err := New(1).Generate(cfg); err == nil {
		t.Fatalf("expected error for pressure above 1")
	}
}

func TestGeneratedCapturePassesGate(t *testing.T) {
	stroke, err := New(3).Generate(DefaultConfig())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	a := gate.Run(stroke, gate.DefaultOptions())
	if a.Overall != gate.Pass {
		t.Fatalf("expected pass, got %s with %v", a.Overall, a.Summary.GateReasons)
	}
	if a.StageMetrics.HoverSampleCount != 1 {
		t.Fatalf("expected 1 hover sample, got %d", a.StageMetrics.HoverSampleCount)
	}
}
