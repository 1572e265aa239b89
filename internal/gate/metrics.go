package gate

import (
	"fmt"
	"math"
	"sort"

	"github.com/verte-zerg/penpipe/internal/input"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/paintinfo"
	"github.com/verte-zerg/penpipe/internal/pipeline"
)

// Thresholds is a versioned set of gate limits.
type Thresholds struct {
	Version              string  `json:"version" yaml:"version"`
	HighSpeedThreshold01 float64 `json:"high_speed_threshold_01" yaml:"high_speed_threshold_01"`
	MinFastWindows       int     `json:"min_fast_windows" yaml:"min_fast_windows"`
	FinalTolerance       float64 `json:"final_tolerance" yaml:"final_tolerance"`
}

// DefaultThresholds returns the built-in threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Version:              "thresholds-v1",
		HighSpeedThreshold01: 0.5,
		MinFastWindows:       1,
		FinalTolerance:       0,
	}
}

// StageMetrics describes input-processing correctness.
type StageMetrics struct {
	SampleCount           int     `json:"sample_count"`
	HoverSampleCount      int     `json:"hover_sample_count"`
	StrokeCount           int     `json:"stroke_count"`
	EmittedPointCount     int     `json:"emitted_point_count"`
	PressureOutOfRange    int     `json:"pressure_out_of_range"`
	SpeedOutOfRange       int     `json:"speed_out_of_range"`
	RawPressureClamped    int     `json:"raw_pressure_clamped"`
	NonFiniteFieldCount   int     `json:"non_finite_field_count"`
	UnresolvedSourceCount int     `json:"unresolved_source_count"`
	NonMonotonicTimeCount int     `json:"non_monotonic_time_count"`
	FirstSpeed01          float64 `json:"first_speed_01"`
	FirstSpeedIsZero      bool    `json:"first_speed_is_zero"`
}

// Violations lists the stage metrics that break the contract.
// Clamped raw pressure and non-finite fields are informational only.
func (m StageMetrics) Violations() []string {
	var out []string
	if m.StrokeCount == 0 {
		out = append(out, "no paintable samples")
	}
	if m.PressureOutOfRange > 0 {
		out = append(out, fmt.Sprintf("%d pressure values outside [0,1]", m.PressureOutOfRange))
	}
	if m.SpeedOutOfRange > 0 {
		out = append(out, fmt.Sprintf("%d speed values outside [0,1]", m.SpeedOutOfRange))
	}
	if m.UnresolvedSourceCount > 0 {
		out = append(out, fmt.Sprintf("%d unresolved source aliases", m.UnresolvedSourceCount))
	}
	if m.NonMonotonicTimeCount > 0 {
		out = append(out, fmt.Sprintf("%d non-monotonic timestamps", m.NonMonotonicTimeCount))
	}
	if m.StrokeCount > 0 && !m.FirstSpeedIsZero {
		out = append(out, fmt.Sprintf("first speed is %g, want 0", m.FirstSpeed01))
	}
	return out
}

// FinalMetrics compares rendered output against the baseline. All deltas
// are 0 when behaviour matches.
type FinalMetrics struct {
	WidthProfileDelta float64 `json:"width_profile_delta"`
	TailDecayDelta    float64 `json:"tail_decay_delta"`
	PixelROIDelta     float64 `json:"pixel_roi_delta"`
}

// Violations lists deltas whose magnitude exceeds the tolerance.
func (m FinalMetrics) Violations(tolerance float64) []string {
	var out []string
	check := func(name string, v float64) {
		if math.IsNaN(v) || math.Abs(v) > tolerance {
			out = append(out, fmt.Sprintf("%s is %g", name, v))
		}
	}
	check("width_profile_delta", m.WidthProfileDelta)
	check("tail_decay_delta", m.TailDecayDelta)
	check("pixel_roi_delta", m.PixelROIDelta)
	return out
}

// FastWindowsMetrics describes high-speed responsiveness.
type FastWindowsMetrics struct {
	HighSpeedThreshold01   float64 `json:"high_speed_threshold_01"`
	FastWindowCount        int     `json:"fast_window_count"`
	P95Speed01             float64 `json:"p95_speed_01"`
	MinRequiredFastWindows int     `json:"min_required_fast_windows"`
}

// Violations reports a shortfall of fast windows.
func (m FastWindowsMetrics) Violations() []string {
	if m.FastWindowCount < m.MinRequiredFastWindows {
		return []string{fmt.Sprintf("%d fast windows, need %d", m.FastWindowCount, m.MinRequiredFastWindows)}
	}
	return nil
}

// FinalComparer diffs the emitted paint stream against a rendered baseline.
type FinalComparer interface {
	Compare(points []model.PaintInfo) FinalMetrics
}

// StubComparer reports zero deltas. It stands in until a rendered-output
// diff against a golden image is wired in.
type StubComparer struct{}

// Compare implements FinalComparer.
func (StubComparer) Compare([]model.PaintInfo) FinalMetrics {
	return FinalMetrics{}
}

func stageMetrics(samples []model.RawInputSample, cfg model.PipelineConfig, strokes []pipeline.Stroke) StageMetrics {
	m := StageMetrics{
		SampleCount:      len(samples),
		StrokeCount:      len(strokes),
		FirstSpeedIsZero: true,
	}

	audit := paintinfo.NewBuilder(cfg)
	for _, raw := range samples {
		if input.NormalizePhase(raw.Phase) == model.PhaseHover {
			m.HoverSampleCount++
		}
		audit.Build(raw)
	}
	a := audit.Anomalies()
	m.UnresolvedSourceCount = a.UnresolvedSource
	m.NonFiniteFieldCount = a.NonFiniteField
	m.RawPressureClamped = a.PressureClamped
	m.NonMonotonicTimeCount = a.NonMonotonicTimeUs

	for i, s := range strokes {
		if len(s.Built) > 0 {
			first := s.Built[0].DrawingSpeed01
			if i == 0 {
				m.FirstSpeed01 = first
			}
			if first != 0 {
				m.FirstSpeedIsZero = false
			}
		}
		m.EmittedPointCount += len(s.Emitted)
		for _, pts := range [][]model.PaintInfo{s.Built, s.Emitted} {
			for _, pi := range pts {
				if !inUnitRange(pi.Pressure01) {
					m.PressureOutOfRange++
				}
				if !inUnitRange(pi.DrawingSpeed01) {
					m.SpeedOutOfRange++
				}
			}
		}
	}
	return m
}

func fastWindowsMetrics(strokes []pipeline.Stroke, th Thresholds) FastWindowsMetrics {
	var speeds []float64
	for _, s := range strokes {
		if len(s.Built) < 2 {
			continue
		}
		// Built[0] carries the forced zero speed of the stroke start.
		for _, pi := range s.Built[1:] {
			speeds = append(speeds, pi.DrawingSpeed01)
		}
	}
	m := FastWindowsMetrics{
		HighSpeedThreshold01:   th.HighSpeedThreshold01,
		MinRequiredFastWindows: th.MinFastWindows,
		P95Speed01:             percentile(speeds, 0.95),
	}
	for _, v := range speeds {
		if v >= th.HighSpeedThreshold01 {
			m.FastWindowCount++
		}
	}
	return m
}

// percentile returns the nearest-rank percentile of values, 0 when empty.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}
