// Package segment computes resampling fractions between two paint points.
package segment

import (
	"math"

	"github.com/verte-zerg/penpipe/internal/input"
	"github.com/verte-zerg/penpipe/internal/model"
)

// MaxSteps caps the number of sub-steps produced for a single segment.
const MaxSteps = 1 << 16

// Segment describes the gap between two consecutive paint points.
type Segment struct {
	DistancePx    float64
	DurationUs    float64
	SpacingPx     float64
	MaxIntervalUs float64
}

// Steps returns how many equal sub-steps the segment is split into so that
// no sub-step exceeds the spacing or the interval budget.
func Steps(seg Segment) int {
	dist := nonNegative(seg.DistancePx)
	dur := nonNegative(seg.DurationUs)
	spacing := floor(seg.SpacingPx, model.MinSpacingPx)
	interval := floor(seg.MaxIntervalUs, model.MinMaxIntervalUs)

	byDistance := math.Ceil(dist / spacing)
	byTime := math.Ceil(dur / interval)
	steps := math.Max(byDistance, byTime)
	if steps > MaxSteps {
		return MaxSteps
	}
	return int(steps)
}

// Sample returns the interpolation fractions in (0,1) at which intermediate
// points must be inserted. The result is empty when the segment fits in one step.
func Sample(seg Segment) []float64 {
	steps := Steps(seg)
	if steps <= 1 {
		return nil
	}
	fractions := make([]float64, 0, steps-1)
	for i := 1; i < steps; i++ {
		fractions = append(fractions, float64(i)/float64(steps))
	}
	return fractions
}

func nonNegative(v float64) float64 {
	v = input.ClampFinite(v, 0)
	if v < 0 {
		return 0
	}
	return v
}

func floor(v, minimum float64) float64 {
	v = input.ClampFinite(v, minimum)
	if v < minimum {
		return minimum
	}
	return v
}
