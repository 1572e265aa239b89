// Package pressure implements the global pressure curve lookup table.
package pressure

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Point is one (input, output) entry of a pressure curve.
type Point struct {
	In  float64
	Out float64
}

// LUT is an immutable, monotonic non-decreasing piecewise-linear curve.
// The zero value is the identity curve.
type LUT struct {
	points []Point
}

// ErrNotMonotonic is returned when curve outputs decrease.
var ErrNotMonotonic = errors.New("pressure curve is not monotonic")

// Identity returns the pass-through curve.
func Identity() LUT {
	return LUT{points: []Point{{In: 0, Out: 0}, {In: 1, Out: 1}}}
}

// NewLUT builds a curve from arbitrary-order points. Inputs and outputs are
// clamped to [0,1]. An empty point list yields the identity curve.
func NewLUT(points []Point) (LUT, error) {
	if len(points) == 0 {
		return Identity(), nil
	}
	sorted := make([]Point, len(points))
	for i, p := range points {
		if !finite(p.In) || !finite(p.Out) {
			return LUT{}, fmt.Errorf("pressure curve point %d is not finite", i)
		}
		sorted[i] = Point{In: clamp(p.In), Out: clamp(p.Out)}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].In < sorted[j].In
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Out < sorted[i-1].Out {
			return LUT{}, fmt.Errorf("%w: output drops from %.4f to %.4f at input %.4f",
				ErrNotMonotonic, sorted[i-1].Out, sorted[i].Out, sorted[i].In)
		}
	}
	return LUT{points: sorted}, nil
}

// NewTableLUT builds a curve from outputs sampled at evenly spaced inputs
// over [0,1]. At least two outputs are required.
func NewTableLUT(outputs []float64) (LUT, error) {
	if len(outputs) < 2 {
		return LUT{}, fmt.Errorf("pressure table needs at least 2 entries, got %d", len(outputs))
	}
	points := make([]Point, len(outputs))
	last := float64(len(outputs) - 1)
	for i, out := range outputs {
		points[i] = Point{In: float64(i) / last, Out: out}
	}
	return NewLUT(points)
}

// Points returns a copy of the curve entries.
func (l LUT) Points() []Point {
	if len(l.points) == 0 {
		return Identity().points
	}
	out := make([]Point, len(l.points))
	copy(out, l.points)
	return out
}

// IsIdentity reports whether the curve maps every input to itself.
func (l LUT) IsIdentity() bool {
	for _, p := range l.points {
		if p.In != p.Out {
			return false
		}
	}
	return true
}

// Sample maps raw pressure x through the curve. x is clamped to [0,1] first;
// values outside the table range take the boundary output.
func Sample(l LUT, x float64) float64 {
	x = clamp(x)
	pts := l.points
	if len(pts) == 0 {
		return x
	}
	first, last := pts[0], pts[len(pts)-1]
	if x <= first.In {
		return first.Out
	}
	if x >= last.In {
		return last.Out
	}
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].In >= x })
	lo := pts[hi-1]
	up := pts[hi]
	span := up.In - lo.In
	if span <= 0 {
		return up.Out
	}
	t := (x - lo.In) / span
	return lo.Out + (up.Out-lo.Out)*t
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
