// Package paintinfo builds and interpolates PaintInfo records.
package paintinfo

import "github.com/verte-zerg/penpipe/internal/model"

// Mix linearly interpolates every field of two records at fraction t.
// No clamping is applied.
func Mix(from, to model.PaintInfo, t float64) model.PaintInfo {
	return model.PaintInfo{
		XPx:            lerp(from.XPx, to.XPx, t),
		YPx:            lerp(from.YPx, to.YPx, t),
		Pressure01:     lerp(from.Pressure01, to.Pressure01, t),
		DrawingSpeed01: lerp(from.DrawingSpeed01, to.DrawingSpeed01, t),
		TimeUs:         lerp(from.TimeUs, to.TimeUs, t),
	}
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}
