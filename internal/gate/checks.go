package gate

import (
	"math"

	"github.com/verte-zerg/penpipe/internal/input"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/pipeline"
	"github.com/verte-zerg/penpipe/internal/pressure"
)

const spacingSlack = 1e-6

type checkInput struct {
	cfg     model.PipelineConfig
	samples []model.RawInputSample
	strokes []pipeline.Stroke
}

type semanticCheck struct {
	name string
	run  func(checkInput) bool
}

var semanticChecks = []semanticCheck{
	{"first_speed_is_zero", checkFirstSpeedIsZero},
	{"pressure_within_unit_range", checkPressureRange},
	{"speed_within_unit_range", checkSpeedRange},
	{"no_forced_zero_pressure_outside_buildup_mode", checkNoForcedZeroPressure},
	{"pointer_up_flushes_pending_segment", checkPointerUpFlushes},
	{"disable_pressure_bridge_matches_contract", checkDisablePressureBridge},
	{"resample_spacing_respected", checkResampleSpacing},
	{"finalize_after_reset_is_empty", checkFinalizeAfterReset},
}

// CheckNames returns the semantic check names in evaluation order.
func CheckNames() []string {
	names := make([]string, len(semanticChecks))
	for i, c := range semanticChecks {
		names[i] = c.name
	}
	return names
}

func runChecks(in checkInput) map[string]Verdict {
	out := make(map[string]Verdict, len(semanticChecks))
	for _, c := range semanticChecks {
		out[c.name] = verdictOf(c.run(in))
	}
	return out
}

func checkFirstSpeedIsZero(in checkInput) bool {
	for _, s := range in.strokes {
		if len(s.Built) == 0 || len(s.Emitted) == 0 {
			return false
		}
		if s.Built[0].DrawingSpeed01 != 0 || s.Emitted[0].DrawingSpeed01 != 0 {
			return false
		}
	}
	return true
}

func checkPressureRange(in checkInput) bool {
	return allPoints(in.strokes, func(pi model.PaintInfo) bool { return inUnitRange(pi.Pressure01) })
}

func checkSpeedRange(in checkInput) bool {
	return allPoints(in.strokes, func(pi model.PaintInfo) bool { return inUnitRange(pi.DrawingSpeed01) })
}

// checkNoForcedZeroPressure verifies that a sample with positive raw
// pressure, whose curve output is also positive, was never built with zero
// pressure. With pressure disabled every point must carry full pressure.
func checkNoForcedZeroPressure(in checkInput) bool {
	var built []model.PaintInfo
	for _, s := range in.strokes {
		built = append(built, s.Built...)
	}
	paintable := paintableSamples(in.samples)
	if len(paintable) != len(built) {
		return false
	}
	for i, raw := range paintable {
		if !in.cfg.PressureEnabled {
			if built[i].Pressure01 != 1 {
				return false
			}
			continue
		}
		if !input.IsFinite(raw.Pressure01) || raw.Pressure01 <= 0 {
			continue
		}
		if pressure.Sample(in.cfg.GlobalPressureLUT, raw.Pressure01) > 0 && built[i].Pressure01 <= 0 {
			return false
		}
	}
	return true
}

func checkPointerUpFlushes(in checkInput) bool {
	for _, s := range in.strokes {
		if len(s.Built) == 0 || len(s.Emitted) == 0 {
			return false
		}
		if s.Emitted[len(s.Emitted)-1] != s.Built[len(s.Built)-1] {
			return false
		}
	}
	return true
}

// checkDisablePressureBridge replays with pressure disabled and expects full
// pressure everywhere with geometry, timing and speed unchanged.
func checkDisablePressureBridge(in checkInput) bool {
	cfg := in.cfg
	cfg.PressureEnabled = false
	bridged := pipeline.Replay(cfg, in.samples)
	if len(bridged) != len(in.strokes) {
		return false
	}
	for i, s := range bridged {
		ref := in.strokes[i]
		if len(s.Built) != len(ref.Built) || len(s.Emitted) != len(ref.Emitted) {
			return false
		}
		for j, pi := range s.Built {
			if pi.Pressure01 != 1 || !sameMotion(pi, ref.Built[j]) {
				return false
			}
		}
		for j, pi := range s.Emitted {
			if pi.Pressure01 != 1 || !sameMotion(pi, ref.Emitted[j]) {
				return false
			}
		}
	}
	return true
}

func checkResampleSpacing(in checkInput) bool {
	cfg := in.cfg.Sanitized()
	for _, s := range in.strokes {
		for i := 1; i < len(s.Emitted); i++ {
			a, b := s.Emitted[i-1], s.Emitted[i]
			if math.Hypot(b.XPx-a.XPx, b.YPx-a.YPx) > cfg.SpacingPx+spacingSlack {
				return false
			}
			if b.TimeUs-a.TimeUs > cfg.MaxIntervalUs+spacingSlack {
				return false
			}
		}
	}
	return true
}

func checkFinalizeAfterReset(in checkInput) bool {
	p := pipeline.New(in.cfg)
	p.Reset()
	if len(p.Finalize()) != 0 {
		return false
	}
	paintable := paintableSamples(in.samples)
	if len(paintable) == 0 {
		return true
	}
	p.ProcessSample(paintable[0])
	p.Reset()
	if len(p.Finalize()) != 0 {
		return false
	}
	p.ProcessSample(paintable[0])
	if len(p.Finalize()) != 1 {
		return false
	}
	return !p.Active() && len(p.Finalize()) == 0
}

func allPoints(strokes []pipeline.Stroke, ok func(model.PaintInfo) bool) bool {
	for _, s := range strokes {
		for _, pts := range [][]model.PaintInfo{s.Built, s.Emitted} {
			for _, pi := range pts {
				if !ok(pi) {
					return false
				}
			}
		}
	}
	return true
}

func paintableSamples(samples []model.RawInputSample) []model.RawInputSample {
	var out []model.RawInputSample
	for _, raw := range samples {
		if input.NormalizePhase(raw.Phase) != model.PhaseHover {
			out = append(out, raw)
		}
	}
	return out
}

func sameMotion(a, b model.PaintInfo) bool {
	return a.XPx == b.XPx && a.YPx == b.YPx && a.TimeUs == b.TimeUs && a.DrawingSpeed01 == b.DrawingSpeed01
}
