package pipeline

import (
	"github.com/verte-zerg/penpipe/internal/input"
	"github.com/verte-zerg/penpipe/internal/model"
)

// Stroke is the replay result of one pen-down..pen-up run.
type Stroke struct {
	// Built holds the PaintInfo built for each processed raw sample.
	Built []model.PaintInfo
	// Emitted holds every point the pipeline returned, closing point last.
	Emitted []model.PaintInfo
}

// LastSeen returns the most recently built point of the active stroke.
func (p *Pipeline) LastSeen() (model.PaintInfo, bool) {
	return p.lastSeen, p.active
}

// Replay drives a fresh pipeline through a captured sample stream. Hover
// samples are skipped. A down sample arriving mid-stroke closes the previous
// stroke first, an up sample is processed and then flushed, and a stroke
// still open at the end of the stream is finalized.
func Replay(cfg model.PipelineConfig, samples []model.RawInputSample) []Stroke {
	p := New(cfg)
	var strokes []Stroke
	var cur Stroke

	closeStroke := func() {
		if !p.Active() {
			return
		}
		cur.Emitted = append(cur.Emitted, p.Finalize()...)
		strokes = append(strokes, cur)
		cur = Stroke{}
	}

	for _, raw := range samples {
		phase := input.NormalizePhase(raw.Phase)
		switch phase {
		case model.PhaseHover:
			continue
		case model.PhaseDown:
			closeStroke()
		}
		cur.Emitted = append(cur.Emitted, p.ProcessSample(raw)...)
		if pi, ok := p.LastSeen(); ok {
			cur.Built = append(cur.Built, pi)
		}
		if phase == model.PhaseUp {
			closeStroke()
		}
	}
	closeStroke()
	return strokes
}

// Flatten concatenates the emitted points of all strokes.
func Flatten(strokes []Stroke) []model.PaintInfo {
	var out []model.PaintInfo
	for _, s := range strokes {
		out = append(out, s.Emitted...)
	}
	return out
}
