// Package pipeline turns raw pen samples into an evenly resampled PaintInfo stream.
package pipeline

import (
	"math"

	"github.com/verte-zerg/penpipe/internal/logging"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/paintinfo"
	"github.com/verte-zerg/penpipe/internal/segment"
)

// degenerateEpsilon is the distance (px) and duration (us) below which a
// segment is treated as zero-length.
const degenerateEpsilon = 1e-9

// Pipeline holds the session state of one stroke. It is not safe for
// concurrent use; concurrent strokes need one Pipeline each.
type Pipeline struct {
	builder *paintinfo.Builder
	cfg     model.PipelineConfig

	active   bool
	lastSeen model.PaintInfo
}

// New returns an empty pipeline.
func New(cfg model.PipelineConfig) *Pipeline {
	cfg = cfg.Sanitized()
	return &Pipeline{
		builder: paintinfo.NewBuilder(cfg),
		cfg:     cfg,
	}
}

// Config returns the sanitized configuration in effect.
func (p *Pipeline) Config() model.PipelineConfig {
	return p.cfg
}

// Active reports whether at least one sample has been processed since the
// last Reset or Finalize.
func (p *Pipeline) Active() bool {
	return p.active
}

// Anomalies returns the malformed-input counters of the underlying builder.
func (p *Pipeline) Anomalies() paintinfo.Anomalies {
	return p.builder.Anomalies()
}

// UpdateConfig merges a partial configuration. The change applies from the
// next ProcessSample call; already emitted points are not revisited.
func (p *Pipeline) UpdateConfig(patch model.ConfigPatch) {
	p.cfg = p.cfg.Apply(patch).Sanitized()
	p.builder.SetConfig(p.cfg)
}

// Reset clears the session state.
func (p *Pipeline) Reset() {
	p.active = false
	p.lastSeen = model.PaintInfo{}
	p.builder.Reset()
}

// ProcessSample consumes one raw sample and returns the points to paint.
// The first sample of a stroke is emitted alone with zero drawing speed.
// Later samples emit intermediate points so that no gap exceeds the spacing
// or interval budget, followed by the sample itself unless the segment is
// degenerate.
func (p *Pipeline) ProcessSample(raw model.RawInputSample) []model.PaintInfo {
	pi := p.builder.Build(raw)
	if !p.active {
		p.active = true
		p.lastSeen = pi
		logging.Logger().Debug("stroke started", "x_px", pi.XPx, "y_px", pi.YPx, "time_us", pi.TimeUs)
		return []model.PaintInfo{pi}
	}

	from := p.lastSeen
	distance := math.Hypot(pi.XPx-from.XPx, pi.YPx-from.YPx)
	duration := pi.TimeUs - from.TimeUs
	fractions := segment.Sample(segment.Segment{
		DistancePx:    distance,
		DurationUs:    duration,
		SpacingPx:     p.cfg.SpacingPx,
		MaxIntervalUs: p.cfg.MaxIntervalUs,
	})

	out := make([]model.PaintInfo, 0, len(fractions)+1)
	for _, t := range fractions {
		out = append(out, paintinfo.Mix(from, pi, t))
	}
	if distance > degenerateEpsilon || math.Abs(duration) > degenerateEpsilon {
		out = append(out, pi)
	}
	p.lastSeen = pi
	return out
}

// Finalize flushes the last seen point as the closing point of the stroke
// and returns the pipeline to its empty state. An empty pipeline emits nothing.
func (p *Pipeline) Finalize() []model.PaintInfo {
	if !p.active {
		return nil
	}
	closing := p.lastSeen
	p.Reset()
	logging.Logger().Debug("stroke finalized", "x_px", closing.XPx, "y_px", closing.YPx, "time_us", closing.TimeUs)
	return []model.PaintInfo{closing}
}
