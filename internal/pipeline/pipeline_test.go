package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/penpipe/internal/model"
)

func sample(x, y, pressure, hostUs float64, phase string) model.RawInputSample {
	return model.RawInputSample{XPx: x, YPx: y, Pressure01: pressure, HostTimeUs: hostUs, Source: "pointer_event", Phase: phase}
}

func testConfig() model.PipelineConfig {
	cfg := model.DefaultPipelineConfig()
	cfg.SpacingPx = 1
	cfg.MaxIntervalUs = 8000
	return cfg
}

func TestFirstSampleEmittedAlone(t *testing.T) {
	p := New(testConfig())
	require.False(t, p.Active())

	out := p.ProcessSample(sample(100, 100, 0.5, 0, "down"))
	require.Len(t, out, 1)
	require.Equal(t, 0.0, out[0].DrawingSpeed01)
	require.True(t, p.Active())
}

func TestSegmentIsResampled(t *testing.T) {
	p := New(testConfig())
	p.ProcessSample(sample(0, 0, 0.2, 0, "down"))
	out := p.ProcessSample(sample(10, 0, 0.6, 1000, "move"))

	require.Len(t, out, 10, "9 intermediate points plus the endpoint")
	for i := 0; i < 9; i++ {
		require.InDelta(t, float64(i+1), out[i].XPx, 1e-9)
	}
	last := out[9]
	require.Equal(t, 10.0, last.XPx)
	require.InDelta(t, 0.6, last.Pressure01, 1e-12)
	require.InDelta(t, 0.4, out[4].Pressure01, 1e-9)
}

func TestDegenerateSegmentEmitsNothing(t *testing.T) {
	p := New(testConfig())
	p.ProcessSample(sample(5, 5, 0.5, 1000, "down"))
	require.Empty(t, p.ProcessSample(sample(5, 5, 0.7, 1000, "move")))

	// the pressure change is still remembered for the closing point
	closing := p.Finalize()
	require.Len(t, closing, 1)
	require.InDelta(t, 0.7, closing[0].Pressure01, 1e-12)
}

func TestStationaryButTimedSegmentEmitsEndpoint(t *testing.T) {
	p := New(testConfig())
	p.ProcessSample(sample(5, 5, 0.5, 1000, "down"))
	out := p.ProcessSample(sample(5, 5, 0.5, 3000, "move"))
	require.Len(t, out, 1)
	require.Equal(t, 3000.0, out[0].TimeUs)
}

func TestFinalizeAfterResetIsEmpty(t *testing.T) {
	p := New(testConfig())
	require.Empty(t, p.Finalize())

	p.ProcessSample(sample(1, 2, 0.3, 0, "down"))
	p.Reset()
	require.Empty(t, p.Finalize())

	p.ProcessSample(sample(1, 2, 0.3, 0, "down"))
	p.ProcessSample(sample(3, 2, 0.3, 1000, "move"))
	closing := p.Finalize()
	require.Len(t, closing, 1)
	require.Equal(t, 3.0, closing[0].XPx)
	require.False(t, p.Active())
	require.Empty(t, p.Finalize())
}

func TestNewStrokeAfterFinalizeStartsAtZeroSpeed(t *testing.T) {
	p := New(testConfig())
	p.ProcessSample(sample(0, 0, 0.3, 0, "down"))
	p.ProcessSample(sample(8, 0, 0.3, 1000, "move"))
	p.Finalize()

	out := p.ProcessSample(sample(100, 0, 0.3, 2000, "down"))
	require.Len(t, out, 1)
	require.Equal(t, 0.0, out[0].DrawingSpeed01)
}

func TestUpdateConfigAppliesToNextSample(t *testing.T) {
	p := New(testConfig())
	p.ProcessSample(sample(0, 0, 0.3, 0, "down"))
	require.Len(t, p.ProcessSample(sample(4, 0, 0.3, 1000, "move")), 4)

	spacing := 2.0
	p.UpdateConfig(model.ConfigPatch{SpacingPx: &spacing})
	require.Equal(t, 2.0, p.Config().SpacingPx)
	require.Len(t, p.ProcessSample(sample(8, 0, 0.3, 2000, "move")), 2)

	tiny := 0.01
	p.UpdateConfig(model.ConfigPatch{SpacingPx: &tiny})
	require.Equal(t, model.MinSpacingPx, p.Config().SpacingPx)
}

func TestOutputsStayInUnitRange(t *testing.T) {
	p := New(testConfig())
	raws := []model.RawInputSample{
		sample(0, 0, -0.5, 0, "down"),
		sample(300, 40, 1.8, 500, "move"),
		sample(math.NaN(), 40, math.Inf(1), 900, "move"),
		sample(10, 10, 0.5, 400, "move"),
	}
	var all []model.PaintInfo
	for _, raw := range raws {
		all = append(all, p.ProcessSample(raw)...)
	}
	all = append(all, p.Finalize()...)
	require.NotEmpty(t, all)
	for _, pi := range all {
		require.GreaterOrEqual(t, pi.Pressure01, 0.0)
		require.LessOrEqual(t, pi.Pressure01, 1.0)
		require.GreaterOrEqual(t, pi.DrawingSpeed01, 0.0)
		require.LessOrEqual(t, pi.DrawingSpeed01, 1.0)
		require.False(t, math.IsNaN(pi.XPx))
	}
}

func TestReplaySplitsStrokes(t *testing.T) {
	samples := []model.RawInputSample{
		sample(0, 0, 0, 0, "hover"),
		sample(0, 0, 0.3, 1000, "pointerdown"),
		sample(2, 0, 0.4, 2000, "pointermove"),
		sample(4, 0, 0.2, 3000, "pointerup"),
		sample(50, 50, 0.5, 9000, "down"),
		sample(51, 50, 0.5, 10000, "move"),
	}
	strokes := Replay(testConfig(), samples)
	require.Len(t, strokes, 2)

	first := strokes[0]
	require.Len(t, first.Built, 3)
	require.Equal(t, 0.0, first.Built[0].DrawingSpeed01)
	closing := first.Emitted[len(first.Emitted)-1]
	require.Equal(t, first.Built[2], closing)

	second := strokes[1]
	require.Len(t, second.Built, 2)
	require.Equal(t, 0.0, second.Built[0].DrawingSpeed01)
	require.Equal(t, second.Built[1], second.Emitted[len(second.Emitted)-1])

	require.Len(t, Flatten(strokes), len(first.Emitted)+len(second.Emitted))
}

func TestReplayDownWithoutUpClosesPreviousStroke(t *testing.T) {
	samples := []model.RawInputSample{
		sample(0, 0, 0.3, 0, "down"),
		sample(1, 0, 0.3, 1000, "move"),
		sample(20, 0, 0.3, 2000, "down"),
	}
	strokes := Replay(testConfig(), samples)
	require.Len(t, strokes, 2)
	require.Len(t, strokes[1].Emitted, 2, "single point plus its closing point")
}
