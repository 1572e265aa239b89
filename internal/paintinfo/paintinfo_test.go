package paintinfo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/pressure"
)

func TestMixInterpolatesEveryField(t *testing.T) {
	from := model.PaintInfo{XPx: 0, YPx: 10, Pressure01: 0.2, DrawingSpeed01: 0, TimeUs: 1000}
	to := model.PaintInfo{XPx: 10, YPx: 30, Pressure01: 0.6, DrawingSpeed01: 0.5, TimeUs: 3000}

	mid := Mix(from, to, 0.25)
	require.InDelta(t, 2.5, mid.XPx, 1e-12)
	require.InDelta(t, 15, mid.YPx, 1e-12)
	require.InDelta(t, 0.3, mid.Pressure01, 1e-12)
	require.InDelta(t, 0.125, mid.DrawingSpeed01, 1e-12)
	require.InDelta(t, 1500, mid.TimeUs, 1e-9)

	require.Equal(t, from, Mix(from, to, 0))
	require.Equal(t, to, Mix(from, to, 1))
}

func TestBuilderFirstPointHasZeroSpeed(t *testing.T) {
	b := NewBuilder(model.DefaultPipelineConfig())
	pi := b.Build(model.RawInputSample{XPx: 10, YPx: 20, Pressure01: 0.4, HostTimeUs: 5000, Source: "wintab", Phase: "down"})
	require.Equal(t, 0.0, pi.DrawingSpeed01)
	require.InDelta(t, 0.4, pi.Pressure01, 1e-12)
	require.Equal(t, 5000.0, pi.TimeUs)
}

func TestBuilderAppliesCurveAndDisable(t *testing.T) {
	lut, err := pressure.NewLUT([]pressure.Point{{In: 0, Out: 0}, {In: 0.5, Out: 0.25}, {In: 1, Out: 1}})
	require.NoError(t, err)
	cfg := model.DefaultPipelineConfig()
	cfg.GlobalPressureLUT = lut

	b := NewBuilder(cfg)
	require.InDelta(t, 0.125, b.Build(model.RawInputSample{Pressure01: 0.25, Source: "mouse"}).Pressure01, 1e-12)

	cfg.PressureEnabled = false
	b.SetConfig(cfg)
	require.Equal(t, 1.0, b.Build(model.RawInputSample{Pressure01: 0.25, Source: "mouse", HostTimeUs: 1000}).Pressure01)
}

func TestBuilderCountsAnomalies(t *testing.T) {
	b := NewBuilder(model.DefaultPipelineConfig())
	b.Build(model.RawInputSample{Source: "stylus-x", Pressure01: 1.4, HostTimeUs: 2000})
	pi := b.Build(model.RawInputSample{Source: "mouse", XPx: math.NaN(), HostTimeUs: 1000})

	require.Equal(t, 0.0, pi.XPx)
	a := b.Anomalies()
	require.Equal(t, 1, a.UnresolvedSource)
	require.Equal(t, 1, a.PressureClamped)
	require.Equal(t, 1, a.NonFiniteField)
	require.Equal(t, 1, a.NonMonotonicTimeUs)

	b.Reset()
	require.Equal(t, a, b.Anomalies(), "stroke reset keeps counters")
	b.ClearAnomalies()
	require.Equal(t, Anomalies{}, b.Anomalies())
}

func TestBuilderOutputsStayInRange(t *testing.T) {
	b := NewBuilder(model.DefaultPipelineConfig())
	raws := []model.RawInputSample{
		{XPx: 0, Pressure01: -1, HostTimeUs: 0},
		{XPx: 5000, Pressure01: 3, HostTimeUs: 10},
		{XPx: math.Inf(1), Pressure01: math.NaN(), HostTimeUs: 20},
	}
	for _, raw := range raws {
		pi := b.Build(raw)
		require.GreaterOrEqual(t, pi.Pressure01, 0.0)
		require.LessOrEqual(t, pi.Pressure01, 1.0)
		require.GreaterOrEqual(t, pi.DrawingSpeed01, 0.0)
		require.LessOrEqual(t, pi.DrawingSpeed01, 1.0)
	}
}

func TestTimeBase(t *testing.T) {
	raw := model.RawInputSample{HostTimeUs: 100, DeviceTimeUs: 900}
	require.Equal(t, 100.0, TimeBase(raw, false))
	require.Equal(t, 900.0, TimeBase(raw, true))
	raw.DeviceTimeUs = 0
	require.Equal(t, 100.0, TimeBase(raw, true))
}
