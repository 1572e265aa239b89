package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/penpipe/internal/gate"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/store"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 0, 1, 1}, 2)
	want := []float64{1, 0.5, 0.5, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	same := MovingAverage([]float64{3, 4}, 1)
	if same[0] != 3 || same[1] != 4 {
		t.Fatalf("expected copy for window 1, got %v", same)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{2, 2, 2}); got != "+++" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
	if got := SparklineRange([]float64{0, 1, 2, -1}, 0, 1); got != " @@ " {
		t.Fatalf("expected clamped sparkline, got %q", got)
	}
}

func TestResample(t *testing.T) {
	down := Resample([]float64{1, 3, 5, 7}, 2)
	if len(down) != 2 || down[0] != 2 || down[1] != 6 {
		t.Fatalf("expected bucket averages, got %v", down)
	}
	up := Resample([]float64{0, 1}, 3)
	if len(up) != 3 || up[1] != 0.5 || up[2] != 1 {
		t.Fatalf("expected interpolation, got %v", up)
	}
	if Resample(nil, 4) != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Check", "Fail Rate", "Runs"}
	rows := [][]string{
		{"first_speed_is_zero", "50.00%", "12"},
		{"finalize", "8.00%", "3"},
	}
	lines := formatTable(headers, rows, map[int]bool{1: true, 2: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Check               Fail Rate Runs" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "first_speed_is_zero    50.00%   12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "finalize                8.00%    3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTopFailingChecks(t *testing.T) {
	aggs := []model.CheckAggregate{
		{Name: "b", Failures: 1, Total: 4},
		{Name: "a", Failures: 3, Total: 4},
		{Name: "c", Failures: 1, Total: 2},
		{Name: "d", Failures: 0, Total: 4},
	}
	top := TopFailingChecks(aggs, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(top))
	}
	if top[0].Name != "a" || top[1].Name != "c" || top[2].Name != "b" {
		t.Fatalf("unexpected order: %+v", top)
	}
	unstable := UnstableChecks(aggs, 0.5)
	if len(unstable) != 2 || unstable[0] != "a" || unstable[1] != "c" {
		t.Fatalf("unexpected unstable checks: %v", unstable)
	}
}

func TestSparkWidthFor(t *testing.T) {
	if got := SparkWidthFor(80, 5); got != 5 {
		t.Fatalf("expected short series to keep length, got %d", got)
	}
	if got := SparkWidthFor(80, 500); got != 71 {
		t.Fatalf("expected 71, got %d", got)
	}
	if got := SparkWidthFor(4, 500); got != minSparkWidth {
		t.Fatalf("expected minimum width, got %d", got)
	}
}

func TestRenderStream(t *testing.T) {
	var buf bytes.Buffer
	points := []model.PaintInfo{
		{XPx: 1, YPx: 2, Pressure01: 0, DrawingSpeed01: 0, TimeUs: 0},
		{XPx: 2, YPx: 2, Pressure01: 1, DrawingSpeed01: 0.5, TimeUs: 1000},
	}
	if err := RenderStream(&buf, points, 40); err != nil {
		t.Fatalf("render stream: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "pressure  @") || !strings.Contains(out, "speed     +") {
		t.Fatalf("expected sparklines, got %q", out)
	}
}

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "penpipe.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	stroke := model.CapturedStroke{ID: "s", Samples: []model.RawInputSample{
		{XPx: 0, YPx: 0, Pressure01: 0.4, HostTimeUs: 0, Source: "mouse", Phase: "down"},
		{XPx: 30, YPx: 0, Pressure01: 0.4, HostTimeUs: 4000, Source: "mouse", Phase: "move"},
		{XPx: 60, YPx: 0, Pressure01: 0.4, HostTimeUs: 8000, Source: "mouse", Phase: "up"},
	}}
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		opts := gate.DefaultOptions()
		opts.RunID = []string{"run-a", "run-b", "run-c"}[i]
		at := base.Add(time.Duration(i) * time.Minute)
		opts.Now = func() time.Time { return at }
		if _, err := st.InsertRun(ctx, gate.Run(stroke, opts), "s.json"); err != nil {
			t.Fatalf("insert run: %v", err)
		}
	}

	report, err := BuildReport(ctx, st, ReportConfig{Filter: model.RunFilter{Limit: 2}, Window: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Runs) != 2 || report.Runs[0].RunID != "run-b" {
		t.Fatalf("unexpected runs: %+v", report.Runs)
	}
	if len(report.ChecksAll) != len(gate.CheckNames()) {
		t.Fatalf("expected %d check aggregates, got %d", len(gate.CheckNames()), len(report.ChecksAll))
	}
	for _, agg := range report.ChecksWindow {
		if agg.Total != 2 {
			t.Fatalf("expected window of 2 runs, got %+v", agg)
		}
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, 60); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Runs: 2") {
		t.Fatalf("expected run count in output, got %q", buf.String())
	}
}
