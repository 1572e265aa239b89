// Package stats contains gate-run statistics and text reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/penpipe/internal/model"
)

const sparkChars = " .:-=+*#%@"

// PassRate returns the share of runs whose overall verdict passed.
func PassRate(runs []model.RunSummary) float64 {
	if len(runs) == 0 {
		return 0
	}
	passed := 0
	for _, r := range runs {
		if r.Passed() {
			passed++
		}
	}
	return float64(passed) / float64(len(runs))
}

// PassSeries maps runs to 1 for a pass and 0 otherwise.
func PassSeries(runs []model.RunSummary) []float64 {
	out := make([]float64, len(runs))
	for i, r := range runs {
		if r.Passed() {
			out[i] = 1
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
// Leading entries average over the values seen so far.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders values on a single ASCII line scaled to their own range.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	return SparklineRange(values, lo, hi)
}

// SparklineRange renders values on a fixed [lo, hi] scale. Values outside
// the range are drawn at the nearest end.
func SparklineRange(values []float64, lo, hi float64) string {
	if len(values) == 0 {
		return ""
	}
	span := hi - lo
	var b strings.Builder
	for _, v := range values {
		pos := 0.0
		if span > 0 && !math.IsNaN(v) {
			pos = (v - lo) / span
		}
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Resample fits values into width buckets: longer series are bucket-averaged,
// shorter ones are linearly stretched.
func Resample(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := range out {
			start := i * len(values) / width
			end := max((i+1)*len(values)/width, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(pos)
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

// RenderSummary prints headline numbers for a set of runs.
func RenderSummary(w io.Writer, runs []model.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No gate runs found.")
		return err
	}
	var cases, casesPassed, presets, presetsPassed int
	for _, r := range runs {
		cases += r.CaseCount
		casesPassed += r.CasesPassed
		presets += r.PresetCount
		presetsPassed += r.PresetsPassed
	}
	last := runs[len(runs)-1]
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d", len(runs)),
		fmt.Sprintf("Pass rate: %.2f%%", PassRate(runs)*100),
		fmt.Sprintf("Cases passed: %d/%d", casesPassed, cases),
		fmt.Sprintf("Presets passed: %d/%d", presetsPassed, presets),
		fmt.Sprintf("Latest: %s %s (%s)", last.RunID, last.Overall, last.CreatedAt.Format("2006-01-02 15:04:05")),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints the pass/fail history and its moving average as
// sparklines no wider than width.
func RenderTrend(w io.Writer, runs []model.RunSummary, window, width int) error {
	if len(runs) == 0 {
		return nil
	}
	series := PassSeries(runs)
	avg := MovingAverage(series, window)
	width = SparkWidthFor(width, len(series))
	if _, err := fmt.Fprintln(w, "Pass Trend"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-8s %s\n", "verdict", SparklineRange(Resample(series, width), 0, 1)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%-8s %s\n", fmt.Sprintf("avg(%d)", window), SparklineRange(Resample(avg, width), 0, 1)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRunTable prints one row per run.
func RenderRunTable(w io.Writer, runs []model.RunSummary) error {
	if len(runs) == 0 {
		return nil
	}
	headers := []string{"Run", "When", "Source", "Overall", "Stage", "Final", "Fast", "Cases", "Presets"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.RunID),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Source,
			r.Overall,
			r.StageGate,
			r.FinalGate,
			r.FastGate,
			fmt.Sprintf("%d/%d", r.CasesPassed, r.CaseCount),
			fmt.Sprintf("%d/%d", r.PresetsPassed, r.PresetCount),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{7: true, 8: true}))
}

// RenderCheckTable prints check failure counts, most failing first.
func RenderCheckTable(w io.Writer, aggs []model.CheckAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No check verdicts found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Semantic Checks (Windowed)"); err != nil {
		return err
	}
	ranked := TopFailingChecks(aggs, len(aggs))
	headers := []string{"Check", "Fail Rate", "Failures", "Runs"}
	rows := make([][]string, 0, len(ranked))
	for _, agg := range ranked {
		rows = append(rows, []string{
			agg.Name,
			fmt.Sprintf("%.2f%%", agg.FailRate()*100),
			fmt.Sprintf("%d", agg.Failures),
			fmt.Sprintf("%d", agg.Total),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}))
}

// RenderStream prints a resampled PaintInfo stream and pressure/speed
// sparklines sized to width.
func RenderStream(w io.Writer, points []model.PaintInfo, width int) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(w, "No points emitted.")
		return err
	}
	headers := []string{"#", "X", "Y", "Pressure", "Speed", "Time (us)"}
	rows := make([][]string, 0, len(points))
	pressures := make([]float64, len(points))
	speeds := make([]float64, len(points))
	for i, p := range points {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%.2f", p.XPx),
			fmt.Sprintf("%.2f", p.YPx),
			fmt.Sprintf("%.3f", p.Pressure01),
			fmt.Sprintf("%.3f", p.DrawingSpeed01),
			fmt.Sprintf("%.0f", p.TimeUs),
		})
		pressures[i] = p.Pressure01
		speeds[i] = p.DrawingSpeed01
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true})); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	width = SparkWidthFor(width, len(points))
	if _, err := fmt.Fprintf(w, "%-8s %s\n", "pressure", SparklineRange(Resample(pressures, width), 0, 1)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%-8s %s\n", "speed", SparklineRange(Resample(speeds, width), 0, 1))
	return err
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
