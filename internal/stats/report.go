package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/verte-zerg/penpipe/internal/model"
)

// RunReader is the part of the run store a report needs.
type RunReader interface {
	ListRuns(ctx context.Context, filter model.RunFilter) ([]model.RunSummary, error)
	CheckFailureCounts(ctx context.Context, window int) ([]model.CheckAggregate, error)
}

// ReportConfig selects the runs a report covers.
type ReportConfig struct {
	Filter model.RunFilter
	// Window is the number of most recent runs used for check rankings and
	// the moving average.
	Window int
}

// Report contains precomputed data for run reporting.
type Report struct {
	Runs         []model.RunSummary
	Window       int
	ChecksAll    []model.CheckAggregate
	ChecksWindow []model.CheckAggregate
}

// BuildReport loads and prepares data for run reporting.
func BuildReport(ctx context.Context, st RunReader, cfg ReportConfig) (Report, error) {
	runs, err := st.ListRuns(ctx, cfg.Filter)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list runs: %w", err)
	}
	all, err := st.CheckFailureCounts(ctx, 0)
	if err != nil {
		return Report{}, fmt.Errorf("failed to count check failures: %w", err)
	}
	window, err := st.CheckFailureCounts(ctx, cfg.Window)
	if err != nil {
		return Report{}, fmt.Errorf("failed to count check failures: %w", err)
	}
	return Report{
		Runs:         runs,
		Window:       cfg.Window,
		ChecksAll:    all,
		ChecksWindow: window,
	}, nil
}

// Render writes the full text report.
func (r Report) Render(w io.Writer, width int) error {
	if err := RenderSummary(w, r.Runs); err != nil {
		return err
	}
	if len(r.Runs) == 0 {
		return nil
	}
	if err := RenderTrend(w, r.Runs, r.Window, width); err != nil {
		return err
	}
	if err := RenderRunTable(w, r.Runs); err != nil {
		return err
	}
	if err := RenderCheckTable(w, r.ChecksWindow); err != nil {
		return err
	}
	if unstable := UnstableChecks(r.ChecksAll, 0.1); len(unstable) > 0 {
		if _, err := fmt.Fprintf(w, "Unstable checks: %v\n", unstable); err != nil {
			return err
		}
	}
	return nil
}
