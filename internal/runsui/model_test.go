package runsui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/penpipe/internal/gate"
	"github.com/verte-zerg/penpipe/internal/model"
)

type fakeSource struct {
	runs      []model.RunSummary
	artifacts map[string]gate.Artifact
	lastQuery model.RunFilter
}

func (f *fakeSource) ListRuns(_ context.Context, filter model.RunFilter) ([]model.RunSummary, error) {
	f.lastQuery = filter
	var out []model.RunSummary
	for _, r := range f.runs {
		if filter.Source == "" || r.Source == filter.Source {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) CheckFailureCounts(context.Context, int) ([]model.CheckAggregate, error) {
	return []model.CheckAggregate{{Name: "resample_spacing_respected", Failures: 1, Total: 2}}, nil
}

func (f *fakeSource) GetArtifact(_ context.Context, runID string) (gate.Artifact, error) {
	return f.artifacts[runID], nil
}

func newFakeSource() *fakeSource {
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	return &fakeSource{
		runs: []model.RunSummary{
			{RunID: "older-run", CreatedAt: base, Source: "a.json", Overall: "fail"},
			{RunID: "newer-run", CreatedAt: base.Add(time.Hour), Source: "b.json", Overall: "pass"},
		},
		artifacts: map[string]gate.Artifact{
			"newer-run": {
				RunMeta:        gate.RunMeta{ID: "newer-run"},
				Overall:        gate.Pass,
				SemanticChecks: map[string]gate.Verdict{"first_speed_is_zero": gate.Pass},
				CaseResults:    []gate.SubResult{{Name: "baseline", Overall: gate.Pass}},
				Summary:        gate.Summary{CaseCount: 1, CasesPassed: 1},
			},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRunsListedNewestFirst(t *testing.T) {
	m := NewModel(newFakeSource(), model.RunFilter{}, 10)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	if got := m.SelectedRunID(); got != "newer-run" {
		t.Fatalf("expected newest run selected, got %q", got)
	}
	view := m.View()
	if !strings.Contains(view, "newer-ru") {
		t.Fatalf("expected run table in view, got %q", view)
	}
	if !strings.Contains(view, "runs=2") {
		t.Fatalf("expected settings line, got %q", view)
	}
}

func TestEnterOpensArtifact(t *testing.T) {
	m := NewModel(newFakeSource(), model.RunFilter{}, 10)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(key("enter"))

	if m.activeTab != tabArtifact {
		t.Fatalf("expected artifact tab, got %d", m.activeTab)
	}
	view := m.View()
	if !strings.Contains(view, "Run newer-run") || !strings.Contains(view, "baseline") {
		t.Fatalf("expected artifact details, got %q", view)
	}
}

func TestFilterBySource(t *testing.T) {
	src := newFakeSource()
	m := NewModel(src, model.RunFilter{}, 10)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	m.Update(key("/"))
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	for _, r := range "a.json" {
		m.Update(key(string(r)))
	}
	m.Update(key("enter"))

	if m.filterMode {
		t.Fatalf("expected filter mode to close")
	}
	if src.lastQuery.Source != "a.json" {
		t.Fatalf("expected source filter to reach the store, got %q", src.lastQuery.Source)
	}
	if got := m.SelectedRunID(); got != "older-run" {
		t.Fatalf("expected filtered run, got %q", got)
	}
}

func TestTabsWrapAndQuit(t *testing.T) {
	m := NewModel(newFakeSource(), model.RunFilter{}, 10)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	m.Update(key("right"))
	if m.activeTab != tabChecks {
		t.Fatalf("expected checks tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "resample_spacing_respected") {
		t.Fatalf("expected check table in checks tab")
	}
	m.Update(key("right"))
	m.Update(key("right"))
	if m.activeTab != tabRuns {
		t.Fatalf("expected wrap to runs tab, got %d", m.activeTab)
	}
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestWindowSteps(t *testing.T) {
	if nextWindow(10) != 20 || nextWindow(100) != 100 {
		t.Fatalf("unexpected next window")
	}
	if prevWindow(10) != 5 || prevWindow(5) != 1 || prevWindow(1) != 1 {
		t.Fatalf("unexpected prev window")
	}
}
