package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/penpipe/internal/gate"
	"github.com/verte-zerg/penpipe/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "penpipe.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if cerr := st.Close(); cerr != nil {
			t.Fatalf("close store: %v", cerr)
		}
	})
	return st
}

func testArtifact(id string, at time.Time, overall gate.Verdict) gate.Artifact {
	checks := map[string]gate.Verdict{}
	for _, name := range gate.CheckNames() {
		checks[name] = gate.Pass
	}
	if overall == gate.Fail {
		checks["resample_spacing_respected"] = gate.Fail
	}
	return gate.Artifact{
		RunMeta:          gate.RunMeta{ID: id, Timestamp: at.UTC().Format(time.RFC3339Nano)},
		InputHash:        "abc",
		BaselineVersion:  "baseline-v1",
		ThresholdVersion: "thresholds-v1",
		SemanticChecks:   checks,
		StageGate:        overall,
		FinalGate:        gate.Pass,
		FastGate:         gate.Pass,
		Overall:          overall,
		BlockingFailures: []string{},
		CaseResults:      []gate.SubResult{{Name: "baseline", SemanticChecks: checks, Overall: overall}},
		Summary:          gate.Summary{CaseCount: 1, CasesPassed: 1},
	}
}

func TestInsertAndListRuns(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, v := range []gate.Verdict{gate.Pass, gate.Fail, gate.Pass} {
		id := []string{"r1", "r2", "r3"}[i]
		if _, err := st.InsertRun(ctx, testArtifact(id, base.Add(time.Duration(i)*time.Hour), v), "capture.json"); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	runs, err := st.ListRuns(ctx, model.RunFilter{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].RunID != "r1" || runs[2].RunID != "r3" {
		t.Fatalf("expected oldest first, got %s..%s", runs[0].RunID, runs[2].RunID)
	}
	if runs[1].Passed() {
		t.Fatalf("expected r2 to be failing")
	}

	recent, err := st.ListRuns(ctx, model.RunFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].RunID != "r2" || recent[1].RunID != "r3" {
		t.Fatalf("expected r2,r3, got %+v", recent)
	}

	since := base.Add(90 * time.Minute)
	later, err := st.ListRuns(ctx, model.RunFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(later) != 1 || later[0].RunID != "r3" {
		t.Fatalf("expected only r3, got %+v", later)
	}

	none, err := st.ListRuns(ctx, model.RunFilter{Source: "other.json"})
	if err != nil {
		t.Fatalf("list by source: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no runs for other source, got %d", len(none))
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	a := testArtifact("dup", time.Now(), gate.Pass)
	if _, err := st.InsertRun(ctx, a, "c.json"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := st.InsertRun(ctx, a, "c.json"); err == nil {
		t.Fatalf("expected duplicate run id to fail")
	}
	runs, err := st.ListRuns(ctx, model.RunFilter{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected rollback to leave 1 run, got %d", len(runs))
	}
}

func TestGetArtifact(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	a := testArtifact("r1", time.Now(), gate.Fail)
	if _, err := st.InsertRun(ctx, a, "c.json"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := st.GetArtifact(ctx, "r1")
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	if got.Overall != gate.Fail || got.SemanticChecks["resample_spacing_respected"] != gate.Fail {
		t.Fatalf("unexpected artifact %+v", got)
	}
	if _, err := st.GetArtifact(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckFailureCounts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	verdicts := []gate.Verdict{gate.Fail, gate.Pass, gate.Fail}
	for i, v := range verdicts {
		id := []string{"a", "b", "c"}[i]
		if _, err := st.InsertRun(ctx, testArtifact(id, base.Add(time.Duration(i)*time.Minute), v), "c.json"); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := st.CheckFailureCounts(ctx, 0)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if len(all) != len(gate.CheckNames()) {
		t.Fatalf("expected %d checks, got %d", len(gate.CheckNames()), len(all))
	}
	byName := map[string]model.CheckAggregate{}
	for _, agg := range all {
		byName[agg.Name] = agg
	}
	spacing := byName["resample_spacing_respected"]
	if spacing.Failures != 2 || spacing.Total != 3 {
		t.Fatalf("expected 2/3 failures, got %+v", spacing)
	}
	if byName["first_speed_is_zero"].Failures != 0 {
		t.Fatalf("expected no first speed failures")
	}

	recent, err := st.CheckFailureCounts(ctx, 2)
	if err != nil {
		t.Fatalf("recent counts: %v", err)
	}
	for _, agg := range recent {
		if agg.Name == "resample_spacing_respected" && (agg.Failures != 1 || agg.Total != 2) {
			t.Fatalf("expected 1/2 failures in window, got %+v", agg)
		}
	}
}

func TestRunsWithinOneSecondKeepTimeOrder(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	newer := time.Date(2026, 1, 2, 3, 4, 5, 123_000_000, time.UTC)
	older := time.Date(2026, 1, 2, 3, 4, 5, 120_000_000, time.UTC)
	if _, err := st.InsertRun(ctx, testArtifact("newer", newer, gate.Fail), "c.json"); err != nil {
		t.Fatalf("insert newer: %v", err)
	}
	if _, err := st.InsertRun(ctx, testArtifact("older", older, gate.Pass), "c.json"); err != nil {
		t.Fatalf("insert older: %v", err)
	}

	last, err := st.ListRuns(ctx, model.RunFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(last) != 1 || last[0].RunID != "newer" {
		t.Fatalf("expected newer run, got %+v", last)
	}
	if !last[0].CreatedAt.Equal(newer) {
		t.Fatalf("expected created at %v, got %v", newer, last[0].CreatedAt)
	}

	since := older.Add(time.Millisecond)
	after, err := st.ListRuns(ctx, model.RunFilter{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(after) != 1 || after[0].RunID != "newer" {
		t.Fatalf("expected only newer run since %v, got %+v", since, after)
	}

	window, err := st.CheckFailureCounts(ctx, 1)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	for _, agg := range window {
		if agg.Name == "resample_spacing_respected" && agg.Failures != 1 {
			t.Fatalf("expected newest run failure in window, got %+v", agg)
		}
	}
}
