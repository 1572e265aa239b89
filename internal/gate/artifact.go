// Package gate replays captured strokes through the pipeline and renders
// versioned pass/fail verdicts.
package gate

import (
	"time"

	"github.com/verte-zerg/penpipe/internal/model"
)

// Artifact is the result record of one gate run. It is built once by Run and
// treated as a fact record afterwards; the JSON keys are a cross-run contract.
type Artifact struct {
	RunMeta            RunMeta            `json:"run_meta"`
	InputHash          string             `json:"input_hash"`
	BaselineVersion    string             `json:"baseline_version"`
	ThresholdVersion   string             `json:"threshold_version"`
	StageMetrics       StageMetrics       `json:"stage_metrics"`
	FinalMetrics       FinalMetrics       `json:"final_metrics"`
	FastWindowsMetrics FastWindowsMetrics `json:"fast_windows_metrics"`
	SemanticChecks     map[string]Verdict `json:"semantic_checks"`
	StageGate          Verdict            `json:"stage_gate"`
	FinalGate          Verdict            `json:"final_gate"`
	FastGate           Verdict            `json:"fast_gate"`
	Overall            Verdict            `json:"overall"`
	BlockingFailures   []string           `json:"blocking_failures"`
	CaseResults        []SubResult        `json:"case_results"`
	PresetResults      []SubResult        `json:"preset_results"`
	Summary            Summary            `json:"summary"`
}

// RunMeta describes when and where a run happened. It is informational and
// never part of any hashed or compared field.
type RunMeta struct {
	ID          string            `json:"id"`
	Timestamp   string            `json:"timestamp"`
	DocVersions map[string]string `json:"doc_versions"`
	Env         RunEnv            `json:"env"`
}

// RunEnv records the reference environment the capture came from.
type RunEnv struct {
	AppVersion  string `json:"app_version"`
	InputDevice string `json:"input_device"`
	OS          string `json:"os"`
}

// SubResult is the per-case or per-preset evaluation, shaped like the
// top-level verdict block.
type SubResult struct {
	Name               string             `json:"name"`
	StageMetrics       StageMetrics       `json:"stage_metrics"`
	FinalMetrics       FinalMetrics       `json:"final_metrics"`
	FastWindowsMetrics FastWindowsMetrics `json:"fast_windows_metrics"`
	SemanticChecks     map[string]Verdict `json:"semantic_checks"`
	StageGate          Verdict            `json:"stage_gate"`
	FinalGate          Verdict            `json:"final_gate"`
	FastGate           Verdict            `json:"fast_gate"`
	Overall            Verdict            `json:"overall"`
	BlockingFailures   []string           `json:"blocking_failures"`
}

// Summary condenses the run for dashboards.
type Summary struct {
	CaseCount     int                 `json:"case_count"`
	CasesPassed   int                 `json:"cases_passed"`
	PresetCount   int                 `json:"preset_count"`
	PresetsPassed int                 `json:"presets_passed"`
	GateReasons   map[string][]string `json:"gate_reasons"`
}

// Passed reports whether the overall verdict is a pass.
func (a Artifact) Passed() bool {
	return a.Overall == Pass
}

// FailedChecks returns the names of failing semantic checks in check order.
func (a Artifact) FailedChecks() []string {
	var out []string
	for _, name := range CheckNames() {
		if v, ok := a.SemanticChecks[name]; ok && v != Pass {
			out = append(out, name)
		}
	}
	return out
}

// Summarize returns the stored headline of the run. A timestamp that does not
// parse leaves CreatedAt zero.
func (a Artifact) Summarize(source string) model.RunSummary {
	created, err := time.Parse(time.RFC3339Nano, a.RunMeta.Timestamp)
	if err != nil {
		created = time.Time{}
	}
	return model.RunSummary{
		RunID:            a.RunMeta.ID,
		CreatedAt:        created,
		Source:           source,
		InputHash:        a.InputHash,
		BaselineVersion:  a.BaselineVersion,
		ThresholdVersion: a.ThresholdVersion,
		Overall:          string(a.Overall),
		StageGate:        string(a.StageGate),
		FinalGate:        string(a.FinalGate),
		FastGate:         string(a.FastGate),
		CasesPassed:      a.Summary.CasesPassed,
		CaseCount:        a.Summary.CaseCount,
		PresetsPassed:    a.Summary.PresetsPassed,
		PresetCount:      a.Summary.PresetCount,
	}
}
