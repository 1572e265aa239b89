package model

import "time"

// RunSummary is the stored headline of one gate run.
type RunSummary struct {
	ID               int64
	RunID            string
	CreatedAt        time.Time
	Source           string
	InputHash        string
	BaselineVersion  string
	ThresholdVersion string
	Overall          string
	StageGate        string
	FinalGate        string
	FastGate         string
	CasesPassed      int
	CaseCount        int
	PresetsPassed    int
	PresetCount      int
}

// Passed reports whether the run's overall verdict was a pass.
func (r RunSummary) Passed() bool {
	return r.Overall == "pass"
}

// CheckAggregate counts verdicts of one semantic check across runs.
type CheckAggregate struct {
	Name     string
	Failures int
	Total    int
}

// FailRate returns the failing share of evaluations.
func (c CheckAggregate) FailRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Failures) / float64(c.Total)
}

// RunFilter selects stored runs.
type RunFilter struct {
	Source string
	Since  *time.Time
	// Limit keeps only the most recent runs when positive.
	Limit int
}
