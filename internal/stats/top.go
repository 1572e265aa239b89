package stats

import (
	"sort"

	"github.com/verte-zerg/penpipe/internal/model"
)

// TopFailingChecks returns up to n checks ordered by failure count, then by
// fail rate, then by name. Checks that never failed are kept at the end.
func TopFailingChecks(aggs []model.CheckAggregate, n int) []model.CheckAggregate {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	ranked := make([]model.CheckAggregate, len(aggs))
	copy(ranked, aggs)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Failures != b.Failures {
			return a.Failures > b.Failures
		}
		if a.FailRate() != b.FailRate() {
			return a.FailRate() > b.FailRate()
		}
		return a.Name < b.Name
	})
	return ranked[:min(n, len(ranked))]
}

// UnstableChecks returns the names of checks whose fail rate reaches
// minRate without failing every time.
func UnstableChecks(aggs []model.CheckAggregate, minRate float64) []string {
	var out []string
	for _, agg := range TopFailingChecks(aggs, len(aggs)) {
		rate := agg.FailRate()
		if agg.Failures > 0 && rate >= minRate && agg.Failures < agg.Total {
			out = append(out, agg.Name)
		}
	}
	return out
}
