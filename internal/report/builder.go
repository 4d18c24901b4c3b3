// Package report reduces verification results into the consolidated report.
package report

import (
	"sort"
	"time"

	"citecheck/internal/model"
)

// Build is a pure reduction: counts plus the raw lists, grouped and ordered
// by entry id. It never mutates its inputs.
func Build(runID string, results []model.VerificationResult, unrelated []model.UnrelatedSource) *model.Report {
	r := &model.Report{
		RunID:            runID,
		GeneratedAt:      time.Now().UTC(),
		Total:            len(results),
		Results:          make([]model.VerificationResult, len(results)),
		UnrelatedSources: make([]model.UnrelatedSource, len(unrelated)),
	}
	copy(r.Results, results)
	copy(r.UnrelatedSources, unrelated)

	sort.Slice(r.Results, func(i, j int) bool { return r.Results[i].EntryID < r.Results[j].EntryID })
	sort.Slice(r.UnrelatedSources, func(i, j int) bool {
		if r.UnrelatedSources[i].EntryID != r.UnrelatedSources[j].EntryID {
			return r.UnrelatedSources[i].EntryID < r.UnrelatedSources[j].EntryID
		}
		return r.UnrelatedSources[i].SourceName < r.UnrelatedSources[j].SourceName
	})

	for _, res := range r.Results {
		switch {
		case res.Errored():
			r.Errored++
		case res.Passed:
			r.Passed++
		default:
			r.Failed++
		}
	}
	return r
}
