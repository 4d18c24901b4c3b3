package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"citecheck/internal/model"
)

func sampleResults() []model.VerificationResult {
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	return []model.VerificationResult{
		{EntryID: "tx-003", Score: 15, Passed: false, Issues: []string{"city \"Austin\" not mentioned"}, VerifiedAt: at},
		{EntryID: "tx-001", Score: 90, Passed: true, VerifiedAt: at},
		{EntryID: "tx-002", Error: "FetchFailed: Timeout", VerifiedAt: at},
	}
}

func TestBuild_CountsAndOrdering(t *testing.T) {
	unrelated := []model.UnrelatedSource{
		{EntryID: "tx-003", SourceName: "Local Paper", Reason: "mentions the location but no date within 5 days of 2025-06-10"},
		{EntryID: "tx-003", SourceName: "Blog", Reason: "content does not match the incident"},
	}
	r := Build("run-1", sampleResults(), unrelated)

	if r.RunID != "run-1" {
		t.Errorf("RunID = %q", r.RunID)
	}
	if r.Total != 3 || r.Passed != 1 || r.Failed != 1 || r.Errored != 1 {
		t.Errorf("counts = total %d passed %d failed %d errored %d", r.Total, r.Passed, r.Failed, r.Errored)
	}
	for i, want := range []string{"tx-001", "tx-002", "tx-003"} {
		if r.Results[i].EntryID != want {
			t.Errorf("result %d = %s, want %s", i, r.Results[i].EntryID, want)
		}
	}
	// Same entry: sources ordered by name.
	if r.UnrelatedSources[0].SourceName != "Blog" || r.UnrelatedSources[1].SourceName != "Local Paper" {
		t.Errorf("unrelated order = %+v", r.UnrelatedSources)
	}
	if r.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	results := sampleResults()
	first := results[0].EntryID
	Build("run-1", results, nil)
	if results[0].EntryID != first {
		t.Errorf("input reordered: %s", results[0].EntryID)
	}
}

func TestWriteAndReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.json")
	r := Build("run-2", sampleResults(), nil)
	if err := WriteJSON(r, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.RunID != r.RunID || got.Total != r.Total || len(got.Results) != len(r.Results) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Results[1].Error != "FetchFailed: Timeout" {
		t.Errorf("errored entry = %+v", got.Results[1])
	}
}

func TestRenderSummary(t *testing.T) {
	r := Build("run-3", sampleResults(), []model.UnrelatedSource{
		{EntryID: "tx-003", SourceName: "Local Paper", Reason: "mentions the location but no date within 5 days of 2025-06-10"},
	})
	var sb strings.Builder
	RenderSummary(&sb, r)
	out := sb.String()

	for _, want := range []string{
		"Entries:    3",
		"Passed:     1",
		"✓ tx-001  score 90/100",
		"✗ tx-002  error: FetchFailed: Timeout",
		"✗ tx-003  score 15/100",
		"Local Paper",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}
