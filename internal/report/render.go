package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"citecheck/internal/model"
	"citecheck/internal/store"
)

// WriteJSON persists the report atomically. Failures are fatal to the run.
func WriteJSON(r *model.Report, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := store.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadJSON loads a previously written report.
func ReadJSON(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

// RenderSummary prints the human-readable digest.
func RenderSummary(w io.Writer, r *model.Report) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Verification Summary\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Entries:    %d\n", r.Total)
	fmt.Fprintf(w, "  Passed:     %d\n", r.Passed)
	fmt.Fprintf(w, "  Failed:     %d\n", r.Failed)
	fmt.Fprintf(w, "  Errored:    %d\n", r.Errored)
	fmt.Fprintf(w, "  Unrelated:  %d flagged sources\n", len(r.UnrelatedSources))
	fmt.Fprintf(w, "\n")

	for _, res := range r.Results {
		switch {
		case res.Errored():
			fmt.Fprintf(w, "  ✗ %s  error: %s\n", res.EntryID, res.Error)
		case res.Passed:
			fmt.Fprintf(w, "  ✓ %s  score %d/100\n", res.EntryID, res.Score)
		default:
			fmt.Fprintf(w, "  ✗ %s  score %d/100", res.EntryID, res.Score)
			if len(res.Issues) > 0 {
				fmt.Fprintf(w, "  (%s)", res.Issues[0])
			}
			fmt.Fprintf(w, "\n")
		}
	}

	if len(r.UnrelatedSources) > 0 {
		fmt.Fprintf(w, "\n  Flagged unrelated sources:\n")
		for _, us := range r.UnrelatedSources {
			fmt.Fprintf(w, "    %s: %s (%s)\n", us.EntryID, us.SourceName, us.Reason)
		}
	}
	fmt.Fprintf(w, "\n")
}
