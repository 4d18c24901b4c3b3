package model

import "time"

// SourceVerdict classifies one citation's archived text as describing the
// incident or a different event that merely shares surface keywords.
type SourceVerdict struct {
	SourceName string `json:"source_name"`
	URL        string `json:"url,omitempty"`
	Related    bool   `json:"related"`
	Score      int    `json:"score"`
	Reason     string `json:"reason,omitempty"`
}

// VerificationResult is the outcome of verifying one entry in one run.
// Historical runs may be superseded but never merged.
type VerificationResult struct {
	EntryID    string          `json:"entry_id"`
	Score      int             `json:"score"`
	Passed     bool            `json:"passed"`
	Issues     []string        `json:"issues,omitempty"`
	Error      string          `json:"error,omitempty"` // "Kind: detail", empty on success
	Reasoning  string          `json:"reasoning,omitempty"`
	Sources    []SourceVerdict `json:"sources,omitempty"`
	VerifiedAt time.Time       `json:"verified_at"`
}

// Errored reports whether the result carries an entry-level error. Errored
// results are re-verified on resume rather than skipped.
func (r VerificationResult) Errored() bool {
	return r.Error != ""
}

// UnrelatedSource flags a citation whose content describes a different event,
// for downstream cleanup.
type UnrelatedSource struct {
	EntryID    string `json:"entry_id"`
	SourceName string `json:"source_name"`
	Reason     string `json:"reason"`
}

// Report is the consolidated verification report.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`

	Results          []VerificationResult `json:"results"`
	UnrelatedSources []UnrelatedSource    `json:"unrelated_sources"`
}
