package model

import (
	"encoding/json"
	"time"
)

// IncidentEntry is one recorded event in the dataset. Fields other than ID
// may be corrected by later cleanup passes; ID is immutable once assigned.
type IncidentEntry struct {
	ID          string           `json:"id"`
	Date        string           `json:"date,omitempty"` // YYYY-MM-DD
	City        string           `json:"city,omitempty"`
	State       string           `json:"state,omitempty"`
	Category    string           `json:"category,omitempty"`
	Agency      string           `json:"agency,omitempty"`
	VictimName  string           `json:"victim_name,omitempty"`
	VictimCount int              `json:"victim_count,omitempty"`
	Outcome     string           `json:"outcome,omitempty"`
	Scale       string           `json:"scale,omitempty"`
	Sources     []SourceCitation `json:"sources,omitempty"`

	// Extra holds fields this tool does not interpret. They survive a
	// load/save round-trip untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

// SourceCitation is a reference supporting an entry. The first citation on an
// entry is considered primary.
type SourceCitation struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	TrustTier   int    `json:"trust_tier,omitempty"`
	Archived    bool   `json:"archived,omitempty"`
	ArchivePath string `json:"archive_path,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// ParsedDate returns the entry date, or ok=false when absent or malformed.
func (e *IncidentEntry) ParsedDate() (time.Time, bool) {
	if e.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UnmarshalJSON decodes the known fields and stashes everything else in Extra.
func (e *IncidentEntry) UnmarshalJSON(data []byte) error {
	type alias IncidentEntry
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = IncidentEntry(a)

	extra, err := extraFields(data, alias(a))
	if err != nil {
		return err
	}
	e.Extra = extra
	return nil
}

// MarshalJSON re-emits the known fields merged with Extra.
func (e IncidentEntry) MarshalJSON() ([]byte, error) {
	type alias IncidentEntry
	known, err := json.Marshal(alias(e))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, e.Extra)
}

func (c *SourceCitation) UnmarshalJSON(data []byte) error {
	type alias SourceCitation
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = SourceCitation(a)

	extra, err := extraFields(data, alias(a))
	if err != nil {
		return err
	}
	c.Extra = extra
	return nil
}

func (c SourceCitation) MarshalJSON() ([]byte, error) {
	type alias SourceCitation
	known, err := json.Marshal(alias(c))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, c.Extra)
}

// extraFields returns the input's fields that re-marshaling decoded would
// drop: unknown keys, and known keys whose value is the zero value omitempty
// elides (an explicit "victim_count": 0 or "archived": false must survive a
// load/save round-trip).
func extraFields(data []byte, decoded any) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	emitted, err := json.Marshal(decoded)
	if err != nil {
		return nil, err
	}
	var kept map[string]json.RawMessage
	if err := json.Unmarshal(emitted, &kept); err != nil {
		return nil, err
	}
	for k := range kept {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// mergeExtra folds preserved unknown fields back into a marshaled object.
func mergeExtra(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// ArchivedText is the resolved plain-text content for a citation.
type ArchivedText struct {
	EntryID    string     `json:"entry_id"`
	Seq        int        `json:"seq"` // 1-based article number within the entry's archive dir
	URL        string     `json:"url,omitempty"`
	SourceName string     `json:"source_name,omitempty"`
	Text       string     `json:"-"`
	Path       string     `json:"path,omitempty"`       // set when read from or persisted to disk
	FetchedAt  *time.Time `json:"fetched_at,omitempty"` // set only for live fetches
}
