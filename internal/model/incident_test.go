package model

import (
	"encoding/json"
	"testing"
)

func TestIncidentEntry_RoundTripPreservesUnknownFields(t *testing.T) {
	raw := `{
		"id": "tx-2025-0610",
		"date": "2025-06-10",
		"city": "Austin",
		"category": "shooting",
		"internal_notes": {"reviewed_by": "jm", "pass": 2},
		"legacy_ref": 4417,
		"sources": [
			{"url": "https://example.com/a", "name": "Example", "trust_tier": 2, "clipping_id": "c-9"}
		]
	}`

	var e IncidentEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if e.ID != "tx-2025-0610" || e.City != "Austin" {
		t.Errorf("known fields not decoded: %+v", e)
	}
	if _, ok := e.Extra["internal_notes"]; !ok {
		t.Error("expected internal_notes preserved in Extra")
	}
	if _, ok := e.Extra["legacy_ref"]; !ok {
		t.Error("expected legacy_ref preserved in Extra")
	}
	if _, ok := e.Extra["id"]; ok {
		t.Error("known field id leaked into Extra")
	}
	if len(e.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(e.Sources))
	}
	if _, ok := e.Sources[0].Extra["clipping_id"]; !ok {
		t.Error("expected clipping_id preserved on citation")
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	for _, key := range []string{"id", "date", "city", "internal_notes", "legacy_ref", "sources"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in marshaled output", key)
		}
	}

	var e2 IncidentEntry
	if err := json.Unmarshal(out, &e2); err != nil {
		t.Fatalf("second unmarshal: %v", err)
	}
	if string(e2.Extra["legacy_ref"]) != "4417" {
		t.Errorf("legacy_ref changed across round-trip: %s", e2.Extra["legacy_ref"])
	}
}

func TestIncidentEntry_RoundTripPreservesExplicitZeroValues(t *testing.T) {
	raw := `{
		"id": "a1",
		"victim_count": 0,
		"sources": [
			{"url": "https://example.com/a", "trust_tier": 0, "archived": false}
		]
	}`

	var e IncidentEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(out, &top); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if string(top["victim_count"]) != "0" {
		t.Errorf("explicit victim_count 0 lost: %s", top["victim_count"])
	}
	// Keys absent from the input stay absent.
	if _, ok := top["city"]; ok {
		t.Error("city should not appear in output")
	}

	var sources []map[string]json.RawMessage
	if err := json.Unmarshal(top["sources"], &sources); err != nil {
		t.Fatalf("re-parse sources: %v", err)
	}
	if string(sources[0]["trust_tier"]) != "0" {
		t.Errorf("explicit trust_tier 0 lost: %s", sources[0]["trust_tier"])
	}
	if string(sources[0]["archived"]) != "false" {
		t.Errorf("explicit archived false lost: %s", sources[0]["archived"])
	}
}

func TestIncidentEntry_ParsedDate(t *testing.T) {
	tests := []struct {
		date string
		ok   bool
	}{
		{"2025-06-10", true},
		{"", false},
		{"June 10, 2025", false},
		{"2025-13-40", false},
	}
	for _, tt := range tests {
		e := IncidentEntry{Date: tt.date}
		if _, ok := e.ParsedDate(); ok != tt.ok {
			t.Errorf("ParsedDate(%q) ok = %v, want %v", tt.date, ok, tt.ok)
		}
	}
}

func TestEntryError_Summary(t *testing.T) {
	err := NewEntryError(KindFetchFailed, "e1", "https://example.com/a", "Timeout", nil)
	if got := err.Summary(); got != "FetchFailed: Timeout" {
		t.Errorf("Summary() = %q", got)
	}
	if got := err.Error(); got != "FetchFailed: Timeout (entry e1, https://example.com/a)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestVerificationResult_Errored(t *testing.T) {
	if (VerificationResult{}).Errored() {
		t.Error("empty result should not be errored")
	}
	if !(VerificationResult{Error: "NotFound: no citations"}).Errored() {
		t.Error("result with error string should be errored")
	}
}
