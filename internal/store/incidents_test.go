package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_BareArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "incidents.json",
		`[{"id": "a1", "date": "2025-06-10"}, {"id": "a2"}]`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Key != "" {
		t.Errorf("expected bare array, got key %q", c.Key)
	}
	if len(c.Entries) != 2 || c.Entries[0].ID != "a1" {
		t.Errorf("unexpected entries: %+v", c.Entries)
	}
}

func TestLoad_KeyedObjectPreservesSiblings(t *testing.T) {
	path := writeFile(t, t.TempDir(), "deaths.json",
		`{"updated": "2025-08-01", "deaths": [{"id": "d1"}], "source_note": "manual"}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Key != "deaths" {
		t.Errorf("Key = %q, want deaths", c.Key)
	}

	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	for _, key := range []string{"updated", "deaths", "source_note"} {
		if _, ok := top[key]; !ok {
			t.Errorf("key %q lost in round-trip", key)
		}
	}
}

func TestSave_PreservesExplicitZeroValues(t *testing.T) {
	path := writeFile(t, t.TempDir(), "incidents.json",
		`[{"id": "a1", "victim_count": 0, "sources": [{"url": "https://example.com/a", "trust_tier": 0, "archived": false}]}]`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if string(entries[0]["victim_count"]) != "0" {
		t.Errorf("victim_count dropped on save: %s", data)
	}
	var sources []map[string]json.RawMessage
	if err := json.Unmarshal(entries[0]["sources"], &sources); err != nil {
		t.Fatalf("re-parse sources: %v", err)
	}
	if string(sources[0]["trust_tier"]) != "0" || string(sources[0]["archived"]) != "false" {
		t.Errorf("zero-valued citation fields dropped on save: %s", entries[0]["sources"])
	}
}

func TestLoad_UnknownShape(t *testing.T) {
	path := writeFile(t, t.TempDir(), "odd.json", `{"rows": []}`)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unrecognized collection key")
	}
}

func TestCollection_Filter(t *testing.T) {
	path := writeFile(t, t.TempDir(), "incidents.json",
		`[{"id": "a1"}, {"id": "a2"}, {"id": "a3"}]`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	got := c.Filter([]string{"a3", "a1", "missing"})
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a3" {
		t.Errorf("Filter returned %+v", got)
	}
	if all := c.Filter(nil); len(all) != 3 {
		t.Errorf("empty filter should return all, got %d", len(all))
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q", data)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
