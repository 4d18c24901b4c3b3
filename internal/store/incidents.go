// Package store reads and writes the incident dataset files. Files hold
// either a bare array of entries or a top-level object with one collection
// key; either way, fields this tool does not understand are preserved
// byte-for-byte on save.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"citecheck/internal/model"
)

// collectionKeys are the top-level object keys recognized as holding the
// entry array, checked in order.
var collectionKeys = []string{"incidents", "deaths", "shootings"}

// Collection is one loaded incident file.
type Collection struct {
	Path    string
	Key     string // "" when the file is a bare array
	Entries []model.IncidentEntry

	siblings map[string]json.RawMessage // other top-level fields, preserved
}

// Load reads an incident file from disk.
func Load(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read incident store: %w", err)
	}
	c := &Collection{Path: path}
	if err := c.decode(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func (c *Collection) decode(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(data, &c.Entries)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	for _, key := range collectionKeys {
		raw, ok := top[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &c.Entries); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		c.Key = key
		delete(top, key)
		c.siblings = top
		return nil
	}
	return fmt.Errorf("no entry collection found (expected one of %v or a bare array)", collectionKeys)
}

// Save writes the collection back to its file atomically, restoring the
// original shape and any preserved sibling fields.
func (c *Collection) Save() error {
	data, err := c.encode()
	if err != nil {
		return fmt.Errorf("encode incident store: %w", err)
	}
	return WriteFileAtomic(c.Path, data, 0o644)
}

func (c *Collection) encode() ([]byte, error) {
	if c.Key == "" {
		return json.MarshalIndent(c.Entries, "", "  ")
	}
	entries, err := json.Marshal(c.Entries)
	if err != nil {
		return nil, err
	}
	top := make(map[string]json.RawMessage, len(c.siblings)+1)
	for k, v := range c.siblings {
		top[k] = v
	}
	top[c.Key] = entries
	return json.MarshalIndent(top, "", "  ")
}

// Filter returns the entries whose ids appear in ids, preserving file order.
// An empty filter returns all entries.
func (c *Collection) Filter(ids []string) []model.IncidentEntry {
	if len(ids) == 0 {
		return c.Entries
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.IncidentEntry
	for _, e := range c.Entries {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the entry with the given id.
func (c *Collection) Find(id string) (model.IncidentEntry, bool) {
	for _, e := range c.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.IncidentEntry{}, false
}

// WriteFileAtomic writes data via a temp file and rename so readers never see
// a partially written file. Callers treat failures here as fatal: silently
// losing state is worse than crashing.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
