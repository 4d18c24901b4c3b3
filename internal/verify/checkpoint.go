package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"citecheck/internal/model"
	"citecheck/internal/store"
)

// Checkpoint is the persisted entry id -> last result mapping that makes runs
// resumable. One run owns the checkpoint file for its duration (advisory
// single-writer discipline); saves replace the file atomically so readers
// never see a partial write. Deleting the file forces a full re-run.
type Checkpoint struct {
	path string

	RunID     string                               `json:"run_id,omitempty"`
	UpdatedAt time.Time                            `json:"updated_at"`
	Results   map[string]model.VerificationResult `json:"results"`
}

// LoadCheckpoint reads the checkpoint at path; a missing file yields an empty
// checkpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{
		path:    path,
		Results: make(map[string]model.VerificationResult),
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	if cp.Results == nil {
		cp.Results = make(map[string]model.VerificationResult)
	}
	return cp, nil
}

// Save persists the checkpoint atomically. A save failure is fatal to the
// run: losing verification state silently is unacceptable.
func (c *Checkpoint) Save() error {
	c.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := store.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	return nil
}

// Merge overwrites the checkpoint's copy of each result. Append/overwrite
// only; nothing is ever removed.
func (c *Checkpoint) Merge(results []model.VerificationResult) {
	for _, r := range results {
		c.Results[r.EntryID] = r
	}
}

// Done reports whether the entry already has a usable (non-error) result.
// Errored entries are re-verified on resume.
func (c *Checkpoint) Done(entryID string) bool {
	r, ok := c.Results[entryID]
	return ok && !r.Errored()
}
