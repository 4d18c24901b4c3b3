// Package verify drives batched, checkpointed verification runs over the
// incident dataset.
package verify

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"citecheck/internal/archive"
	"citecheck/internal/match"
	"citecheck/internal/model"
	"citecheck/internal/oracle"
	"citecheck/internal/worker"
)

// Options are the per-invocation switches, as opposed to the Config carried
// for the run's lifetime.
type Options struct {
	// IDs restricts the run to an explicit entry subset; empty means all.
	IDs []string
	// Force re-verifies entries even when the checkpoint already has a good
	// result for them.
	Force bool
}

// Outcome is what a run produces for downstream reporting.
type Outcome struct {
	RunID            string
	Results          []model.VerificationResult
	UnrelatedSources []model.UnrelatedSource
	Verified         int // entries actually processed this run
	Skipped          int // entries satisfied from the checkpoint
}

// Verifier runs entries through resolve -> match -> (optional) oracle in
// fixed-size batches. Entries within a batch run concurrently on a bounded
// pool; batches run sequentially so the checkpoint persists between them and
// an interruption loses at most one batch of work.
type Verifier struct {
	cfg      *model.Config
	resolver *archive.Resolver
	matcher  *match.Matcher
	oracle   oracle.Provider
	progress io.Writer

	// now is injectable so result timestamps are stable in tests.
	now func() time.Time
}

// New wires a verifier from config. progress receives human-readable run
// output (typically stderr); pass nil to silence it.
func New(cfg *model.Config, progress io.Writer) (*Verifier, error) {
	limiter := worker.NewDomainLimiter(cfg.RateLimit.DomainDelay, cfg.RateLimit.Burst)

	var fetcher *archive.Fetcher
	if !cfg.Archive.LocalOnly {
		fetcher = archive.NewFetcher(cfg.HTTP, cfg.Archive.MinContentLen, limiter)
	}

	judge, err := oracle.NewProvider(cfg.Oracle)
	if err != nil {
		return nil, fmt.Errorf("configure oracle: %w", err)
	}

	return &Verifier{
		cfg:      cfg,
		resolver: archive.NewResolver(cfg.Archive, fetcher),
		matcher:  match.NewMatcher(cfg.Matching),
		oracle:   judge,
		progress: progress,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run verifies the entries, merging results into cp after every batch. The
// returned outcome covers the whole requested set, including entries
// satisfied from the checkpoint. Entry-level failures never abort the run;
// checkpoint persistence failures do.
func (v *Verifier) Run(ctx context.Context, entries []model.IncidentEntry, cp *Checkpoint, opts Options) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	if cp.RunID == "" {
		cp.RunID = out.RunID
	}

	selected := selectEntries(entries, opts.IDs)

	var pending []model.IncidentEntry
	for _, e := range selected {
		if !opts.Force && cp.Done(e.ID) {
			out.Skipped++
			continue
		}
		pending = append(pending, e)
	}
	v.logf("verifying %d entries (%d already checkpointed)", len(pending), out.Skipped)

	batchSize := v.cfg.Batch.Size
	if batchSize <= 0 {
		batchSize = 10
	}
	for start := 0; start < len(pending); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		pool := worker.NewPool[model.VerificationResult](ctx, v.cfg.Batch.Workers)
		for _, entry := range batch {
			entry := entry
			pool.Submit(func(ctx context.Context) model.VerificationResult {
				return v.verifyEntry(ctx, entry)
			})
		}
		results := pool.Wait()

		cp.Merge(results)
		if err := cp.Save(); err != nil {
			return nil, err
		}
		out.Verified += len(results)
		v.logf("batch %d/%d checkpointed (%d entries)",
			start/batchSize+1, (len(pending)+batchSize-1)/batchSize, len(results))
	}

	// Final view: every selected entry's latest result, ordered by entry id.
	for _, e := range selected {
		r, ok := cp.Results[e.ID]
		if !ok {
			continue // cancelled mid-run before this entry's batch
		}
		out.Results = append(out.Results, r)
		for _, sv := range r.Sources {
			if !sv.Related {
				out.UnrelatedSources = append(out.UnrelatedSources, model.UnrelatedSource{
					EntryID:    r.EntryID,
					SourceName: sv.SourceName,
					Reason:     sv.Reason,
				})
			}
		}
	}
	sortResults(out.Results)
	sortUnrelated(out.UnrelatedSources)
	return out, nil
}

// verifyEntry produces exactly one result, converting every failure into an
// entry-level error on that result.
func (v *Verifier) verifyEntry(ctx context.Context, entry model.IncidentEntry) model.VerificationResult {
	texts, resolveIssues, err := v.resolver.ResolveAll(ctx, entry)
	if err != nil {
		return v.errorResult(entry, resolveIssues, err)
	}

	result, err := v.matcher.Verify(entry, texts)
	if err != nil {
		return v.errorResult(entry, resolveIssues, err)
	}
	result.Issues = append(result.Issues, resolveIssues...)
	result.VerifiedAt = v.now()

	if v.oracle != nil && v.escalate(result) {
		if oerr := v.consultOracle(ctx, entry, texts, &result); oerr != nil {
			ee, _ := model.AsEntryError(oerr)
			result.Error = ee.Summary()
			result.Passed = false
		}
	}
	return result
}

// escalate decides whether a heuristic verdict is borderline enough to spend
// an oracle call on.
func (v *Verifier) escalate(r model.VerificationResult) bool {
	threshold := v.matcher.Threshold()
	low := threshold - v.cfg.Oracle.EscalationBelow
	high := threshold + v.cfg.Oracle.EscalationAbove
	return r.Score >= low && r.Score < high
}

// consultOracle asks the oracle about the entry's strongest source and folds
// the verdict into the result.
func (v *Verifier) consultOracle(ctx context.Context, entry model.IncidentEntry, texts []model.ArchivedText, result *model.VerificationResult) error {
	best := 0
	for i := range result.Sources {
		if result.Sources[i].Score > result.Sources[best].Score {
			best = i
		}
	}
	req := oracle.Request{
		Entry:      entry,
		SourceName: result.Sources[best].SourceName,
		Text:       texts[best].Text,
		MaxTokens:  v.cfg.Oracle.MaxTokens,
	}

	judgment, err := v.oracle.Judge(ctx, req)
	if err != nil {
		// texts is the resolved subset, so index it rather than entry.Sources.
		return model.NewEntryError(model.KindOracleError, entry.ID, texts[best].URL, err.Error(), err)
	}

	switch judgment.Relation {
	case oracle.RelationRelated:
		// A related verdict rescues a near-miss, but never overrides a
		// failed date-proximity check.
		if !result.Passed && result.Score >= v.matcher.Threshold()-v.cfg.Oracle.EscalationBelow {
			dateOK := !hasIssuePrefix(result.Issues, "no date within")
			result.Passed = dateOK
		}
		result.Sources[best].Related = true
	case oracle.RelationUnrelated:
		result.Passed = false
		result.Sources[best].Related = false
		result.Sources[best].Reason = judgment.Reasoning
	case oracle.RelationUncertain:
		// Heuristic verdict stands.
	}
	result.Reasoning = fmt.Sprintf("%s; oracle (%s): %s [%s, confidence %.2f]",
		result.Reasoning, v.oracle.Name(), judgment.Reasoning, judgment.Relation, judgment.Confidence)
	return nil
}

func (v *Verifier) errorResult(entry model.IncidentEntry, issues []string, err error) model.VerificationResult {
	result := model.VerificationResult{
		EntryID:    entry.ID,
		Passed:     false,
		Issues:     issues,
		VerifiedAt: v.now(),
	}
	if ee, ok := model.AsEntryError(err); ok {
		result.Error = ee.Summary()
	} else {
		result.Error = err.Error()
	}
	return result
}

func (v *Verifier) logf(format string, args ...any) {
	if v.progress != nil {
		fmt.Fprintf(v.progress, format+"\n", args...)
	}
}

func selectEntries(entries []model.IncidentEntry, ids []string) []model.IncidentEntry {
	if len(ids) == 0 {
		return entries
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.IncidentEntry
	for _, e := range entries {
		if want[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

func sortResults(results []model.VerificationResult) {
	sort.Slice(results, func(i, j int) bool { return results[i].EntryID < results[j].EntryID })
}

func sortUnrelated(us []model.UnrelatedSource) {
	sort.Slice(us, func(i, j int) bool {
		if us[i].EntryID != us[j].EntryID {
			return us[i].EntryID < us[j].EntryID
		}
		return us[i].SourceName < us[j].SourceName
	})
}

func hasIssuePrefix(issues []string, prefix string) bool {
	for _, is := range issues {
		if len(is) >= len(prefix) && is[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
