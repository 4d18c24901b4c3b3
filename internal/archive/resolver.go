package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"citecheck/internal/model"
)

// Resolver locates the archived text for a citation. Preference order: the
// citation's recorded archive path, the deterministic per-entry path, then a
// live fetch (persisted for later runs) unless local-only mode is on.
type Resolver struct {
	dir       string
	minLen    int
	localOnly bool
	fetcher   *Fetcher
	cache     *gocache.Cache

	// mu serializes archive-number allocation within an entry directory so
	// concurrent fetches never clobber each other's files.
	mu sync.Mutex
}

// NewResolver builds a resolver over the archive directory tree. fetcher may
// be nil only when localOnly is true.
func NewResolver(cfg model.ArchiveConfig, fetcher *Fetcher) *Resolver {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Resolver{
		dir:       cfg.Dir,
		minLen:    cfg.MinContentLen,
		localOnly: cfg.LocalOnly,
		fetcher:   fetcher,
		cache:     gocache.New(ttl, 2*ttl),
	}
}

// ArticlePath is the deterministic location for an entry's nth article.
func (r *Resolver) ArticlePath(entryID string, seq int) string {
	return filepath.Join(r.dir, entryID, fmt.Sprintf("article_%d.txt", seq))
}

// Resolve returns the archived text for one citation of an entry. seq is the
// citation's 1-based position on the entry.
func (r *Resolver) Resolve(ctx context.Context, entry model.IncidentEntry, seq int, cit model.SourceCitation) (*model.ArchivedText, error) {
	name := cit.Name
	if name == "" {
		name = cit.URL
	}

	// Recorded archive path wins when it still exists.
	if cit.ArchivePath != "" {
		if text, ok := r.readLocal(cit.ArchivePath); ok {
			return &model.ArchivedText{
				EntryID: entry.ID, Seq: seq, URL: cit.URL, SourceName: name,
				Text: text, Path: cit.ArchivePath,
			}, nil
		}
	}

	path := r.ArticlePath(entry.ID, seq)
	if text, ok := r.readLocal(path); ok {
		return &model.ArchivedText{
			EntryID: entry.ID, Seq: seq, URL: cit.URL, SourceName: name,
			Text: text, Path: path,
		}, nil
	}

	if r.localOnly || r.fetcher == nil {
		return nil, model.NewEntryError(model.KindNotFound, entry.ID, cit.URL,
			fmt.Sprintf("no local archive for source %d", seq), nil)
	}
	if cit.URL == "" {
		return nil, model.NewEntryError(model.KindNotFound, entry.ID, "",
			fmt.Sprintf("source %d has no URL to fetch", seq), nil)
	}

	// Within a run, one URL is fetched at most once.
	if cached, ok := r.cache.Get(cit.URL); ok {
		at := cached.(*model.ArchivedText)
		return &model.ArchivedText{
			EntryID: entry.ID, Seq: seq, URL: cit.URL, SourceName: name,
			Text: at.Text, Path: at.Path, FetchedAt: at.FetchedAt,
		}, nil
	}

	text, err := r.fetcher.FetchText(ctx, cit.URL)
	if err != nil {
		detail := "request failed"
		if fe, ok := err.(*FetchError); ok {
			detail = fe.Detail
		}
		return nil, model.NewEntryError(model.KindFetchFailed, entry.ID, cit.URL, detail, err)
	}

	now := time.Now().UTC()
	at := &model.ArchivedText{
		EntryID: entry.ID, Seq: seq, URL: cit.URL, SourceName: name,
		Text: text, FetchedAt: &now,
	}
	if path, perr := r.persist(entry.ID, text); perr == nil {
		at.Path = path
	}
	r.cache.Set(cit.URL, at, gocache.DefaultExpiration)
	return at, nil
}

// ResolveAll resolves every citation on an entry. When at least one text
// resolves, resolution errors for the others are returned as non-fatal
// issues. When nothing resolves, the error reflects the most specific
// failure: a fetch failure if any fetch was attempted, NotFound otherwise.
func (r *Resolver) ResolveAll(ctx context.Context, entry model.IncidentEntry) ([]model.ArchivedText, []string, error) {
	if len(entry.Sources) == 0 {
		return nil, nil, model.NewEntryError(model.KindNotFound, entry.ID, "", "entry has no citations", nil)
	}

	var (
		texts      []model.ArchivedText
		issues     []string
		firstErr   *model.EntryError
		fetchError *model.EntryError
	)
	for i, cit := range entry.Sources {
		at, err := r.Resolve(ctx, entry, i+1, cit)
		if err != nil {
			ee, _ := model.AsEntryError(err)
			if firstErr == nil {
				firstErr = ee
			}
			if ee.Kind == model.KindFetchFailed && fetchError == nil {
				fetchError = ee
			}
			issues = append(issues, ee.Summary())
			continue
		}
		texts = append(texts, *at)
	}

	if len(texts) == 0 {
		if fetchError != nil {
			return nil, issues, fetchError
		}
		return nil, issues, firstErr
	}
	return texts, issues, nil
}

// readLocal reads an archive file, rejecting content below the reliability
// threshold the same way a short fetch is rejected.
func (r *Resolver) readLocal(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(string(data))
	if len(text) < r.minLen {
		return "", false
	}
	return text, true
}

// persist stores fetched text at the next free article number so later runs
// resolve it locally.
func (r *Resolver) persist(entryID, text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seq := r.nextSeq(entryID)
	path := r.ArticlePath(entryID, seq)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// nextSeq returns one past the highest existing article number for an entry.
func (r *Resolver) nextSeq(entryID string) int {
	entries, err := os.ReadDir(filepath.Join(r.dir, entryID))
	if err != nil {
		return 1
	}
	max := 0
	for _, de := range entries {
		name := de.Name()
		if !strings.HasPrefix(name, "article_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "article_"), ".txt"))
		if err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// ListLocal returns the entry's archived texts already on disk, in sequence
// order, without any fetching.
func (r *Resolver) ListLocal(entryID string) []model.ArchivedText {
	dir := filepath.Join(r.dir, entryID)
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var texts []model.ArchivedText
	for _, de := range des {
		name := de.Name()
		if !strings.HasPrefix(name, "article_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		seq, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "article_"), ".txt"))
		if err != nil {
			continue
		}
		path := filepath.Join(dir, name)
		if text, ok := r.readLocal(path); ok {
			texts = append(texts, model.ArchivedText{EntryID: entryID, Seq: seq, Text: text, Path: path})
		}
	}
	sort.Slice(texts, func(i, j int) bool { return texts[i].Seq < texts[j].Seq })
	return texts
}
