// Package match scores how well archived source text supports an incident
// entry. Scoring is pure string heuristics over weighted components and is
// fully deterministic for a given (entry, text) pair.
package match

import (
	"fmt"
	"strings"
	"time"

	"citecheck/internal/model"
)

// Component weights. The score is normalized against the components the
// entry actually carries, so sparse entries are not penalized for fields
// they never had.
const (
	weightName      = 25
	weightDateExact = 35
	weightDateNear  = 20
	weightCity      = 10
	weightState     = 5
	weightCategory  = 20
	weightAgency    = 5
)

// Matcher verifies entries against archived texts.
type Matcher struct {
	threshold     int
	toleranceDays int
}

// NewMatcher builds a matcher from config.
func NewMatcher(cfg model.MatchingConfig) *Matcher {
	threshold := cfg.PassThreshold
	if threshold <= 0 {
		threshold = 60
	}
	tolerance := cfg.DateToleranceDays
	if tolerance <= 0 {
		tolerance = 5
	}
	return &Matcher{threshold: threshold, toleranceDays: tolerance}
}

// Threshold returns the configured pass threshold.
func (m *Matcher) Threshold() int { return m.threshold }

// textMatch is the per-text evaluation.
type textMatch struct {
	score     int
	related   bool
	dateExact bool
	dateNear  bool
	nameHit   bool
	cityHit   bool
	stateHit  bool
	catHits   int
	agencyHit bool
	reason    string
}

func (t textMatch) dateHit() bool { return t.dateExact || t.dateNear }

// Verify scores an entry against its archived texts and classifies each text
// as related or unrelated to the specific incident. It does not persist
// anything. A ScoringError is returned when the entry lacks the fields
// scoring requires.
func (m *Matcher) Verify(entry model.IncidentEntry, texts []model.ArchivedText) (model.VerificationResult, error) {
	if entry.Date == "" && entry.City == "" && entry.State == "" {
		return model.VerificationResult{}, model.NewEntryError(model.KindScoringError, entry.ID, "",
			"entry has neither date nor location", nil)
	}
	var incidentDate time.Time
	hasDate := false
	if entry.Date != "" {
		var ok bool
		incidentDate, ok = entry.ParsedDate()
		if !ok {
			return model.VerificationResult{}, model.NewEntryError(model.KindScoringError, entry.ID, "",
				fmt.Sprintf("malformed date %q", entry.Date), nil)
		}
		hasDate = true
	}

	possible := m.possibleScore(entry, hasDate)

	result := model.VerificationResult{EntryID: entry.ID}
	best := -1
	bestRelated := -1
	matches := make([]textMatch, len(texts))
	for i, at := range texts {
		tm := m.evaluate(entry, hasDate, incidentDate, possible, at.Text)
		matches[i] = tm

		name := at.SourceName
		if name == "" || name == at.URL {
			name = SourceDisplayName(at.URL)
		}
		result.Sources = append(result.Sources, model.SourceVerdict{
			SourceName: name,
			URL:        at.URL,
			Related:    tm.related,
			Score:      tm.score,
			Reason:     tm.reason,
		})

		if best < 0 || tm.score > matches[best].score {
			best = i
		}
		if tm.related && (bestRelated < 0 || tm.score > matches[bestRelated].score) {
			bestRelated = i
		}
	}

	if best < 0 {
		return model.VerificationResult{}, model.NewEntryError(model.KindScoringError, entry.ID, "",
			"no archived text to score", nil)
	}

	// An unrelated source never carries an entry: the entry's score and
	// verdict come from the best related source when one exists.
	chosen := best
	if bestRelated >= 0 {
		chosen = bestRelated
	}
	cm := matches[chosen]

	result.Score = cm.score
	dateOK := !hasDate || cm.dateHit()
	result.Passed = bestRelated >= 0 && cm.score >= m.threshold && dateOK
	result.Issues = m.issues(entry, hasDate, cm)
	result.Reasoning = m.reasoning(texts[chosen], cm, bestRelated >= 0)
	return result, nil
}

func (m *Matcher) possibleScore(entry model.IncidentEntry, hasDate bool) int {
	possible := 0
	if entry.VictimName != "" {
		possible += weightName
	}
	if hasDate {
		possible += weightDateExact
	}
	if entry.City != "" {
		possible += weightCity
	}
	if entry.State != "" {
		possible += weightState
	}
	if entry.Category != "" {
		possible += weightCategory
	}
	if entry.Agency != "" {
		possible += weightAgency
	}
	return possible
}

func (m *Matcher) evaluate(entry model.IncidentEntry, hasDate bool, incidentDate time.Time, possible int, text string) textMatch {
	lower := strings.ToLower(text)
	var tm textMatch
	achieved := 0

	if entry.VictimName != "" && strings.Contains(lower, strings.ToLower(entry.VictimName)) {
		tm.nameHit = true
		achieved += weightName
	}
	if hasDate {
		tm.dateExact, tm.dateNear = m.dateProximity(lower, incidentDate)
		if tm.dateExact {
			achieved += weightDateExact
		} else if tm.dateNear {
			achieved += weightDateNear
		}
	}
	if entry.City != "" && strings.Contains(lower, strings.ToLower(entry.City)) {
		tm.cityHit = true
		achieved += weightCity
	}
	if entry.State != "" && strings.Contains(lower, strings.ToLower(entry.State)) {
		tm.stateHit = true
		achieved += weightState
	}
	if entry.Category != "" {
		for _, kw := range CategoryKeywords(entry.Category) {
			if strings.Contains(lower, kw) {
				tm.catHits++
			}
		}
		switch {
		case tm.catHits >= 2:
			achieved += weightCategory
		case tm.catHits == 1:
			achieved += weightCategory - 5
		}
	}
	if entry.Agency != "" && strings.Contains(lower, strings.ToLower(entry.Agency)) {
		tm.agencyHit = true
		achieved += weightAgency
	}

	if possible > 0 {
		tm.score = achieved * 100 / possible
	}
	if tm.score > 100 {
		tm.score = 100
	}

	tm.related, tm.reason = m.classify(entry, hasDate, incidentDate, possible, tm)
	return tm
}

// classify decides related vs unrelated. An unrelated source is one whose
// content shares surface keywords (typically the city) without the incident's
// date, victim, or category specifics.
func (m *Matcher) classify(entry model.IncidentEntry, hasDate bool, incidentDate time.Time, possible int, tm textMatch) (bool, string) {
	specific := tm.catHits > 0 || tm.cityHit || tm.stateHit || tm.agencyHit
	switch {
	case tm.nameHit:
		return true, "mentions the victim by name"
	case tm.dateHit() && specific:
		return true, "matches the incident date and incident-specific keywords"
	case tm.dateHit() && possible == weightDateExact:
		return true, "matches the incident date"
	case !hasDate && specific && tm.catHits > 0:
		// No date to anchor on: location plus category vocabulary is the
		// strongest signal available.
		return true, "matches location and incident-type keywords"
	case tm.cityHit || tm.stateHit:
		if hasDate {
			return false, fmt.Sprintf("mentions the location but no date within %d days of %s",
				m.toleranceDays, incidentDate.Format("2006-01-02"))
		}
		return false, "mentions the location but none of the incident specifics"
	default:
		return false, "content does not match the incident"
	}
}

// dateProximity reports whether the text mentions the incident date itself
// (exact) or a date within the tolerance window (near). Matching is by
// rendered date strings, not free-text date parsing.
func (m *Matcher) dateProximity(lowerText string, incidentDate time.Time) (exact, near bool) {
	for offset := -m.toleranceDays; offset <= m.toleranceDays; offset++ {
		day := incidentDate.AddDate(0, 0, offset)
		if !containsDate(lowerText, day) {
			continue
		}
		if offset == 0 {
			exact = true
		} else {
			near = true
		}
	}
	return exact, near
}

// containsDate looks for common renderings of a specific day.
func containsDate(lowerText string, day time.Time) bool {
	renderings := []string{
		day.Format("2006-01-02"),
		strings.ToLower(day.Format("January 2, 2006")),
		strings.ToLower(day.Format("Jan 2, 2006")),
		strings.ToLower(day.Format("January 2")),
		strings.ToLower(day.Format("2 January 2006")),
	}
	for _, r := range renderings {
		if strings.Contains(lowerText, r) {
			return true
		}
	}
	return false
}

// issues renders human-readable notes about what the chosen source is
// missing. Non-fatal: attached for manual review.
func (m *Matcher) issues(entry model.IncidentEntry, hasDate bool, tm textMatch) []string {
	var issues []string
	if entry.VictimName != "" && !tm.nameHit {
		issues = append(issues, fmt.Sprintf("victim name %q not found in source text", entry.VictimName))
	}
	if hasDate && !tm.dateHit() {
		issues = append(issues, fmt.Sprintf("no date within %d days of %s found", m.toleranceDays, entry.Date))
	}
	if entry.City != "" && !tm.cityHit {
		issues = append(issues, fmt.Sprintf("city %q not mentioned", entry.City))
	}
	if entry.State != "" && !tm.stateHit {
		issues = append(issues, fmt.Sprintf("state %q not mentioned", entry.State))
	}
	if entry.Category != "" && tm.catHits == 0 {
		issues = append(issues, fmt.Sprintf("no %q vocabulary found", entry.Category))
	}
	if entry.Agency != "" && !tm.agencyHit {
		issues = append(issues, fmt.Sprintf("agency %q not mentioned", entry.Agency))
	}
	return issues
}

func (m *Matcher) reasoning(at model.ArchivedText, tm textMatch, anyRelated bool) string {
	name := at.SourceName
	if name == "" || name == at.URL {
		name = SourceDisplayName(at.URL)
	}
	if name == "" {
		name = fmt.Sprintf("article %d", at.Seq)
	}
	if !anyRelated {
		return fmt.Sprintf("no related source found; best candidate %s scored %d/100 (%s)", name, tm.score, tm.reason)
	}
	return fmt.Sprintf("best source %s scored %d/100: %s", name, tm.score, tm.reason)
}
