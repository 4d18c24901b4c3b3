// Package oracle is the optional external judgment layer: when the heuristic
// matcher lands in the borderline band, an LLM is asked whether the archived
// text actually describes the specific incident. Oracle output feeds pass/fail
// for the escalated entry only; it never adjusts scores.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"citecheck/internal/model"
)

// Relation values a judgment may carry.
const (
	RelationRelated   = "related"
	RelationUnrelated = "unrelated"
	RelationUncertain = "uncertain"
)

// Judgment is the oracle's parsed verdict on one (entry, text) pair.
type Judgment struct {
	Relation   string  `json:"relation"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Request is the input for one judgment call.
type Request struct {
	Entry      model.IncidentEntry
	SourceName string
	Text       string
	MaxTokens  int
}

// Provider is one LLM backend capable of judging requests.
type Provider interface {
	Name() string
	Judge(ctx context.Context, req Request) (*Judgment, error)
}

const systemPrompt = `You judge whether a news article describes a specific documented incident. You never judge whether the incident itself was justified or lawful; only whether this text is about this incident.`

// maxTextChars bounds how much article text goes into the prompt.
const maxTextChars = 6000

// BuildPrompt renders the judgment prompt. The model must answer with a bare
// JSON object so the reply parses without heuristics.
func BuildPrompt(req Request) string {
	e := req.Entry
	var sb strings.Builder
	sb.WriteString("Incident record:\n")
	writeField(&sb, "id", e.ID)
	writeField(&sb, "date", e.Date)
	writeField(&sb, "city", e.City)
	writeField(&sb, "state", e.State)
	writeField(&sb, "category", e.Category)
	writeField(&sb, "agency", e.Agency)
	writeField(&sb, "victim", e.VictimName)
	writeField(&sb, "outcome", e.Outcome)

	text := req.Text
	if len(text) > maxTextChars {
		text = text[:maxTextChars] + "\n[truncated]"
	}
	fmt.Fprintf(&sb, "\nSource (%s):\n%s\n", req.SourceName, text)

	sb.WriteString(`
Does this source describe the specific incident above, as opposed to a different event that merely shares a location or topic?

Respond with only a JSON object, no other text:
{
  "relation": "related|unrelated|uncertain",
  "confidence": 0.0-1.0,
  "reasoning": "one or two sentences"
}`)
	return sb.String()
}

func writeField(sb *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(sb, "- %s: %s\n", name, value)
	}
}

// ParseJudgment extracts the JSON verdict from a raw model reply, tolerating
// code fences and surrounding prose.
func ParseJudgment(raw string) (*Judgment, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in oracle reply: %q", truncate(raw, 120))
	}

	var j Judgment
	if err := json.Unmarshal([]byte(raw[start:end+1]), &j); err != nil {
		return nil, fmt.Errorf("parse oracle reply: %w", err)
	}

	j.Relation = strings.ToLower(strings.TrimSpace(j.Relation))
	switch j.Relation {
	case RelationRelated, RelationUnrelated, RelationUncertain:
	default:
		return nil, fmt.Errorf("oracle returned unknown relation %q", j.Relation)
	}
	if j.Confidence < 0 || j.Confidence > 1 {
		return nil, fmt.Errorf("oracle confidence %v out of range", j.Confidence)
	}
	return &j, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
