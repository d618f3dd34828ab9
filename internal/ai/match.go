package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/david/grantai/internal/models"
)

// MaxMatchBatch caps how many opportunities go into one scoring prompt.
const MaxMatchBatch = 15

const matchSystemPrompt = `You are an expert grant matching AI. Given a business profile and list of opportunities, analyze each opportunity and return eligibility scores.

Return ONLY a valid JSON array (no markdown, no explanation) with this structure:
[
  {
    "id": "opportunity_id",
    "score": 85,
    "reasons": ["Reason 1", "Reason 2"],
    "gaps": ["Gap 1 if any"],
    "recommendation": "Short recommendation"
  }
]

Score 0-100 based on:
- Business type match (construction, retail, tech)
- Location eligibility (Maharashtra, India focus)
- Revenue/stage requirements
- Focus area alignment
- Document requirements`

// Matcher scores opportunities against a business profile.
type Matcher struct {
	LLM Completer
	Log *zap.SugaredLogger
}

func NewMatcher(llm Completer, log *zap.SugaredLogger) *Matcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Matcher{LLM: llm, Log: log}
}

func (m *Matcher) Configured() bool {
	return configured(m.LLM)
}

type rawMatch struct {
	ID             looseString  `json:"id"`
	Score          looseNumber  `json:"score"`
	Reasons        looseStrings `json:"reasons"`
	Gaps           looseStrings `json:"gaps"`
	Recommendation looseString  `json:"recommendation"`
}

// Match asks the model for eligibility scores. Transport and status
// failures are returned; unparseable output yields an empty result.
func (m *Matcher) Match(ctx context.Context, profile models.UserProfile, opps []models.Opportunity) ([]models.MatchResult, error) {
	if len(opps) > MaxMatchBatch {
		opps = opps[:MaxMatchBatch]
	}

	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	oppsJSON, err := json.MarshalIndent(opps, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal opportunities: %w", err)
	}

	userPrompt := fmt.Sprintf(`
BUSINESS PROFILE:
%s

OPPORTUNITIES TO ANALYZE (analyze ALL of them):
%s

Return eligibility scores for each opportunity as a JSON array.`, profileJSON, oppsJSON)

	resp, err := m.LLM.Complete(ctx, []Message{
		{Role: "system", Content: matchSystemPrompt},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(opps))
	for _, o := range opps {
		allowed[o.ID] = true
	}
	results := ParseMatches(resp, allowed)
	if len(results) == 0 && strings.TrimSpace(resp) != "" {
		m.Log.Warnf("[AI] match response had no usable entries: %.200s", resp)
	}
	return results, nil
}

// ParseMatches validates a raw model reply. Entries without an id, with an
// id outside allowed (when allowed is non-nil) or repeating an earlier id
// are dropped. Scores are rounded and clamped to [0,100].
func ParseMatches(resp string, allowed map[string]bool) []models.MatchResult {
	array, ok := ExtractJSONArray(resp)
	if !ok {
		return []models.MatchResult{}
	}

	seen := make(map[string]bool)
	out := make([]models.MatchResult, 0)
	for _, rm := range decodeElements[rawMatch](array) {
		id := strings.TrimSpace(string(rm.ID))
		if id == "" || seen[id] {
			continue
		}
		if allowed != nil && !allowed[id] {
			continue
		}
		seen[id] = true
		out = append(out, models.MatchResult{
			ID:             id,
			Score:          ClampScore(rm.Score.Value),
			Reasons:        nonNil(rm.Reasons),
			Gaps:           nonNil(rm.Gaps),
			Recommendation: string(rm.Recommendation),
		})
	}
	return out
}

// ClampScore rounds v and limits it to [0,100].
func ClampScore(v float64) int {
	if v >= 100 {
		return 100
	}
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
