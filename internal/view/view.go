// Package view derives the displayed opportunity list from the full set,
// the active filters and the current match results.
package view

import (
	"sort"
	"strings"

	"github.com/david/grantai/internal/models"
)

// CategoryAll disables the category filter.
const CategoryAll = "all"

// DefaultScore is the effective score of an opportunity with no match result.
const DefaultScore = 0

// Categories is the filter bar, in order.
var Categories = []string{CategoryAll, "grant", "hackathon", "accelerator", "program"}

type Query struct {
	Text     string
	Category string
}

// Filter keeps opportunities of the requested category whose name,
// organization or focus contains the trimmed query text, ignoring case.
// An empty category behaves like CategoryAll.
func Filter(opps []models.Opportunity, q Query) []models.Opportunity {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	category := strings.TrimSpace(q.Category)

	out := make([]models.Opportunity, 0, len(opps))
	for _, o := range opps {
		if category != "" && category != CategoryAll && string(o.Type) != category {
			continue
		}
		if text != "" && !matchesText(o, text) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matchesText(o models.Opportunity, lowered string) bool {
	for _, field := range []string{o.Name, o.Organization, o.Focus} {
		if strings.Contains(strings.ToLower(field), lowered) {
			return true
		}
	}
	return false
}

// Score returns the effective match score of id.
func Score(matches map[string]models.MatchResult, id string) int {
	if m, ok := matches[id]; ok {
		return m.Score
	}
	return DefaultScore
}

// SortByScore orders opps by descending effective score in place.
// Equal scores keep their relative order.
func SortByScore(opps []models.Opportunity, matches map[string]models.MatchResult) {
	sort.SliceStable(opps, func(i, j int) bool {
		return Score(matches, opps[i].ID) > Score(matches, opps[j].ID)
	})
}

// Apply filters and then sorts. The input slice is not modified.
func Apply(opps []models.Opportunity, q Query, matches map[string]models.MatchResult) []models.Opportunity {
	out := Filter(opps, q)
	SortByScore(out, matches)
	return out
}

// IndexMatches keys match results by opportunity id. Later entries win.
func IndexMatches(results []models.MatchResult) map[string]models.MatchResult {
	m := make(map[string]models.MatchResult, len(results))
	for _, r := range results {
		m[r.ID] = r
	}
	return m
}
