package view

import "github.com/david/grantai/internal/models"

// Stats feeds the summary bar.
type Stats struct {
	Total       int                            `json:"total"`
	ByType      map[models.OpportunityType]int `json:"byType"`
	New         int                            `json:"new"`
	Tracked     int                            `json:"tracked"`
	ByStatus    map[models.Status]int          `json:"byStatus,omitempty"`
	Matched     int                            `json:"matched"`
	HighMatches int                            `json:"highMatches"`
	Bookmarked  int                            `json:"bookmarked"`
}

// HighMatchScore is the score at or above which a match counts as strong.
const HighMatchScore = 70

func ComputeStats(opps []models.Opportunity, tracked []models.TrackedGrant, matches map[string]models.MatchResult, bookmarks []string) Stats {
	s := Stats{
		Total:      len(opps),
		ByType:     make(map[models.OpportunityType]int, len(models.OpportunityTypes)),
		Tracked:    len(tracked),
		Matched:    len(matches),
		Bookmarked: len(bookmarks),
	}
	for _, t := range models.OpportunityTypes {
		s.ByType[t] = 0
	}
	for _, o := range opps {
		s.ByType[o.Type]++
		if o.IsNew {
			s.New++
		}
	}
	if len(tracked) > 0 {
		s.ByStatus = make(map[models.Status]int)
		for _, g := range tracked {
			s.ByStatus[g.Status]++
		}
	}
	for _, m := range matches {
		if m.Score >= HighMatchScore {
			s.HighMatches++
		}
	}
	return s
}
