package view

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/david/grantai/internal/models"
)

var deadlineFormats = []string{
	"2006-01-02",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006", // day first, as Indian portals write it
	"2/1/2006",
}

var (
	isoDate   = regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}\b`)
	slashDate = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/20\d{2}\b`)
	nameDate  = regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+20\d{2}\b|\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+20\d{2}\b`)

	deadlinePrefixes = []string{"closing date:", "deadline:", "last date:", "due date:", "closes:", "ends:"}
	rollingPhrases   = []string{"rolling", "open until filled", "ongoing", "no deadline", "open continuously", "cohort based", "through partner"}
)

// IsRolling reports whether a deadline text describes an open-ended intake.
func IsRolling(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range rollingPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// ParseDeadline reads the free-text deadline of an opportunity. The result
// is the end of that day in UTC. Rolling and unparseable deadlines report
// false.
func ParseDeadline(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" || IsRolling(text) {
		return time.Time{}, false
	}
	lower := strings.ToLower(text)
	for _, p := range deadlinePrefixes {
		if i := strings.Index(lower, p); i >= 0 {
			text = strings.TrimSpace(text[i+len(p):])
			lower = lower[i+len(p):]
		}
	}
	text = strings.TrimSuffix(text, ".")

	if t, ok := parseFormats(text); ok {
		return t, true
	}
	for _, re := range []*regexp.Regexp{isoDate, nameDate, slashDate} {
		if m := re.FindString(text); m != "" {
			if t, ok := parseFormats(strings.ReplaceAll(m, ",", ", ")); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func parseFormats(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	for _, f := range deadlineFormats {
		if t, err := time.Parse(f, s); err == nil {
			return endOfDay(t), true
		}
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// Upcoming pairs an opportunity with its parsed deadline.
type Upcoming struct {
	models.Opportunity
	DeadlineAt time.Time `json:"deadlineAt"`
	DaysLeft   int       `json:"daysLeft"`
}

// ClosingWithin returns the opportunities whose deadline falls between now
// and now+window, soonest first. Rolling and past deadlines are left out.
func ClosingWithin(opps []models.Opportunity, now time.Time, window time.Duration) []Upcoming {
	limit := now.Add(window)
	out := []Upcoming{}
	for _, o := range opps {
		at, ok := ParseDeadline(o.Deadline)
		if !ok || at.Before(now) || at.After(limit) {
			continue
		}
		out = append(out, Upcoming{
			Opportunity: o,
			DeadlineAt:  at,
			DaysLeft:    int(at.Sub(now).Hours() / 24),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeadlineAt.Before(out[j].DeadlineAt) })
	return out
}
