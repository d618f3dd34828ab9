package models

import "time"

// Status is a stage of the application pipeline.
type Status string

const (
	StatusDiscovered  Status = "discovered"
	StatusInterested  Status = "interested"
	StatusEligible    Status = "eligible"
	StatusApplying    Status = "applying"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusAwarded     Status = "awarded"
	StatusRejected    Status = "rejected"
)

// Statuses is the pipeline in order. The last two entries are terminal.
var Statuses = []Status{
	StatusDiscovered,
	StatusInterested,
	StatusEligible,
	StatusApplying,
	StatusSubmitted,
	StatusUnderReview,
	StatusAwarded,
	StatusRejected,
}

// Index returns the position of s in Statuses, or -1.
func (s Status) Index() int {
	for i, v := range Statuses {
		if v == s {
			return i
		}
	}
	return -1
}

func (s Status) Valid() bool { return s.Index() >= 0 }

func (s Status) Terminal() bool { return s == StatusAwarded || s == StatusRejected }

// Title is the kanban column heading.
func (s Status) Title() string {
	switch s {
	case StatusUnderReview:
		return "Under Review"
	case "":
		return ""
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

type TrackedGrant struct {
	ID               string    `json:"id"`
	OpportunityID    string    `json:"opportunityId"`
	Status           Status    `json:"status"`
	EligibilityScore *int      `json:"eligibilityScore,omitempty"`
	MatchReasons     []string  `json:"matchReasons,omitempty"`
	Gaps             []string  `json:"gaps,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
