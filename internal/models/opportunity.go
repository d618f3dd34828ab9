package models

import (
	"strings"
	"time"
)

// OpportunityType is the kind of funding program an Opportunity describes.
type OpportunityType string

const (
	TypeGrant       OpportunityType = "grant"
	TypeHackathon   OpportunityType = "hackathon"
	TypeAccelerator OpportunityType = "accelerator"
	TypeProgram     OpportunityType = "program"
)

// OpportunityTypes lists every valid type in display order.
var OpportunityTypes = []OpportunityType{TypeGrant, TypeHackathon, TypeAccelerator, TypeProgram}

// ParseOpportunityType matches s case-insensitively against the known types.
func ParseOpportunityType(s string) (OpportunityType, bool) {
	s = strings.TrimSpace(s)
	for _, t := range OpportunityTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

type Opportunity struct {
	ID           string          `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Type         OpportunityType `json:"type" yaml:"type"`
	Organization string          `json:"organization,omitempty" yaml:"organization,omitempty"`
	Amount       string          `json:"amount,omitempty" yaml:"amount,omitempty"`
	Deadline     string          `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Focus        string          `json:"focus,omitempty" yaml:"focus,omitempty"`
	Eligibility  string          `json:"eligibility,omitempty" yaml:"eligibility,omitempty"`
	Level        string          `json:"level,omitempty" yaml:"level,omitempty"`
	Features     string          `json:"features,omitempty" yaml:"features,omitempty"`
	URL          string          `json:"url,omitempty" yaml:"url,omitempty"`
	IsNew        bool            `json:"isNew,omitempty" yaml:"-"`
	ScrapedAt    *time.Time      `json:"scrapedAt,omitempty" yaml:"-"`
}

// MatchResult is the AI eligibility assessment for one opportunity.
type MatchResult struct {
	ID             string   `json:"id"`
	Score          int      `json:"score"`
	Reasons        []string `json:"reasons"`
	Gaps           []string `json:"gaps"`
	Recommendation string   `json:"recommendation"`
}
