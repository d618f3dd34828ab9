package models

import "strings"

type BusinessType string

const (
	BusinessConstruction  BusinessType = "construction"
	BusinessRetail        BusinessType = "retail"
	BusinessTech          BusinessType = "tech"
	BusinessManufacturing BusinessType = "manufacturing"
	BusinessServices      BusinessType = "services"
	BusinessOther         BusinessType = "other"
)

var BusinessTypes = []BusinessType{
	BusinessConstruction, BusinessRetail, BusinessTech,
	BusinessManufacturing, BusinessServices, BusinessOther,
}

type Stage string

const (
	StageIdea        Stage = "idea"
	StageMVP         Stage = "mvp"
	StageEarly       Stage = "early"
	StageGrowth      Stage = "growth"
	StageEstablished Stage = "established"
)

var Stages = []Stage{StageIdea, StageMVP, StageEarly, StageGrowth, StageEstablished}

// FocusAreas are the tags offered during onboarding.
var FocusAreas = []string{
	"AI", "Cybersecurity", "IoT", "Cloud", "Blockchain", "Fintech",
	"EdTech", "HealthTech", "AgriTech", "CleanTech", "E-commerce", "SaaS",
}

// IndianStates are the states offered during onboarding.
var IndianStates = []string{
	"Andhra Pradesh", "Bihar", "Delhi", "Gujarat", "Haryana", "Karnataka",
	"Kerala", "Madhya Pradesh", "Maharashtra", "Punjab", "Rajasthan",
	"Tamil Nadu", "Telangana", "Uttar Pradesh", "West Bengal",
}

type Location struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type Registrations struct {
	GSTIN        bool `json:"gstin,omitempty"`
	PAN          bool `json:"pan,omitempty"`
	MSME         bool `json:"msme,omitempty"`
	StartupIndia bool `json:"startupIndia,omitempty"`
}

type UserProfile struct {
	ID                 string        `json:"id"`
	BusinessName       string        `json:"businessName"`
	BusinessType       BusinessType  `json:"businessType"`
	Location           Location      `json:"location"`
	Stage              Stage         `json:"stage"`
	Revenue            string        `json:"revenue,omitempty"`
	Employees          *int          `json:"employees,omitempty"`
	Registrations      Registrations `json:"registrations"`
	FocusAreas         []string      `json:"focusAreas"`
	ProjectDescription string        `json:"projectDescription,omitempty"`
}

// DefaultProfile is the profile a fresh session starts with.
func DefaultProfile() UserProfile {
	return UserProfile{
		ID:           "user-1",
		BusinessType: BusinessTech,
		Location: Location{
			City:    "Kalyan",
			State:   "Maharashtra",
			Country: "India",
		},
		Stage:      StageIdea,
		FocusAreas: []string{"AI", "Cybersecurity"},
	}
}

// HasBusinessName reports whether the profile is complete enough for matching.
func (p UserProfile) HasBusinessName() bool {
	return strings.TrimSpace(p.BusinessName) != ""
}

// ProfilePatch carries a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	BusinessName       *string        `json:"businessName,omitempty"`
	BusinessType       *BusinessType  `json:"businessType,omitempty"`
	Location           *Location      `json:"location,omitempty"`
	Stage              *Stage         `json:"stage,omitempty"`
	Revenue            *string        `json:"revenue,omitempty"`
	Employees          *int           `json:"employees,omitempty"`
	Registrations      *Registrations `json:"registrations,omitempty"`
	FocusAreas         []string       `json:"focusAreas,omitempty"`
	ProjectDescription *string        `json:"projectDescription,omitempty"`
}

// Apply shallow-merges the patch into p. Nested values are replaced whole.
func (patch ProfilePatch) Apply(p UserProfile) UserProfile {
	if patch.BusinessName != nil {
		p.BusinessName = *patch.BusinessName
	}
	if patch.BusinessType != nil {
		p.BusinessType = *patch.BusinessType
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Stage != nil {
		p.Stage = *patch.Stage
	}
	if patch.Revenue != nil {
		p.Revenue = *patch.Revenue
	}
	if patch.Employees != nil {
		n := *patch.Employees
		p.Employees = &n
	}
	if patch.Registrations != nil {
		p.Registrations = *patch.Registrations
	}
	if patch.FocusAreas != nil {
		p.FocusAreas = append([]string(nil), patch.FocusAreas...)
	}
	if patch.ProjectDescription != nil {
		p.ProjectDescription = *patch.ProjectDescription
	}
	return p
}
