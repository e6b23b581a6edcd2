package models

import (
	"math"
	"time"
)

// Scheme categories.
const (
	CategoryAgriculture   = "Agriculture"
	CategoryHealthcare    = "Healthcare"
	CategoryEducation     = "Education"
	CategoryHousing       = "Housing"
	CategoryEmployment    = "Employment"
	CategorySocialWelfare = "Social Welfare"
	CategoryFinance       = "Finance"
	CategoryOther         = "Other"
)

// Applicant category tags. TagAll is only meaningful inside scheme criteria.
const (
	TagGeneral = "General"
	TagOBC     = "OBC"
	TagSC      = "SC"
	TagST      = "ST"
	TagEWS     = "EWS"
	TagAll     = "All"
)

// Genders.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
	GenderAll    = "All"
)

// Criteria defaults.
const (
	DefaultMinAge   = 0
	DefaultMaxAge   = 120
	DefaultDuration = "Ongoing"
)

// Scheme is a government welfare scheme in the catalog.
type Scheme struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name" validate:"required,max=200"`
	Description         string              `json:"description" validate:"required"`
	Category            string              `json:"category" validate:"required,oneof=Agriculture Healthcare Education Housing Employment 'Social Welfare' Finance Other"`
	Benefits            string              `json:"benefits" validate:"required"`
	Duration            string              `json:"duration"`
	OfficialWebsite     string              `json:"officialWebsite,omitempty" validate:"omitempty,url"`
	EligibilityCriteria EligibilityCriteria `json:"eligibilityCriteria"`
	Requirements        []string            `json:"requirements" validate:"dive,required"`
	ApplicationDeadline *time.Time          `json:"applicationDeadline,omitempty"`
	IsActive            bool                `json:"isActive"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

// EligibilityCriteria holds the range and set constraints of a scheme.
// A nil MaxIncome means there is no income ceiling.
type EligibilityCriteria struct {
	MinAge     int      `json:"minAge" validate:"gte=0,lte=150"`
	MaxAge     int      `json:"maxAge" validate:"gte=0,lte=150"`
	MinIncome  float64  `json:"minIncome" validate:"gte=0"`
	MaxIncome  *float64 `json:"maxIncome,omitempty" validate:"omitempty,gte=0"`
	Categories []string `json:"categories" validate:"dive,oneof=General OBC SC ST EWS All"`
	Gender     string   `json:"gender" validate:"omitempty,oneof=Male Female Other All"`
	States     []string `json:"states" validate:"dive,required"`
}

// IncomeCeiling returns MaxIncome, or +Inf when the scheme has no ceiling.
func (c EligibilityCriteria) IncomeCeiling() float64 {
	if c.MaxIncome == nil {
		return math.Inf(1)
	}
	return *c.MaxIncome
}

// ApplicantProfile is the demographic data a citizen submits for a check.
// It is never persisted.
type ApplicantProfile struct {
	Age      int     `json:"age" validate:"gt=0,lte=150"`
	Income   float64 `json:"income" validate:"gte=0"`
	Category string  `json:"category" validate:"required,oneof=General OBC SC ST EWS"`
	Gender   string  `json:"gender,omitempty" validate:"omitempty,oneof=Male Female Other"`
	State    string  `json:"state" validate:"required"`
}

// ScoredScheme is an eligible scheme with its display score and reasons.
type ScoredScheme struct {
	Scheme
	MatchScore        int    `json:"matchScore"`
	EligibilityReason string `json:"eligibilityReason"`
}

// EligibilityResult is what a local eligibility check produces.
type EligibilityResult struct {
	Count       int              `json:"count"`
	Schemes     []ScoredScheme   `json:"schemes"`
	UserProfile ApplicantProfile `json:"userProfile"`
}

// CheckEligibilityRequest is the body of an eligibility check. Pointer fields
// distinguish an absent value from a zero one.
type CheckEligibilityRequest struct {
	Age      *int     `json:"age"`
	Income   *float64 `json:"income"`
	Category string   `json:"category"`
	State    string   `json:"state"`
	Gender   string   `json:"gender"`
}

// CreateSchemeRequest is the body of a scheme creation. Omitted criteria
// fall back to the catalog defaults.
type CreateSchemeRequest struct {
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	Category            string          `json:"category"`
	Benefits            string          `json:"benefits"`
	Duration            string          `json:"duration"`
	OfficialWebsite     string          `json:"officialWebsite"`
	EligibilityCriteria CriteriaRequest `json:"eligibilityCriteria"`
	Requirements        []string        `json:"requirements"`
	ApplicationDeadline *time.Time      `json:"applicationDeadline"`
	IsActive            *bool           `json:"isActive"`
}

// CriteriaRequest is the optional-field form of EligibilityCriteria.
type CriteriaRequest struct {
	MinAge     *int     `json:"minAge"`
	MaxAge     *int     `json:"maxAge"`
	MinIncome  *float64 `json:"minIncome"`
	MaxIncome  *float64 `json:"maxIncome"`
	Categories []string `json:"categories"`
	Gender     string   `json:"gender"`
	States     []string `json:"states"`
}

// ToScheme builds a Scheme from the request, applying catalog defaults.
func (r CreateSchemeRequest) ToScheme() Scheme {
	s := Scheme{
		Name:                r.Name,
		Description:         r.Description,
		Category:            r.Category,
		Benefits:            r.Benefits,
		Duration:            r.Duration,
		OfficialWebsite:     r.OfficialWebsite,
		Requirements:        r.Requirements,
		ApplicationDeadline: r.ApplicationDeadline,
		IsActive:            true,
		EligibilityCriteria: EligibilityCriteria{
			MinAge:     DefaultMinAge,
			MaxAge:     DefaultMaxAge,
			MaxIncome:  r.EligibilityCriteria.MaxIncome,
			Categories: r.EligibilityCriteria.Categories,
			Gender:     r.EligibilityCriteria.Gender,
			States:     r.EligibilityCriteria.States,
		},
	}
	if s.Duration == "" {
		s.Duration = DefaultDuration
	}
	if r.IsActive != nil {
		s.IsActive = *r.IsActive
	}
	c := r.EligibilityCriteria
	if c.MinAge != nil {
		s.EligibilityCriteria.MinAge = *c.MinAge
	}
	if c.MaxAge != nil {
		s.EligibilityCriteria.MaxAge = *c.MaxAge
	}
	if c.MinIncome != nil {
		s.EligibilityCriteria.MinIncome = *c.MinIncome
	}
	if s.EligibilityCriteria.Gender == "" {
		s.EligibilityCriteria.Gender = GenderAll
	}
	if s.Requirements == nil {
		s.Requirements = []string{}
	}
	if s.EligibilityCriteria.Categories == nil {
		s.EligibilityCriteria.Categories = []string{}
	}
	if s.EligibilityCriteria.States == nil {
		s.EligibilityCriteria.States = []string{}
	}
	return s
}

// SchemeListResponse is returned by GET /api/schemes.
type SchemeListResponse struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Schemes []Scheme `json:"schemes"`
}

// SchemeResponse is returned by GET /api/schemes/{id} and POST /api/schemes.
type SchemeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Scheme  Scheme `json:"scheme"`
}

// EligibilityResponse is returned by a successful local eligibility check.
type EligibilityResponse struct {
	Success     bool             `json:"success"`
	Count       int              `json:"count"`
	Schemes     []ScoredScheme   `json:"schemes"`
	UserProfile ApplicantProfile `json:"userProfile"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
