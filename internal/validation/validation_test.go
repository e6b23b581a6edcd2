package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyamkes/JanSahyog/internal/models"
)

func validScheme() models.Scheme {
	maxIncome := 200000.0
	return models.Scheme{
		Name:        "PM Kisan",
		Description: "Income support for farmers",
		Category:    models.CategoryAgriculture,
		Benefits:    "₹6000 per year",
		Duration:    models.DefaultDuration,
		EligibilityCriteria: models.EligibilityCriteria{
			MinAge:     18,
			MaxAge:     60,
			MaxIncome:  &maxIncome,
			Categories: []string{models.TagAll},
			Gender:     models.GenderAll,
			States:     []string{"Punjab"},
		},
		Requirements: []string{"Aadhaar Card"},
		IsActive:     true,
	}
}

func TestValidateScheme_Valid(t *testing.T) {
	assert.NoError(t, ValidateScheme(validScheme()))

	s := validScheme()
	s.Category = models.CategorySocialWelfare
	s.OfficialWebsite = "https://pmkisan.gov.in"
	s.EligibilityCriteria.MaxIncome = nil
	assert.NoError(t, ValidateScheme(s))
}

func TestValidateScheme_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Scheme)
		field   string
		message string
	}{
		{
			name:    "missing name",
			mutate:  func(s *models.Scheme) { s.Name = "" },
			field:   "name",
			message: "Scheme name is required",
		},
		{
			name:    "missing description",
			mutate:  func(s *models.Scheme) { s.Description = "" },
			field:   "description",
			message: "Scheme description is required",
		},
		{
			name:   "missing benefits",
			mutate: func(s *models.Scheme) { s.Benefits = "" },
			field:  "benefits",
		},
		{
			name:   "unknown category",
			mutate: func(s *models.Scheme) { s.Category = "Transport" },
			field:  "category",
		},
		{
			name:   "bad website",
			mutate: func(s *models.Scheme) { s.OfficialWebsite = "not a url" },
			field:  "officialWebsite",
		},
		{
			name:   "unknown applicant category",
			mutate: func(s *models.Scheme) { s.EligibilityCriteria.Categories = []string{"SC", "Minority"} },
			field:  "eligibilityCriteria.categories[1]",
		},
		{
			name:   "unknown gender",
			mutate: func(s *models.Scheme) { s.EligibilityCriteria.Gender = "Any" },
			field:  "eligibilityCriteria.gender",
		},
		{
			name:   "negative min age",
			mutate: func(s *models.Scheme) { s.EligibilityCriteria.MinAge = -1 },
			field:  "eligibilityCriteria.minAge",
		},
		{
			name:    "inverted age range",
			mutate:  func(s *models.Scheme) { s.EligibilityCriteria.MinAge, s.EligibilityCriteria.MaxAge = 60, 18 },
			field:   "eligibilityCriteria.maxAge",
			message: "must not be less than minAge",
		},
		{
			name: "ceiling below floor",
			mutate: func(s *models.Scheme) {
				s.EligibilityCriteria.MinIncome = 300000
			},
			field:   "eligibilityCriteria.maxIncome",
			message: "must not be less than minIncome",
		},
		{
			name:   "blank requirement",
			mutate: func(s *models.Scheme) { s.Requirements = []string{""} },
			field:  "requirements[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScheme()
			tt.mutate(&s)

			err := ValidateScheme(s)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			if tt.message != "" {
				assert.Equal(t, tt.message, verr.Message)
			}
		})
	}
}

func TestValidateProfile(t *testing.T) {
	valid := models.ApplicantProfile{Age: 45, Income: 0, Category: models.TagOBC, State: "Punjab"}
	assert.NoError(t, ValidateProfile(valid))

	tests := []struct {
		name   string
		mutate func(*models.ApplicantProfile)
		field  string
	}{
		{"zero age", func(p *models.ApplicantProfile) { p.Age = 0 }, "age"},
		{"negative income", func(p *models.ApplicantProfile) { p.Income = -1 }, "income"},
		{"unknown category", func(p *models.ApplicantProfile) { p.Category = "All" }, "category"},
		{"unknown gender", func(p *models.ApplicantProfile) { p.Gender = "All" }, "gender"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			var verr *ValidationError
			require.ErrorAs(t, ValidateProfile(p), &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Message)
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Kerala", SanitizeString("  Kerala\x00 "))
	assert.Equal(t, "a\tb", SanitizeString("a\tb"))
}
