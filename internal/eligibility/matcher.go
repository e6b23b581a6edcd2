// Package eligibility decides which catalog schemes an applicant qualifies for.
//
// The matcher is a pure filter-map-sort over an already loaded set of active
// schemes. It performs no I/O and is safe for concurrent use.
package eligibility

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/satyamkes/JanSahyog/internal/models"
)

// Match scores lie in [ScoreBase, ScoreBase+ScoreSpread].
const (
	ScoreBase   = 85
	ScoreSpread = 14
)

// Scorer returns the display score for one eligible scheme.
type Scorer func() int

// RandomScore draws a score uniformly from [85, 99]. It is not derived from
// the profile or the scheme and is not reproducible between calls.
func RandomScore() int {
	return ScoreBase + rand.Intn(ScoreSpread+1)
}

// Matcher filters, explains and ranks schemes for an applicant.
type Matcher struct {
	score Scorer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithScorer replaces the random scorer.
func WithScorer(s Scorer) Option {
	return func(m *Matcher) {
		m.score = s
	}
}

// NewMatcher creates a matcher that uses RandomScore unless overridden.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{score: RandomScore}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns the schemes the profile is eligible for, each with a score and
// a reason, sorted by score descending. schemes must already be limited to
// active ones and is not modified. Ties keep no particular order.
func (m *Matcher) Match(profile models.ApplicantProfile, schemes []models.Scheme) []models.ScoredScheme {
	matched := make([]models.ScoredScheme, 0, len(schemes))
	for _, scheme := range schemes {
		if !Eligible(profile, scheme.EligibilityCriteria) {
			continue
		}
		matched = append(matched, models.ScoredScheme{
			Scheme:            scheme,
			MatchScore:        m.score(),
			EligibilityReason: Reason(profile, scheme.EligibilityCriteria),
		})
	}

	slices.SortFunc(matched, func(a, b models.ScoredScheme) int {
		return b.MatchScore - a.MatchScore
	})

	return matched
}

// Eligible reports whether every criterion admits the profile. Range bounds
// are inclusive.
func Eligible(profile models.ApplicantProfile, c models.EligibilityCriteria) bool {
	if profile.Age < c.MinAge || profile.Age > c.MaxAge {
		return false
	}
	if profile.Income < c.MinIncome || profile.Income > c.IncomeCeiling() {
		return false
	}
	if !RestrictionFromList(c.Categories).Allows(profile.Category) {
		return false
	}
	if !RestrictionFromValue(c.Gender).Allows(profile.Gender) {
		return false
	}
	return RestrictionFromList(c.States).Allows(profile.State)
}

// Reason builds the human-readable justification for an eligible scheme.
// Only category, income and age contribute clauses; gender and state never
// do, so the result can be shorter than the set of criteria that matched.
func Reason(profile models.ApplicantProfile, c models.EligibilityCriteria) string {
	var clauses []string

	if RestrictionFromList(c.Categories).Names(profile.Category) {
		clauses = append(clauses, "belongs to category "+profile.Category)
	}

	if profile.Income <= c.IncomeCeiling() {
		p := message.NewPrinter(language.English)
		clauses = append(clauses, p.Sprintf("income ₹%.0f is within the limit", profile.Income))
	}

	if profile.Age >= c.MinAge && profile.Age <= c.MaxAge {
		clauses = append(clauses, fmt.Sprintf("age %d is within the eligible range", profile.Age))
	}

	return strings.Join(clauses, ", ")
}
