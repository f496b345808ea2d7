package service

import (
	"strings"
	"unicode"

	"samarth-go/internal/models"
	"samarth-go/internal/state"
)

// GeoMatcher fuzzy-maps subdivision names onto district names.
// Scores are cached per pair for the lifetime of the matcher, so build one
// per analysis run.
type GeoMatcher struct {
	policy Policy
	cache  map[[2]string]models.GeoMatch
}

// NewGeoMatcher creates a matcher using the thresholds in policy
func NewGeoMatcher(policy Policy) *GeoMatcher {
	return &GeoMatcher{
		policy: policy.withDefaults(),
		cache:  make(map[[2]string]models.GeoMatch),
	}
}

// Match scores every subdivision against every district and returns the
// pairs at or above the match threshold, in subdivision then district order.
func (gm *GeoMatcher) Match(subdivisions, districts []string) []models.GeoMatch {
	matches := []models.GeoMatch{}
	for _, sub := range subdivisions {
		for _, dist := range districts {
			m := gm.Score(sub, dist)
			if m.Score >= gm.policy.MatchThreshold {
				matches = append(matches, m)
			}
		}
	}
	return matches
}

// MatchOne returns the accepted districts for a single subdivision
func (gm *GeoMatcher) MatchOne(subdivision string, districts []string) []models.GeoMatch {
	return gm.Match([]string{subdivision}, districts)
}

// Score rates a single pair. The result is symmetric in its arguments apart
// from which name lands in which field.
func (gm *GeoMatcher) Score(subdivision, district string) models.GeoMatch {
	key := [2]string{state.Key(subdivision), state.Key(district)}
	if cached, ok := gm.cache[key]; ok {
		return cached
	}

	m := models.GeoMatch{Subdivision: subdivision, District: district}
	a, b := normalizePlace(subdivision), normalizePlace(district)

	switch {
	case a == "" || b == "":
		// nothing to compare
	case a == b:
		m.Score, m.Method = gm.policy.ExactScore, models.MatchExact
	case strings.Contains(a, b) || strings.Contains(b, a):
		m.Score, m.Method = gm.policy.SubstringScore, models.MatchSubstring
	default:
		ratio := tokenOverlap(a, b)
		if ratio >= gm.policy.TokenOverlapMin {
			m.Score, m.Method = ratio, models.MatchTokenOverlap
		}
	}

	gm.cache[key] = m
	return m
}

// normalizePlace folds case, spells out "&" and drops punctuation
func normalizePlace(s string) string {
	s = strings.ReplaceAll(state.Key(s), "&", " and ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// tokenOverlap is |shared tokens| / |union of tokens|
func tokenOverlap(a, b string) float64 {
	set1 := make(map[string]bool)
	set2 := make(map[string]bool)
	for _, t := range strings.Fields(a) {
		set1[t] = true
	}
	for _, t := range strings.Fields(b) {
		set2[t] = true
	}

	intersection := 0
	for t := range set1 {
		if set2[t] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
