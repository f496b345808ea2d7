package service

import (
	"testing"

	"samarth-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoMatcherScore(t *testing.T) {
	gm := NewGeoMatcher(DefaultPolicy())

	tests := []struct {
		name        string
		subdivision string
		district    string
		score       float64
		method      models.MatchMethod
	}{
		{"case fold", "KERALA", "kerala", 1.0, models.MatchExact},
		{"ampersand spelled out", "Andaman & Nicobar Islands", "Andaman and Nicobar Islands", 1.0, models.MatchExact},
		{"substring", "Udupi Coastal", "UDUPI", 0.8, models.MatchSubstring},
		{"token overlap", "North Interior Karnataka", "Karnataka North", 2.0 / 3.0, models.MatchTokenOverlap},
		{"below overlap minimum", "Coastal Andhra", "Andhra Pradesh", 0, ""},
		{"unrelated", "Kodagu Hills", "Raichur", 0, ""},
		{"empty", "", "Raichur", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := gm.Score(tt.subdivision, tt.district)
			assert.InDelta(t, tt.score, m.Score, 1e-9)
			assert.Equal(t, tt.method, m.Method)
			assert.Equal(t, tt.subdivision, m.Subdivision)
			assert.Equal(t, tt.district, m.District)
		})
	}
}

func TestGeoMatcherSymmetric(t *testing.T) {
	gm := NewGeoMatcher(DefaultPolicy())
	pairs := [][2]string{
		{"Udupi Coastal", "Udupi"},
		{"North Interior Karnataka", "Karnataka North"},
		{"Coastal Andhra", "Andhra Pradesh"},
	}
	for _, p := range pairs {
		ab := gm.Score(p[0], p[1])
		ba := gm.Score(p[1], p[0])
		assert.Equal(t, ab.Score, ba.Score, p)
		assert.Equal(t, ab.Method, ba.Method, p)
	}
}

func TestGeoMatcherMatchOrder(t *testing.T) {
	gm := NewGeoMatcher(DefaultPolicy())
	matches := gm.Match(
		[]string{"Udupi Coastal", "Mysore Plateau", "Kerala"},
		[]string{"Mysore", "Udupi", "Raichur"},
	)
	require.Len(t, matches, 2)
	assert.Equal(t, "Udupi Coastal", matches[0].Subdivision)
	assert.Equal(t, "Udupi", matches[0].District)
	assert.Equal(t, "Mysore Plateau", matches[1].Subdivision)
	assert.Equal(t, "Mysore", matches[1].District)

	assert.NotNil(t, gm.Match(nil, []string{"Udupi"}))
	assert.Empty(t, gm.MatchOne("Kerala", []string{"Udupi"}))
}

func TestGeoMatcherPolicyOverride(t *testing.T) {
	strict := NewGeoMatcher(Policy{MatchThreshold: 0.9})
	assert.Empty(t, strict.MatchOne("Udupi Coastal", []string{"Udupi"}))
	assert.Len(t, strict.MatchOne("udupi", []string{"Udupi"}), 1)

	generous := NewGeoMatcher(Policy{SubstringScore: 0.95})
	assert.InDelta(t, 0.95, generous.Score("Udupi Coastal", "Udupi").Score, 1e-9)
}
