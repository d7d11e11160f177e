package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		min  float64
		max  float64
	}{
		{"exact", "Emil Bakiyev", "Emil Bakiyev", 1.0, 1.0},
		{"case and spacing", "emil  bakiyev", "Emil Bakiyev", 1.0, 1.0},
		{"first name subset", "Emil", "Emil Bakiyev", 0.85, 0.85},
		{"typo in first name", "Emile Bakiyev", "Emil Bakiyev", 0.85, 0.95},
		{"same first different last", "John Brisbane", "John Bussmann", 0.0, 0.35},
		{"initial does not match", "E", "Emil Bakiyev", 0.0, 0.0},
		{"two char fragment penalized", "Em", "Emma", 0.2, 0.2},
		{"unrelated", "Lori Smith", "Emil Bakiyev", 0.0, 0.3},
		{"empty", "", "Emil", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameSimilarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}

func TestNameSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Emil Bakiyev", "Emile Bakiyev"},
		{"Jon Smith", "John Smith"},
		{"Emil", "Emil Bakiyev"},
	}
	for _, p := range pairs {
		assert.InDelta(t, NameSimilarity(p[0], p[1]), NameSimilarity(p[1], p[0]), 1e-9)
	}
}

func TestMatchConfidenceExternalIDBoost(t *testing.T) {
	id := &CanonicalIdentity{
		CanonicalName:   "Emil Bakiyev",
		NameAliases:     []string{"Emil Bakiyev"},
		ExternalUserIDs: []string{"zoom-42"},
	}

	without := MatchConfidence(Sighting{CanonicalName: "Emile Bakiyev"}, id)
	with := MatchConfidence(Sighting{CanonicalName: "Emile Bakiyev", ExternalUserID: "zoom-42"}, id)

	assert.Greater(t, with, without)
	assert.LessOrEqual(t, with, 100)
}

func TestMatchConfidenceUsesBestAlias(t *testing.T) {
	id := &CanonicalIdentity{
		CanonicalName: "Emil Bakiyev",
		NameAliases:   []string{"Emil Bakiyev", "Emile Bakiyev"},
	}

	got := MatchConfidence(Sighting{CanonicalName: "Emile Bakiyev"}, id)
	assert.Equal(t, 100, got)
}

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"emil", "emile", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshteinDistance(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
	}
}
