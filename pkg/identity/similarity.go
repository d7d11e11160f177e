package identity

import (
	"math"
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// Confidence bands for sighting-vs-identity matches, on a 0-100 scale.
// At or above AutoMergeThreshold exactly one match auto-merges; the
// [ReviewThreshold, AutoMergeThreshold) band opens a pending review case;
// anything below is treated as a distinct person.
const (
	AutoMergeThreshold = 90
	ReviewThreshold    = 70
)

// NameSimilarity scores two person names from 0.0 to 1.0. First and last
// name components are compared separately: people sharing a first name but
// carrying clearly different last names must not score as a match.
func NameSimilarity(a, b string) float64 {
	a = names.Normalize(a)
	b = names.Normalize(b)

	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}

	// Single-character names must not match longer real names.
	if len(a) < 2 || len(b) < 2 {
		if len(a) < 2 && len(b) < 2 {
			return levenshteinSimilarity(a, b)
		}
		return 0.0
	}

	// Substring containment with a length-based penalty so initials and
	// short fragments do not match.
	shorter, longer := a, b
	if len(b) < len(a) {
		shorter, longer = b, a
	}
	if strings.Contains(longer, shorter) {
		switch {
		case len(shorter) >= 4:
			return 0.85
		case len(shorter) == 3:
			return 0.4
		default:
			return 0.2
		}
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)

	if len(wordsA) == 1 || len(wordsB) == 1 {
		if len(wordsA) == 1 && len(wordsB) == 1 {
			return levenshteinSimilarity(wordsA[0], wordsB[0])
		}
		single, multi := wordsA[0], wordsB
		if len(wordsB) == 1 {
			single, multi = wordsB[0], wordsA
		}
		for _, w := range multi {
			if w == single {
				return 0.85
			}
		}
		return levenshteinSimilarity(a, b)
	}

	firstSim := levenshteinSimilarity(wordsA[0], wordsB[0])
	lastSim := levenshteinSimilarity(wordsA[len(wordsA)-1], wordsB[len(wordsB)-1])

	// Different last names mean different people even with identical first
	// names, so the score is penalized below the review band.
	if lastSim < 0.7 {
		return firstSim * 0.3
	}

	return (firstSim + lastSim) / 2.0
}

// MatchConfidence scores a sighting against an identity on the 0-100
// confidence scale. Name similarity carries the score; a shared external
// user ID or email domain adds a bounded boost.
func MatchConfidence(s Sighting, id *CanonicalIdentity) int {
	best := NameSimilarity(s.CanonicalName, id.CanonicalName)
	for _, alias := range id.NameAliases {
		if sim := NameSimilarity(s.CanonicalName, alias); sim > best {
			best = sim
		}
	}

	confidence := math.Round(best * 100)

	if s.ExternalUserID != "" && id.HasExternalID(s.ExternalUserID) {
		confidence += 10
	} else if sameEmailDomain(s.Email, id.Email) {
		confidence += 5
	}

	if confidence > 100 {
		confidence = 100
	}
	return int(confidence)
}

func sameEmailDomain(a, b string) bool {
	da, db := emailDomain(a), emailDomain(b)
	return da != "" && da == db
}

func emailDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}

func levenshteinSimilarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshteinDistance(a, b))/float64(maxLen)
}

func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := matrix[i-1][j] + 1
			if ins := matrix[i][j-1] + 1; ins < d {
				d = ins
			}
			if sub := matrix[i-1][j-1] + cost; sub < d {
				d = sub
			}
			matrix[i][j] = d
		}
	}

	return matrix[len(a)][len(b)]
}
