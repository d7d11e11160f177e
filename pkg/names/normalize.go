// Package names provides name normalization, canonicalization, and alias
// resolution for meeting participants. Roster names arrive noisy ("Lori's
// iPhone", "emil  bakiyev", "Zoom Room 3"), and everything downstream of
// ingestion keys on the cleaned form produced here.
package names

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Device suffixes commonly appended by mobile and room clients.
	// "Lori's iPhone" → "Lori", "Mark (iPad)" → "Mark".
	deviceSuffixPattern = regexp.MustCompile(`(?i)(?:'s)?\s*[\(\[]?\s*(?:iphone|ipad|android|galaxy|pixel|tablet|phone|macbook)\s*[\)\]]?\s*$`)

	// Device names that are the whole string, e.g. "iPhone", "Galaxy S22".
	devicePattern = regexp.MustCompile(`(?i)\b(?:iphone|ipad|android|galaxy|pixel|tablet)\b`)

	tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

	titleCaser = cases.Title(language.Und)
)

// Normalize lowercases a name and collapses internal whitespace. It is the
// shared key form for alias-map lookups and containment checks.
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// StripDeviceSuffix removes a trailing device marker from a display name.
// Returns the input unchanged when no marker is present.
func StripDeviceSuffix(name string) string {
	return strings.TrimSpace(deviceSuffixPattern.ReplaceAllString(name, ""))
}

// IsDeviceName reports whether a display name looks like a phone or tablet
// rather than a typed-in person name.
func IsDeviceName(name string) bool {
	return devicePattern.MatchString(name)
}

// Tokenize splits a name into lowercase alphanumeric tokens. Punctuation and
// emoji are dropped, so "D'Angelo (Host)" yields ["d", "angelo", "host"].
func Tokenize(name string) []string {
	return tokenPattern.FindAllString(strings.ToLower(name), -1)
}

// DisplayCase titlecases a single token for presentation ("bakiyev" →
// "Bakiyev").
func DisplayCase(token string) string {
	return titleCaser.String(token)
}

// containsLetter reports whether the token has at least one ASCII letter.
func containsLetter(token string) bool {
	for _, r := range token {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
