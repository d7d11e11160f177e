package names

import (
	"regexp"
	"strings"
)

// PrefixRule maps names matching an anchored pattern to a fixed display name.
// Rules exist for real people whose roster names are too mangled for the
// token heuristic ("J-P's phone 📱" and similar).
type PrefixRule struct {
	Pattern *regexp.Regexp
	Display string
}

// NewPrefixRule compiles an exact-prefix rule. The pattern is anchored at the
// start and matched case-insensitively.
func NewPrefixRule(pattern, display string) PrefixRule {
	return PrefixRule{
		Pattern: regexp.MustCompile(`(?i)^` + pattern),
		Display: display,
	}
}

// nonPersonTokens are device, role, and platform words that never form part
// of a person's name. A token heuristic that would emit one of these bails
// out instead.
var nonPersonTokens = map[string]bool{
	"iphone":    true,
	"ipad":      true,
	"android":   true,
	"galaxy":    true,
	"pixel":     true,
	"phone":     true,
	"tablet":    true,
	"zoom":      true,
	"room":      true,
	"host":      true,
	"cohost":    true,
	"guest":     true,
	"user":      true,
	"admin":     true,
	"meeting":   true,
	"notetaker": true,
	"bot":       true,
}

// Canonicalizer turns raw roster names into canonical display names. It is
// pure and deterministic: alias resolution first, then the ordered rule
// table, then a first+last token inference, then the trimmed input.
type Canonicalizer struct {
	rules []PrefixRule
}

// NewCanonicalizer creates a canonicalizer with the given ordered rule table.
// First match wins, so more specific rules belong earlier.
func NewCanonicalizer(rules []PrefixRule) *Canonicalizer {
	return &Canonicalizer{rules: rules}
}

// Canonicalize resolves raw through the alias map and produces the canonical
// display name. Empty input yields an empty string.
func (c *Canonicalizer) Canonicalize(raw string, aliases AliasMap) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	resolved := aliases.Resolve(raw)

	for _, rule := range c.rules {
		if rule.Pattern.MatchString(resolved) {
			return rule.Display
		}
	}

	if inferred := inferFirstLast(resolved); inferred != "" {
		return inferred
	}

	return strings.TrimSpace(resolved)
}

// inferFirstLast applies the "first + last token" heuristic. Names with three
// or more tokens usually carry decoration in the middle ("Emil 🚀 Bakiyev",
// "Mary Jo Smith" is the accepted loss). The first two tokens must look like
// name words: at least two characters, containing a letter, and not a known
// device or role word. Returns "" when the heuristic does not apply.
func inferFirstLast(name string) string {
	tokens := Tokenize(name)
	if len(tokens) < 3 {
		return ""
	}

	for _, tok := range tokens[:2] {
		if len(tok) < 2 || !containsLetter(tok) || nonPersonTokens[tok] {
			return ""
		}
	}

	return DisplayCase(tokens[0]) + " " + DisplayCase(tokens[len(tokens)-1])
}
