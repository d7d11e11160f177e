package roster

import (
	"sort"
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// botKeywords identify AI notetakers and recording bots that join meetings
// as participants. Matched against the normalized display name.
var botKeywords = []string{
	"fireflies",
	"notetaker",
	"note taker",
	"otter.ai",
	"read.ai",
	"recall.ai",
	"fathom",
	"notes by",
	"meeting recorder",
}

// Deduper collapses one session's raw participant list into one attendee
// name per person.
type Deduper struct {
	canon *names.Canonicalizer
}

// NewDeduper creates a session deduper using the given canonicalizer.
func NewDeduper(canon *names.Canonicalizer) *Deduper {
	return &Deduper{canon: canon}
}

// candidate is a participant scored and prepared for greedy matching.
type candidate struct {
	raw       RawParticipant
	canonical string // canonicalized display name
	cleaned   string // normalized canonical name
	stripped  string // normalized name with device suffix removed
	email     string // lowercased email, "" when absent
	device    bool
	score     int
}

// Dedupe returns the canonical attendee names for one session's raw roster.
//
// The matching is greedy and order-sensitive by design: candidates are
// sorted by score (email-bearing, non-device records first) then by raw name
// length, so the richest record for a person is accepted first and shorter
// or device variants fold into it. "Emil" folds into "Emil Bakiyev" and
// "Lori's iPhone" into "Lori Smith" only because of this ordering; do not
// replace it with a similarity threshold without re-validating those cases.
//
// Output order is acceptance order; callers sort for presentation.
func (d *Deduper) Dedupe(participants []RawParticipant, aliases names.AliasMap) []string {
	attendees := d.DedupeDetailed(participants, aliases)
	out := make([]string, 0, len(attendees))
	for _, a := range attendees {
		out = append(out, a.CanonicalName)
	}
	return out
}

// Attendee is one deduplicated person, keeping the email of the record that
// won the greedy match.
type Attendee struct {
	CanonicalName string
	Email         string
}

// DedupeDetailed is Dedupe with per-attendee detail preserved.
func (d *Deduper) DedupeDetailed(participants []RawParticipant, aliases names.AliasMap) []Attendee {
	candidates := make([]candidate, 0, len(participants))

	for _, p := range participants {
		if IsBotName(p.DisplayName) {
			continue
		}

		canonical := d.canon.Canonicalize(p.DisplayName, aliases)
		if canonical == "" {
			continue
		}

		device := p.DeviceFlag || names.IsDeviceName(p.DisplayName)

		score := 0
		if p.Email != "" {
			score += 2
		}
		if !device {
			score++
		}

		candidates = append(candidates, candidate{
			raw:       p,
			canonical: canonical,
			cleaned:   names.Normalize(canonical),
			stripped:  names.Normalize(names.StripDeviceSuffix(p.DisplayName)),
			email:     strings.ToLower(p.Email),
			device:    device,
			score:     score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return len(candidates[i].raw.DisplayName) > len(candidates[j].raw.DisplayName)
	})

	var accepted []candidate
	var out []Attendee

	for _, c := range candidates {
		if redundant(accepted, c) {
			continue
		}
		accepted = append(accepted, c)
		out = append(out, Attendee{CanonicalName: c.canonical, Email: c.email})
	}

	return out
}

// redundant reports whether the candidate is the same person as an
// already-accepted one. The four containment rules are deliberate business
// logic; see Dedupe.
func redundant(accepted []candidate, c candidate) bool {
	fullRaw := names.Normalize(c.raw.DisplayName)

	for _, a := range accepted {
		// Same email address.
		if c.email != "" && c.email == a.email {
			return true
		}

		// Accepted name contains the candidate's cleaned name:
		// "emil" inside "emil bakiyev".
		if c.cleaned != "" && strings.Contains(a.cleaned, c.cleaned) {
			return true
		}

		// Device name whose owner fragment appears in an accepted name:
		// "lori" from "Lori's iPhone" inside "lori smith".
		if c.device && c.stripped != "" && strings.Contains(a.cleaned, c.stripped) {
			return true
		}

		// Accepted name starts with the candidate's full raw name.
		if fullRaw != "" && strings.HasPrefix(a.cleaned, fullRaw) {
			return true
		}
	}

	return false
}

// IsBotName reports whether a display name belongs to a notetaker or
// recording bot. Bot participants never count as people anywhere downstream.
func IsBotName(displayName string) bool {
	normalized := names.Normalize(displayName)
	for _, kw := range botKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
