package attribution

import (
	"strings"

	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// MatchLeadsToShowUps annotates leads that correspond to a meeting attendee,
// using the first-seen date index the identity side derives (normalized
// canonical name to YYYY-MM-DD). A lead matches on its normalized name, or
// failing that on a name derived from the email local part. Returns the
// number of leads matched.
func MatchLeadsToShowUps(leads []LeadRecord, firstSeenByName map[string]string) int {
	if len(firstSeenByName) == 0 {
		return 0
	}

	matched := 0
	for i := range leads {
		lead := &leads[i]
		date, ok := firstSeenByName[names.Normalize(lead.Name)]
		if !ok {
			date, ok = firstSeenByName[nameKeyFromEmail(lead.Email)]
		}
		if !ok {
			continue
		}
		lead.MatchedShowUp = true
		lead.MatchedShowUpDate = date
		matched++
	}
	return matched
}

// nameKeyFromEmail turns "jane.doe@x.com" into the normalized key "jane doe".
// Empty when there is no local part to work with.
func nameKeyFromEmail(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return ""
	}
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return names.Normalize(local)
}
