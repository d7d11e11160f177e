// Package identity maintains canonical person identities across meeting
// sessions. It decides, per sighting, whether a name belongs to an existing
// identity, should auto-merge into one, needs human review, or is a new
// person, and records every decision in an append-only merge log.
package identity

import (
	"strings"
	"time"

	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// CanonicalIdentity is the single deduplicated record for one real person.
// CanonicalID is stable for the lifetime of the person; the alias set only
// grows; note-taker identities are retained for audit but excluded from all
// attendance counts.
type CanonicalIdentity struct {
	CanonicalID      string    `json:"canonical_id"`
	CanonicalName    string    `json:"canonical_name"`
	NameAliases      []string  `json:"name_aliases"`
	ExternalUserIDs  []string  `json:"external_user_ids,omitempty"`
	Email            string    `json:"email,omitempty"`
	TotalAppearances int       `json:"total_appearances"`
	FirstSeenDate    string    `json:"first_seen_date,omitempty"` // YYYY-MM-DD
	IsNoteTaker      bool      `json:"is_note_taker"`
	MergedFrom       []string  `json:"merged_from,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasAlias reports whether the identity already carries the name (normalized
// comparison).
func (c *CanonicalIdentity) HasAlias(name string) bool {
	key := names.Normalize(name)
	for _, a := range c.NameAliases {
		if names.Normalize(a) == key {
			return true
		}
	}
	return false
}

// AddAlias records a new alias. Returns false if the name was already known.
func (c *CanonicalIdentity) AddAlias(name string) bool {
	if name == "" || c.HasAlias(name) {
		return false
	}
	c.NameAliases = append(c.NameAliases, name)
	return true
}

// HasExternalID reports whether the identity carries the external user ID.
func (c *CanonicalIdentity) HasExternalID(id string) bool {
	for _, e := range c.ExternalUserIDs {
		if e == id {
			return true
		}
	}
	return false
}

// AddExternalID records a new external user ID if not already present.
func (c *CanonicalIdentity) AddExternalID(id string) {
	if id == "" || c.HasExternalID(id) {
		return
	}
	c.ExternalUserIDs = append(c.ExternalUserIDs, id)
}

// Sighting is one deduplicated attendee observation from a single session,
// as produced by roster dedup.
type Sighting struct {
	SessionID      string `json:"session_id"`
	DateKey        string `json:"date_key"`
	CanonicalName  string `json:"canonical_name"`
	ExternalUserID string `json:"external_user_id,omitempty"`
	Email          string `json:"email,omitempty"`
}

// CaseStatus is the lifecycle state of a pending review case. The three
// terminal states are never re-opened automatically.
type CaseStatus string

const (
	CaseStatusPending         CaseStatus = "pending"
	CaseStatusMerged          CaseStatus = "merged"
	CaseStatusKeptSeparate    CaseStatus = "kept_separate"
	CaseStatusMarkedNotetaker CaseStatus = "marked_notetaker"
)

// Terminal reports whether the status is final.
func (s CaseStatus) Terminal() bool {
	return s == CaseStatusMerged || s == CaseStatusKeptSeparate || s == CaseStatusMarkedNotetaker
}

// PendingReviewCase is a possible duplicate-identity match below the
// auto-merge threshold, surfaced for human adjudication instead of guessed.
type PendingReviewCase struct {
	CaseID     string     `json:"case_id"`
	CandidateA string     `json:"candidate_a"` // existing identity
	CandidateB string     `json:"candidate_b"` // new/ambiguous identity
	Confidence int        `json:"confidence"`  // 0-100
	Reason     string     `json:"reason"`
	Status     CaseStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// LogAction enumerates merge-log entry kinds.
type LogAction string

const (
	ActionNewRecord        LogAction = "new_record"
	ActionAutoMergeFuzzy   LogAction = "auto_merge_fuzzy"
	ActionAutoMergeName    LogAction = "auto_merge_name"
	ActionAutoMergeEmail   LogAction = "auto_merge_email"
	ActionAliasAdded       LogAction = "alias_added"
	ActionNoteTakerRemoved LogAction = "note_taker_removed"
	ActionManualMerge      LogAction = "manual_merge"
	ActionNameOverride     LogAction = "name_override"
)

// MergeLogEntry is one row of the append-only audit trail. Entries are never
// mutated or deleted.
type MergeLogEntry struct {
	Action              LogAction `json:"action"`
	SourceName          string    `json:"source_name"`
	TargetCanonicalID   string    `json:"target_canonical_id"`
	TargetCanonicalName string    `json:"target_canonical_name"`
	Confidence          int       `json:"confidence"`
	Reason              string    `json:"reason,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
}

// BlocklistEntry rejects sightings by name pattern or external user ID.
// A matching sighting is never counted as a person.
type BlocklistEntry struct {
	NamePattern    string `json:"name_pattern,omitempty"`
	ExternalUserID string `json:"external_user_id,omitempty"`
	AddedBy        string `json:"added_by,omitempty"`
}

// Matches reports whether the sighting hits this blocklist entry.
func (b *BlocklistEntry) Matches(s Sighting) bool {
	if b.ExternalUserID != "" && b.ExternalUserID == s.ExternalUserID {
		return true
	}
	if b.NamePattern != "" &&
		strings.Contains(names.Normalize(s.CanonicalName), names.Normalize(b.NamePattern)) {
		return true
	}
	return false
}

// MutationKind tags a side-effect intent emitted by the engine.
type MutationKind string

const (
	MutationUpsertIdentity  MutationKind = "upsert_identity"
	MutationDeleteIdentity  MutationKind = "delete_identity"
	MutationAppendLog       MutationKind = "append_log"
	MutationCreateCase      MutationKind = "create_case"
	MutationRemapAttendance MutationKind = "remap_attendance"
)

// Mutation is one side-effect description. The engine computes mutations;
// the store applies them, treating each sighting's batch as one atomic unit.
type Mutation struct {
	Kind        MutationKind       `json:"kind"`
	Identity    *CanonicalIdentity `json:"identity,omitempty"`
	DeleteID    string             `json:"delete_id,omitempty"`
	Log         *MergeLogEntry     `json:"log,omitempty"`
	Case        *PendingReviewCase `json:"case,omitempty"`
	RemapFromID string             `json:"remap_from_id,omitempty"`
	RemapToID   string             `json:"remap_to_id,omitempty"`
}

// Snapshot is the engine's working view of the identity store. The engine
// mutates the snapshot in place as it processes sightings so that later
// sightings in the same batch see earlier decisions, and emits the
// corresponding mutation intents for persistence.
type Snapshot struct {
	Identities []*CanonicalIdentity
	Blocklist  []BlocklistEntry
	Pending    []PendingReviewCase
}

// FirstSeenIndex returns the first-seen date per canonical attendee name,
// the one derived index shared with the attribution side (it matches leads
// to show-ups). Note-taker identities are excluded.
func (s *Snapshot) FirstSeenIndex() map[string]string {
	idx := make(map[string]string, len(s.Identities))
	for _, id := range s.Identities {
		if id.IsNoteTaker || id.FirstSeenDate == "" {
			continue
		}
		idx[names.Normalize(id.CanonicalName)] = id.FirstSeenDate
	}
	return idx
}
