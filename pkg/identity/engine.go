package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
	"github.com/otherjamesbrown/funnel-cli/pkg/names"
)

// Engine is the cross-session identity resolution state machine. It is pure
// given a Snapshot: it mutates the snapshot in place and returns the
// mutation intents a store must apply. All I/O lives in the store.
type Engine struct {
	logger logging.Logger
	now    func() time.Time
	newID  func() string
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an identity resolution engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: logging.MustGlobal(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(logging.F("component", "identity_engine"))
	return e
}

// ObserveSession processes one session's deduplicated sightings in order
// and returns the accumulated mutations. Later sightings in the batch see
// identities created by earlier ones.
func (e *Engine) ObserveSession(snap *Snapshot, sightings []Sighting) []Mutation {
	var out []Mutation
	for _, s := range sightings {
		out = append(out, e.Observe(snap, s)...)
	}
	return out
}

// Observe runs the per-sighting state machine:
// blocklist discard → deterministic match update → single high-confidence
// auto-merge → medium-band pending review → new identity.
func (e *Engine) Observe(snap *Snapshot, s Sighting) []Mutation {
	if s.CanonicalName == "" {
		return nil
	}

	for i := range snap.Blocklist {
		if snap.Blocklist[i].Matches(s) {
			e.logger.Debug("Sighting discarded by blocklist",
				logging.F("name", s.CanonicalName),
				logging.F("session_id", s.SessionID))
			return nil
		}
	}

	if id, viaEmail := e.deterministicMatch(snap, s); id != nil {
		return e.recordAppearance(id, s, viaEmail)
	}

	best, bestID, aboveAuto := e.fuzzyScan(snap, s)

	switch {
	case aboveAuto == 1 && best >= AutoMergeThreshold:
		return e.autoMerge(bestID, s, best)

	case bestID != nil && best >= ReviewThreshold:
		// Ambiguous: either a medium-band score, or several identities
		// cleared the auto-merge bar. Never guessed; a human decides.
		return e.openReview(snap, bestID, s, best)

	default:
		return e.createIdentity(snap, s)
	}
}

// deterministicMatch finds an identity matching by email, external user ID,
// or an exact/contained name against the alias set.
func (e *Engine) deterministicMatch(snap *Snapshot, s Sighting) (*CanonicalIdentity, bool) {
	key := names.Normalize(s.CanonicalName)

	for _, id := range snap.Identities {
		if id.IsNoteTaker {
			continue
		}
		if s.Email != "" && id.Email != "" && names.Normalize(s.Email) == names.Normalize(id.Email) {
			return id, true
		}
		if nameMatchesAliasSet(key, id) {
			return id, false
		}
	}
	return nil, false
}

// nameMatchesAliasSet reports an exact or contained match between the
// normalized sighting name and the identity's canonical name or aliases.
// Containment requires the shorter side to be at least four characters so
// initials do not latch onto real names.
func nameMatchesAliasSet(key string, id *CanonicalIdentity) bool {
	candidates := append([]string{id.CanonicalName}, id.NameAliases...)
	for _, c := range candidates {
		ck := names.Normalize(c)
		if ck == "" {
			continue
		}
		if ck == key {
			return true
		}
		if len(key) >= 4 && containsWord(ck, key) {
			return true
		}
		if len(ck) >= 4 && containsWord(key, ck) {
			return true
		}
	}
	return false
}

// containsWord reports whether inner appears in outer at a word boundary.
func containsWord(outer, inner string) bool {
	if outer == inner {
		return true
	}
	idx := strings.Index(outer, inner)
	if idx < 0 {
		return false
	}
	beforeOK := idx == 0 || outer[idx-1] == ' '
	end := idx + len(inner)
	afterOK := end == len(outer) || outer[end] == ' '
	return beforeOK && afterOK
}

// recordAppearance updates a deterministically matched identity.
func (e *Engine) recordAppearance(id *CanonicalIdentity, s Sighting, viaEmail bool) []Mutation {
	id.TotalAppearances++
	id.AddExternalID(s.ExternalUserID)
	if id.Email == "" && s.Email != "" {
		id.Email = s.Email
	}
	if id.FirstSeenDate == "" || (s.DateKey != "" && s.DateKey < id.FirstSeenDate) {
		id.FirstSeenDate = s.DateKey
	}
	id.UpdatedAt = e.now()

	muts := []Mutation{{Kind: MutationUpsertIdentity, Identity: id}}

	if id.AddAlias(s.CanonicalName) {
		action := ActionAliasAdded
		if viaEmail {
			action = ActionAutoMergeEmail
		}
		muts = append(muts, e.logEntry(action, s.CanonicalName, id, 100,
			fmt.Sprintf("matched existing identity %q", id.CanonicalName)))
	}

	return muts
}

// fuzzyScan scores the sighting against every countable identity.
func (e *Engine) fuzzyScan(snap *Snapshot, s Sighting) (best int, bestID *CanonicalIdentity, aboveAuto int) {
	for _, id := range snap.Identities {
		if id.IsNoteTaker {
			continue
		}
		c := MatchConfidence(s, id)
		if c >= AutoMergeThreshold {
			aboveAuto++
		}
		if c > best {
			best = c
			bestID = id
		}
	}
	return best, bestID, aboveAuto
}

// autoMerge folds the sighting into the single high-confidence match.
func (e *Engine) autoMerge(id *CanonicalIdentity, s Sighting, confidence int) []Mutation {
	id.TotalAppearances++
	id.AddAlias(s.CanonicalName)
	id.AddExternalID(s.ExternalUserID)
	if id.Email == "" && s.Email != "" {
		id.Email = s.Email
	}
	if id.FirstSeenDate == "" || (s.DateKey != "" && s.DateKey < id.FirstSeenDate) {
		id.FirstSeenDate = s.DateKey
	}
	id.UpdatedAt = e.now()

	action := ActionAutoMergeFuzzy
	if confidence >= 97 {
		action = ActionAutoMergeName
	}

	e.logger.Debug("Auto-merged sighting",
		logging.F("name", s.CanonicalName),
		logging.F("target", id.CanonicalName),
		logging.F("confidence", confidence))

	return []Mutation{
		{Kind: MutationUpsertIdentity, Identity: id},
		e.logEntry(action, s.CanonicalName, id, confidence,
			fmt.Sprintf("fuzzy match against %q", id.CanonicalName)),
	}
}

// openReview creates the provisional identity and a pending case against
// the most similar existing one. Attendance goes to the new identity until
// the case is resolved.
func (e *Engine) openReview(snap *Snapshot, existing *CanonicalIdentity, s Sighting, confidence int) []Mutation {
	muts := e.createIdentity(snap, s)
	created := muts[0].Identity

	c := PendingReviewCase{
		CaseID:     e.newID(),
		CandidateA: existing.CanonicalID,
		CandidateB: created.CanonicalID,
		Confidence: confidence,
		Reason: fmt.Sprintf("%q resembles existing identity %q",
			s.CanonicalName, existing.CanonicalName),
		Status:    CaseStatusPending,
		CreatedAt: e.now(),
	}
	snap.Pending = append(snap.Pending, c)

	e.logger.Info("Opened pending review case",
		logging.F("case_id", c.CaseID),
		logging.F("candidate_a", existing.CanonicalName),
		logging.F("candidate_b", s.CanonicalName),
		logging.F("confidence", confidence))

	return append(muts, Mutation{Kind: MutationCreateCase, Case: &c})
}

// createIdentity starts a brand-new canonical identity for the sighting.
func (e *Engine) createIdentity(snap *Snapshot, s Sighting) []Mutation {
	id := &CanonicalIdentity{
		CanonicalID:      e.newID(),
		CanonicalName:    s.CanonicalName,
		NameAliases:      []string{s.CanonicalName},
		Email:            s.Email,
		TotalAppearances: 1,
		FirstSeenDate:    s.DateKey,
		CreatedAt:        e.now(),
		UpdatedAt:        e.now(),
	}
	id.AddExternalID(s.ExternalUserID)
	snap.Identities = append(snap.Identities, id)

	return []Mutation{
		{Kind: MutationUpsertIdentity, Identity: id},
		e.logEntry(ActionNewRecord, s.CanonicalName, id, 100, "first sighting"),
	}
}

func (e *Engine) logEntry(action LogAction, source string, target *CanonicalIdentity, confidence int, reason string) Mutation {
	return Mutation{
		Kind: MutationAppendLog,
		Log: &MergeLogEntry{
			Action:              action,
			SourceName:          source,
			TargetCanonicalID:   target.CanonicalID,
			TargetCanonicalName: target.CanonicalName,
			Confidence:          confidence,
			Reason:              reason,
			Timestamp:           e.now(),
		},
	}
}
