package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

func testEngine() *Engine {
	return NewEngine(
		WithEngineLogger(logging.NewNopLogger()),
		WithClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)
}

func sight(name, dateKey string) Sighting {
	return Sighting{SessionID: "s1", DateKey: dateKey, CanonicalName: name}
}

func TestObserveNewIdentity(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}

	muts := e.Observe(snap, sight("Emil Bakiyev", "2025-05-01"))

	require.Len(t, muts, 2)
	assert.Equal(t, MutationUpsertIdentity, muts[0].Kind)
	assert.Equal(t, MutationAppendLog, muts[1].Kind)
	assert.Equal(t, ActionNewRecord, muts[1].Log.Action)

	require.Len(t, snap.Identities, 1)
	id := snap.Identities[0]
	assert.Equal(t, "Emil Bakiyev", id.CanonicalName)
	assert.Equal(t, 1, id.TotalAppearances)
	assert.Equal(t, "2025-05-01", id.FirstSeenDate)
}

func TestObserveBlocklistedDiscarded(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{
		Blocklist: []BlocklistEntry{{NamePattern: "conference room"}},
	}

	muts := e.Observe(snap, sight("Conference Room A", "2025-05-01"))

	assert.Empty(t, muts)
	assert.Empty(t, snap.Identities)
}

func TestObserveBlocklistByExternalID(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{
		Blocklist: []BlocklistEntry{{ExternalUserID: "zoom-999"}},
	}

	s := sight("Looks Like A Person", "2025-05-01")
	s.ExternalUserID = "zoom-999"

	assert.Empty(t, e.Observe(snap, s))
}

func TestObserveDeterministicEmailMatch(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}
	first := sight("Emil Bakiyev", "2025-05-01")
	first.Email = "e@x.com"
	e.Observe(snap, first)

	second := sight("E. Bakiyev", "2025-05-08")
	second.Email = "E@X.COM"
	muts := e.Observe(snap, second)

	require.Len(t, snap.Identities, 1)
	id := snap.Identities[0]
	assert.Equal(t, 2, id.TotalAppearances)
	assert.True(t, id.HasAlias("E. Bakiyev"))

	// Email match plus a new alias logs auto_merge_email.
	var actions []LogAction
	for _, m := range muts {
		if m.Kind == MutationAppendLog {
			actions = append(actions, m.Log.Action)
		}
	}
	assert.Contains(t, actions, ActionAutoMergeEmail)
}

func TestObserveContainedNameMatch(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}
	e.Observe(snap, sight("Emil Bakiyev", "2025-05-01"))

	e.Observe(snap, sight("Emil", "2025-05-08"))

	require.Len(t, snap.Identities, 1)
	assert.Equal(t, 2, snap.Identities[0].TotalAppearances)
}

func TestObserveEarlierSightingMovesFirstSeen(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}
	e.Observe(snap, sight("Emil Bakiyev", "2025-05-08"))
	e.Observe(snap, sight("Emil Bakiyev", "2025-05-01"))

	assert.Equal(t, "2025-05-01", snap.Identities[0].FirstSeenDate)
}

func TestObserveAutoMergeFuzzy(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}
	e.Observe(snap, sight("Emil Bakiyev", "2025-05-01"))

	// One-letter typo in the first name: high confidence, single match.
	muts := e.Observe(snap, sight("Emile Bakiyev", "2025-05-08"))

	require.Len(t, snap.Identities, 1)
	id := snap.Identities[0]
	assert.Equal(t, 2, id.TotalAppearances)
	assert.True(t, id.HasAlias("Emile Bakiyev"))

	var logged *MergeLogEntry
	for _, m := range muts {
		if m.Kind == MutationAppendLog {
			logged = m.Log
		}
	}
	require.NotNil(t, logged)
	assert.Contains(t, []LogAction{ActionAutoMergeFuzzy, ActionAutoMergeName}, logged.Action)
	assert.GreaterOrEqual(t, logged.Confidence, AutoMergeThreshold)
}

func TestObserveMediumBandOpensReview(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}
	e.Observe(snap, sight("John Smith", "2025-05-01"))

	// Similar but not conclusive: new provisional identity plus a case.
	muts := e.Observe(snap, sight("Jon Smith", "2025-05-08"))

	require.Len(t, snap.Identities, 2)
	require.Len(t, snap.Pending, 1)

	c := snap.Pending[0]
	assert.Equal(t, CaseStatusPending, c.Status)
	assert.GreaterOrEqual(t, c.Confidence, ReviewThreshold)
	assert.Less(t, c.Confidence, AutoMergeThreshold)

	var kinds []MutationKind
	for _, m := range muts {
		kinds = append(kinds, m.Kind)
	}
	assert.Contains(t, kinds, MutationCreateCase)

	// Attendance is provisionally on the new identity.
	for _, id := range snap.Identities {
		assert.Equal(t, 1, id.TotalAppearances)
	}
}

func TestObserveDistinctNamesStaySeparate(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}
	e.Observe(snap, sight("Emil Bakiyev", "2025-05-01"))
	e.Observe(snap, sight("Lori Smith", "2025-05-01"))

	assert.Len(t, snap.Identities, 2)
	assert.Empty(t, snap.Pending)
}

func TestObserveNoteTakerIdentitiesIgnored(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{
		Identities: []*CanonicalIdentity{{
			CanonicalID:   "nt-1",
			CanonicalName: "Emil Bakiyev",
			NameAliases:   []string{"Emil Bakiyev"},
			IsNoteTaker:   true,
		}},
	}

	e.Observe(snap, sight("Emil Bakiyev", "2025-05-01"))

	// The note-taker record is not a match candidate; a fresh identity
	// is created instead.
	require.Len(t, snap.Identities, 2)
	assert.Equal(t, 0, snap.Identities[0].TotalAppearances)
}

func TestObserveSessionBatchSeesEarlierDecisions(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}

	muts := e.ObserveSession(snap, []Sighting{
		sight("Emil Bakiyev", "2025-05-01"),
		sight("Emil Bakiyev", "2025-05-01"),
	})

	require.Len(t, snap.Identities, 1)
	assert.Equal(t, 2, snap.Identities[0].TotalAppearances)
	assert.NotEmpty(t, muts)
}

func TestObserveEmptyNameIgnored(t *testing.T) {
	e := testEngine()
	snap := &Snapshot{}
	assert.Empty(t, e.Observe(snap, sight("", "2025-05-01")))
}

func TestFirstSeenIndexExcludesNoteTakers(t *testing.T) {
	snap := &Snapshot{
		Identities: []*CanonicalIdentity{
			{CanonicalName: "Emil Bakiyev", FirstSeenDate: "2025-05-01"},
			{CanonicalName: "Notes Bot", FirstSeenDate: "2025-05-01", IsNoteTaker: true},
		},
	}

	idx := snap.FirstSeenIndex()
	assert.Equal(t, map[string]string{"emil bakiyev": "2025-05-01"}, idx)
}
