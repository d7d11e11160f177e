package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
	"github.com/otherjamesbrown/funnel-cli/pkg/names"
	"github.com/otherjamesbrown/funnel-cli/pkg/roster"
)

func testResolver(store identity.Store) *Resolver {
	nop := logging.NewNopLogger()
	return NewResolver(
		roster.NewDeduper(names.NewCanonicalizer(nil)),
		identity.NewEngine(identity.WithEngineLogger(nop)),
		store,
		nop,
	)
}

func TestProcessSessionsNewVsReturning(t *testing.T) {
	store := identity.NewMemoryStore()
	r := testResolver(store)

	sessions := []roster.SessionRecord{
		{
			SessionID: "sess-1", DateKey: "2026-08-11", GroupLabel: "Morning Group",
			RawParticipants: []roster.RawParticipant{
				{DisplayName: "Emil Bakiyev", Email: "e@x.com"},
				{DisplayName: "Lori Smith", Email: "l@x.com"},
				{DisplayName: "Fireflies.ai Notetaker"},
			},
		},
		{
			SessionID: "sess-2", DateKey: "2026-08-13", GroupLabel: "Morning Group",
			RawParticipants: []roster.RawParticipant{
				{DisplayName: "Emil Bakiyev", Email: "e@x.com"},
			},
		},
	}

	result, err := r.ProcessSessions(context.Background(), sessions)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Sessions)
	assert.Equal(t, 2, result.NewIdentities)
	require.Len(t, result.ShowUpDaily, 2)

	day1 := result.ShowUpDaily[0]
	assert.Equal(t, "2026-08-11", day1.DateKey)
	assert.Equal(t, attribution.FunnelFree, day1.Funnel)
	// The bot never counts.
	assert.Equal(t, 2, day1.ShowUps)
	assert.Equal(t, 2, day1.NewShowUps)
	assert.Equal(t, 1, day1.Sessions)

	day2 := result.ShowUpDaily[1]
	assert.Equal(t, "2026-08-13", day2.DateKey)
	assert.Equal(t, 1, day2.ShowUps)
	// Emil already existed, so the second day is a returning show-up.
	assert.Equal(t, 0, day2.NewShowUps)

	ids, err := store.ListIdentities(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)
}

func TestProcessSessionsFunnelFromGroupLabel(t *testing.T) {
	store := identity.NewMemoryStore()
	r := testResolver(store)

	sessions := []roster.SessionRecord{
		{
			SessionID: "sess-1", DateKey: "2026-08-11", GroupLabel: "Phoenix Cohort 4",
			RawParticipants: []roster.RawParticipant{
				{DisplayName: "Jane Doe", Email: "j@x.com"},
			},
		},
	}

	result, err := r.ProcessSessions(context.Background(), sessions)
	require.NoError(t, err)
	require.Len(t, result.ShowUpDaily, 1)
	assert.Equal(t, attribution.FunnelPhoenix, result.ShowUpDaily[0].Funnel)
}

func TestProcessSessionsSameDayTwoSessionsCountOncePerPerson(t *testing.T) {
	store := identity.NewMemoryStore()
	r := testResolver(store)

	sessions := []roster.SessionRecord{
		{
			SessionID: "sess-1", DateKey: "2026-08-11", GroupLabel: "Morning",
			RawParticipants: []roster.RawParticipant{{DisplayName: "Jane Doe", Email: "j@x.com"}},
		},
		{
			SessionID: "sess-2", DateKey: "2026-08-11", GroupLabel: "Evening",
			RawParticipants: []roster.RawParticipant{{DisplayName: "Jane Doe", Email: "j@x.com"}},
		},
	}

	result, err := r.ProcessSessions(context.Background(), sessions)
	require.NoError(t, err)
	require.Len(t, result.ShowUpDaily, 1)

	day := result.ShowUpDaily[0]
	// Distinct people per day, not attendances.
	assert.Equal(t, 1, day.ShowUps)
	assert.Equal(t, 1, day.NewShowUps)
	assert.Equal(t, 2, day.Sessions)
}
