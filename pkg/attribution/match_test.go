package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

func TestMatchLeadsToShowUps(t *testing.T) {
	firstSeen := map[string]string{
		"emil bakiyev": "2026-08-11",
		"jane doe":     "2026-08-12",
	}

	leads := []LeadRecord{
		{CreatedDateKey: "2026-08-10", Name: "Emil Bakiyev"},
		{CreatedDateKey: "2026-08-10", Email: "jane.doe@x.com"},
		{CreatedDateKey: "2026-08-10", Name: "Nobody Known", Email: "n@x.com"},
	}

	matched := MatchLeadsToShowUps(leads, firstSeen)
	assert.Equal(t, 2, matched)

	require.True(t, leads[0].MatchedShowUp)
	assert.Equal(t, "2026-08-11", leads[0].MatchedShowUpDate)

	// Name derived from the email local part.
	require.True(t, leads[1].MatchedShowUp)
	assert.Equal(t, "2026-08-12", leads[1].MatchedShowUpDate)

	assert.False(t, leads[2].MatchedShowUp)
	assert.Empty(t, leads[2].MatchedShowUpDate)
}

func TestMatchLeadsToShowUpsEmptyIndex(t *testing.T) {
	leads := []LeadRecord{{Name: "Emil Bakiyev"}}
	assert.Equal(t, 0, MatchLeadsToShowUps(leads, nil))
	assert.False(t, leads[0].MatchedShowUp)
}

func TestSnapshotLeadShowUpMatchRate(t *testing.T) {
	engine := NewEngine(logging.NewNopLogger())

	leads := []LeadRecord{
		{CreatedDateKey: "2026-08-10", Funnel: FunnelFree, MatchedShowUp: true, MatchedShowUpDate: "2026-08-11"},
		{CreatedDateKey: "2026-08-10", Funnel: FunnelFree},
		{CreatedDateKey: "2026-08-10", Funnel: FunnelFree},
		{CreatedDateKey: "2026-09-10", Funnel: FunnelFree, MatchedShowUp: true},
	}

	snap := engine.ComputeSnapshot(nil, leads, nil, nil, "2026-08-01", "2026-08-31")
	assert.Equal(t, 3, snap.Leads)
	// Only the window's leads count toward the rate.
	assert.InDelta(t, 1.0/3.0, snap.LeadShowUpMatchRate, 1e-9)
}
