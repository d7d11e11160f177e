package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedFixture() []AdRow {
	return []AdRow{
		// Strong performer: cheap great leads across two days.
		{DateKey: "2026-08-04", AdID: "ad-hero", Funnel: FunnelFree, Spend: 100, MetaLeads: 10, QualityScore: 80,
			AttributedLeads: 10, AttributedQualifiedLeads: 4, AttributedGreatLeads: 2, AttributedShowUps: 6},
		{DateKey: "2026-08-05", AdID: "ad-hero", Funnel: FunnelFree, Spend: 100, MetaLeads: 8, QualityScore: 80,
			AttributedLeads: 8, AttributedQualifiedLeads: 3, AttributedGreatLeads: 1, AttributedShowUps: 5},
		// Middling: qualified but never great.
		{DateKey: "2026-08-04", AdID: "ad-mid", Funnel: FunnelFree, Spend: 150, MetaLeads: 6, QualityScore: 50,
			AttributedLeads: 6, AttributedQualifiedLeads: 1, AttributedShowUps: 2},
		// Burner: spend with nothing to show.
		{DateKey: "2026-08-04", AdID: "ad-burn", Funnel: FunnelFree, Spend: 500, MetaLeads: 2, QualityScore: 20,
			AttributedLeads: 2},
	}
}

func TestRankAds(t *testing.T) {
	top, bottom := RankAds(rankedFixture(), 1)

	require.Len(t, top, 1)
	require.Len(t, bottom, 1)
	assert.Equal(t, "ad-hero", top[0].AdID)
	assert.Equal(t, "ad-burn", bottom[0].AdID)

	// Daily rows rolled into one entry.
	assert.InDelta(t, 200.0, top[0].Spend, 1e-9)
	assert.InDelta(t, 18.0, top[0].AttributedLeads, 1e-9)
}

func TestRankAdsTopAndBottomDisjoint(t *testing.T) {
	top, bottom := RankAds(rankedFixture(), 5)

	seen := make(map[string]bool)
	for _, p := range top {
		seen[p.AdID] = true
	}
	for _, p := range bottom {
		assert.False(t, seen[p.AdID], "ad %s appears in both lists", p.AdID)
	}
	// Three distinct ads, all in top when n exceeds the population.
	assert.Len(t, top, 3)
	assert.Empty(t, bottom)
}

func TestRankAdsDeterministic(t *testing.T) {
	top1, bottom1 := RankAds(rankedFixture(), 2)
	top2, bottom2 := RankAds(rankedFixture(), 2)

	assert.Equal(t, top1, top2)
	assert.Equal(t, bottom1, bottom2)
}

func TestWastePenalizesNoQualityOutcomes(t *testing.T) {
	burner := AdPerformance{Spend: 100, AttributedLeads: 2, CPL: 50}
	producer := AdPerformance{Spend: 100, AttributedLeads: 2, AttributedQualifiedLeads: 1, AttributedGreatLeads: 1, CPL: 50}

	assert.Greater(t, waste(burner), waste(producer))
}
