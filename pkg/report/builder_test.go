package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

func testBuilder(opts ...BuilderOption) *Builder {
	opts = append(opts, WithClock(func() time.Time {
		return time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
	}))
	return NewBuilder(logging.NewNopLogger(), opts...)
}

func fixtureInputs() Inputs {
	return Inputs{
		Ads: []attribution.AdRow{
			{DateKey: "2026-07-10", AdID: "ad-a", Funnel: attribution.FunnelFree, Spend: 500, MetaLeads: 20, Impressions: 10000, Clicks: 200},
			{DateKey: "2026-08-10", AdID: "ad-a", Funnel: attribution.FunnelFree, Spend: 400, MetaLeads: 10, Impressions: 8000, Clicks: 150},
			{DateKey: "2026-08-20", AdID: "ad-b", Funnel: attribution.FunnelFree, Spend: 100, MetaLeads: 5, Impressions: 2000, Clicks: 40},
		},
		Leads: []attribution.LeadRecord{
			{CreatedDateKey: "2026-07-10", Funnel: attribution.FunnelFree},
			{CreatedDateKey: "2026-08-10", Funnel: attribution.FunnelFree, Revenue: revenue(2_000_000)},
			{CreatedDateKey: "2026-08-20", Funnel: attribution.FunnelFree},
		},
		ShowUps: []attribution.ShowUpDailyRow{
			{DateKey: "2026-08-11", Funnel: attribution.FunnelFree, ShowUps: 8, NewShowUps: 3, Sessions: 2},
			{DateKey: "2026-08-18", Funnel: attribution.FunnelFree, ShowUps: 6, NewShowUps: 2, Sessions: 2},
		},
		Registrations: []attribution.RegistrationRow{
			{EventDateKey: "2026-08-11", GuestEmail: "a@x.com", Funnel: attribution.FunnelFree, MatchedZoom: true, MatchedHubspot: true},
		},
		HasCRMAttributionColumns: true,
	}
}

func revenue(v float64) *float64 { return &v }

func TestBuildAnchorsOnPrimaryDate(t *testing.T) {
	rep, err := testBuilder().Build(fixtureInputs())
	require.NoError(t, err)

	// Max date across inputs, not wall clock (the fake clock says the 21st).
	assert.Equal(t, "2026-08-20", rep.PrimaryDate)

	cur := rep.Windows[WindowCurrentMonth]
	require.NotNil(t, cur)
	assert.Equal(t, "2026-08-01", cur.StartKey)
	assert.Equal(t, "2026-08-20", cur.EndKey)

	prev := rep.Windows[WindowPreviousMonth]
	require.NotNil(t, prev)
	assert.Equal(t, "2026-07-01", prev.StartKey)
	assert.Equal(t, "2026-07-31", prev.EndKey)

	// 2026-08-20 is a Thursday; the week starts Monday the 17th.
	week := rep.Windows[WindowCurrentWeek]
	require.NotNil(t, week)
	assert.Equal(t, "2026-08-17", week.StartKey)

	prevWeek := rep.Windows[WindowPreviousWeek]
	require.NotNil(t, prevWeek)
	assert.Equal(t, "2026-08-10", prevWeek.StartKey)
	assert.Equal(t, "2026-08-16", prevWeek.EndKey)

	// 90-day lookback ends at the anchor and spans 90 days inclusive.
	lookback := rep.Windows[WindowLookback]
	require.NotNil(t, lookback)
	assert.Equal(t, "2026-05-23", lookback.StartKey)
	assert.Equal(t, "2026-08-20", lookback.EndKey)

	assert.Len(t, rep.Windows, 5)
}

func TestBuildNoDatedRows(t *testing.T) {
	_, err := testBuilder().Build(Inputs{})
	require.Error(t, err)
	assert.True(t, funnelerrors.IsValidation(err))
}

func TestBuildStagesChain(t *testing.T) {
	rep, err := testBuilder().Build(fixtureInputs())
	require.NoError(t, err)

	require.Len(t, rep.Stages, 7)
	assert.Equal(t, "impressions", rep.Stages[0].Name)
	assert.Nil(t, rep.Stages[0].ConversionFromPrevious)

	for _, stage := range rep.Stages[1:] {
		require.NotNil(t, stage.ConversionFromPrevious, "stage %s", stage.Name)
	}

	// clicks / impressions for the current month: (150+40) / (8000+2000).
	assert.InDelta(t, 0.019, *rep.Stages[1].ConversionFromPrevious, 1e-9)
}

func TestBuildTrendSeries(t *testing.T) {
	rep, err := testBuilder().Build(fixtureInputs())
	require.NoError(t, err)

	require.Len(t, rep.Trend, 60)
	assert.Equal(t, "2026-08-20", rep.Trend[59].DateKey)
	assert.Equal(t, "2026-06-22", rep.Trend[0].DateKey)

	byDay := map[string]TrendRow{}
	for _, row := range rep.Trend {
		byDay[row.DateKey] = row
	}
	assert.InDelta(t, 400.0, byDay["2026-08-10"].Spend, 1e-9)
	assert.Equal(t, 8, byDay["2026-08-11"].ShowUps)
	// Quiet days are zero-filled, not missing.
	assert.Equal(t, TrendRow{DateKey: "2026-08-12"}, byDay["2026-08-12"])
}

func TestBuildDeltas(t *testing.T) {
	rep, err := testBuilder().Build(fixtureInputs())
	require.NoError(t, err)

	// Spend: 500 in July vs 500 in August (400+100).
	require.NotNil(t, rep.MonthDeltas.Spend)
	assert.InDelta(t, 0.0, *rep.MonthDeltas.Spend, 1e-9)

	// Previous week had show-ups (11th), current week too (18th): 6 vs 8.
	require.NotNil(t, rep.WeekDeltas.ShowUps)
	assert.InDelta(t, -25.0, *rep.WeekDeltas.ShowUps, 1e-9)

	// No great leads in July, so the CPGL baseline is absent.
	assert.Nil(t, rep.MonthDeltas.CPGL)
}

func TestBuildDrillDowns(t *testing.T) {
	rep, err := testBuilder().Build(fixtureInputs())
	require.NoError(t, err)

	leads := rep.DrillDowns["leads"]
	require.NotEmpty(t, leads)
	for i := 1; i < len(leads); i++ {
		assert.LessOrEqual(t, leads[i-1].DateKey, leads[i].DateKey)
	}

	// Cost metrics alias the outcome table they divide into.
	assert.Equal(t, leads, rep.DrillDowns["cpl"])
	assert.Equal(t, rep.DrillDowns["great_leads"], rep.DrillDowns["cpgl"])
}

func TestBuildInsightsWired(t *testing.T) {
	rep, err := testBuilder().Build(fixtureInputs())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.Insights.Headline)
	assert.NotEmpty(t, rep.Insights.Alerts)
	assert.NotEmpty(t, rep.Insights.Recommendations)
}
