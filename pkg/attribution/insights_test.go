package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quietSnapshot builds a window with healthy numbers that trigger nothing.
func quietSnapshot() *WindowSnapshot {
	return &WindowSnapshot{
		Spend:          1000,
		Leads:          50,
		GreatLeads:     5,
		QualifiedLeads: 10,
		Registrations:  40,
		ShowUps:        25,
		CostCards:      CostCards{CPL: 20, CPGL: 200},
		Conversions: StageConversions{
			LeadToRegistration:   0.80,
			RegistrationToShowUp: 0.625,
		},
		RegistrationZoomMatchRate: 0.60,
		RegistrationCRMMatchRate:  0.90,
	}
}

func TestBuildAlertsNeverEmpty(t *testing.T) {
	alerts := buildAlerts(InsightInputs{
		Current:                  quietSnapshot(),
		HasCRMAttributionColumns: true,
	})

	require.Len(t, alerts, 1)
	assert.Equal(t, "No anomalies detected this period.", alerts[0])
}

func TestBuildAlertsCPLSpike(t *testing.T) {
	cur := quietSnapshot()
	cur.CostCards.CPL = 30
	prev := quietSnapshot()

	alerts := buildAlerts(InsightInputs{
		Current:                  cur,
		PreviousMonth:            prev,
		HasCRMAttributionColumns: true,
	})

	require.NotEmpty(t, alerts)
	assert.Contains(t, alerts[0], "Cost per lead is up 50%")
}

func TestBuildAlertsShowUpDropWeekOverWeek(t *testing.T) {
	curWeek := quietSnapshot()
	curWeek.ShowUps = 6
	prevWeek := quietSnapshot()
	prevWeek.ShowUps = 10

	alerts := buildAlerts(InsightInputs{
		Current:                  quietSnapshot(),
		CurrentWeek:              curWeek,
		PreviousWeek:             prevWeek,
		HasCRMAttributionColumns: true,
	})

	require.NotEmpty(t, alerts)
	assert.Contains(t, alerts[0], "week-over-week")
}

func TestBuildAlertsDegradedModes(t *testing.T) {
	t.Run("registration fallback is informational", func(t *testing.T) {
		cur := quietSnapshot()
		cur.RegistrationFallback = true

		alerts := buildAlerts(InsightInputs{Current: cur, HasCRMAttributionColumns: true})
		require.Len(t, alerts, 1)
		assert.Contains(t, alerts[0], "CRM membership proxy")
	})

	t.Run("low match rates when richer source present", func(t *testing.T) {
		cur := quietSnapshot()
		cur.RegistrationZoomMatchRate = 0.20
		cur.RegistrationCRMMatchRate = 0.50

		alerts := buildAlerts(InsightInputs{Current: cur, HasCRMAttributionColumns: true})
		require.Len(t, alerts, 2)
		assert.Contains(t, alerts[0], "meeting attendance")
		assert.Contains(t, alerts[1], "CRM identity")
	})

	t.Run("missing attribution columns", func(t *testing.T) {
		alerts := buildAlerts(InsightInputs{Current: quietSnapshot()})
		require.Len(t, alerts, 1)
		assert.Contains(t, alerts[0], "proportional estimates")
	})
}

func TestBuildHeadline(t *testing.T) {
	t.Run("no great leads wins", func(t *testing.T) {
		cur := quietSnapshot()
		cur.GreatLeads = 0

		h := buildHeadline(InsightInputs{Current: cur})
		assert.Contains(t, h, "No great leads")
	})

	t.Run("cpgl improvement month over month", func(t *testing.T) {
		cur := quietSnapshot()
		cur.CostCards.CPGL = 160
		prev := quietSnapshot()
		prev.CostCards.CPGL = 200

		h := buildHeadline(InsightInputs{Current: cur, PreviousMonth: prev})
		assert.Contains(t, h, "improved 20%")
	})

	t.Run("reallocation when rankings available", func(t *testing.T) {
		h := buildHeadline(InsightInputs{
			Current:   quietSnapshot(),
			TopAds:    []AdPerformance{{AdID: "ad-best"}},
			BottomAds: []AdPerformance{{AdID: "ad-worst"}},
		})
		assert.Contains(t, h, "ad-worst")
		assert.Contains(t, h, "ad-best")
	})
}

func TestBuildRecommendationsPriorityOrder(t *testing.T) {
	cur := quietSnapshot()
	cur.Conversions.LeadToRegistration = 0.30
	cur.Conversions.RegistrationToShowUp = 0.40

	recs := buildRecommendations(InsightInputs{
		Current:   cur,
		TopAds:    []AdPerformance{{AdID: "ad-best"}},
		BottomAds: []AdPerformance{{AdID: "ad-worst", Waste: 500}},
	})

	require.Len(t, recs, 3)
	assert.Contains(t, recs[0], "Shift budget")
	assert.Contains(t, recs[1], "Lead-to-registration")
	assert.Contains(t, recs[2], "Registration-to-show-up")
}

func TestBuildRecommendationsFiller(t *testing.T) {
	recs := buildRecommendations(InsightInputs{Current: quietSnapshot()})

	require.NotEmpty(t, recs)
	assert.Contains(t, recs[len(recs)-1], "deterministic attribution linkage")
}

func TestWeekdayParityRecommendation(t *testing.T) {
	// 2026-08-04 is a Tuesday, 2026-08-06 a Thursday.
	days := []ShowUpDailyRow{
		{DateKey: "2026-08-04", Funnel: FunnelFree, ShowUps: 10, Sessions: 2},
		{DateKey: "2026-08-06", Funnel: FunnelFree, ShowUps: 4, Sessions: 2},
	}

	rec, ok := weekdayParityRecommendation(days)
	require.True(t, ok)
	assert.Contains(t, rec, "Tuesday")

	t.Run("no recommendation under one attendee gap", func(t *testing.T) {
		close := []ShowUpDailyRow{
			{DateKey: "2026-08-04", ShowUps: 10, Sessions: 2},
			{DateKey: "2026-08-06", ShowUps: 9, Sessions: 2},
		}
		_, ok := weekdayParityRecommendation(close)
		assert.False(t, ok)
	})
}
