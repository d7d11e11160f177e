package attribution

import (
	"fmt"
	"time"
)

const maxRecommendations = 3

// InsightInputs is everything the rule set looks at: the current window and
// its comparison baselines, the ranked ads, and data-availability flags the
// loader establishes during ingestion.
type InsightInputs struct {
	Current       *WindowSnapshot
	PreviousMonth *WindowSnapshot
	CurrentWeek   *WindowSnapshot
	PreviousWeek  *WindowSnapshot

	TopAds    []AdPerformance
	BottomAds []AdPerformance

	// ShowUpDays feeds the weekday-parity check; usually the lookback rows.
	ShowUpDays []ShowUpDailyRow

	// HasCRMAttributionColumns is false when the CRM export lacked the
	// advanced attribution columns, which forces proportional fallback.
	HasCRMAttributionColumns bool
}

// Insights is the rule-based narrative for one report.
type Insights struct {
	Headline        string   `json:"headline"`
	Recommendations []string `json:"recommendations"`
	Alerts          []string `json:"alerts"`
}

// BuildInsights runs the full rule set. The alerts list is never empty; a
// quiet window yields the single "no anomalies" entry.
func BuildInsights(in InsightInputs) Insights {
	return Insights{
		Headline:        buildHeadline(in),
		Recommendations: buildRecommendations(in),
		Alerts:          buildAlerts(in),
	}
}

// buildHeadline picks one sentence for the top of the report. Rules fire in
// severity order: a window with zero great leads is the story no matter what
// else happened.
func buildHeadline(in InsightInputs) string {
	cur := in.Current

	if cur.GreatLeads == 0 {
		return fmt.Sprintf("No great leads generated on $%.0f spend this period. Review targeting before scaling budget.", cur.Spend)
	}

	if in.PreviousMonth != nil {
		if d := SafeDelta(cur.CostCards.CPGL, in.PreviousMonth.CostCards.CPGL); d != nil && *d < -15 {
			return fmt.Sprintf("Cost per great lead improved %.0f%% month-over-month to $%.2f.", -*d, cur.CostCards.CPGL)
		}
	}

	if len(in.TopAds) > 0 && len(in.BottomAds) > 0 {
		return fmt.Sprintf("Reallocate budget from %q to %q: the gap in cost per great lead is the biggest lever this period.",
			in.BottomAds[0].AdID, in.TopAds[0].AdID)
	}

	return fmt.Sprintf("%d great leads on $%.0f spend (CPGL $%.2f).", cur.GreatLeads, cur.Spend, cur.CostCards.CPGL)
}

// buildRecommendations emits at most three actions in priority order. A
// generic attribution-linkage suggestion pads the list when fewer than three
// concrete rules trigger.
func buildRecommendations(in InsightInputs) []string {
	cur := in.Current
	var recs []string

	if len(in.TopAds) > 0 && len(in.BottomAds) > 0 && in.BottomAds[0].AdID != in.TopAds[0].AdID {
		recs = append(recs, fmt.Sprintf("Shift budget from %q (waste score %.0f) to %q (top blended score).",
			in.BottomAds[0].AdID, in.BottomAds[0].Waste, in.TopAds[0].AdID))
	}

	if cur.Leads > 0 && cur.Conversions.LeadToRegistration < 0.50 {
		recs = append(recs, fmt.Sprintf("Lead-to-registration conversion is %.0f%% (target 50%%). Tighten the post-lead nurture sequence.",
			cur.Conversions.LeadToRegistration*100))
	}

	if cur.Registrations > 0 && cur.Conversions.RegistrationToShowUp < 0.45 {
		recs = append(recs, fmt.Sprintf("Registration-to-show-up conversion is %.0f%% (target 45%%). Add reminder touches before the session.",
			cur.Conversions.RegistrationToShowUp*100))
	}

	if len(recs) < maxRecommendations {
		if rec, ok := weekdayParityRecommendation(in.ShowUpDays); ok {
			recs = append(recs, rec)
		}
	}

	if len(recs) < maxRecommendations {
		recs = append(recs, "Add deterministic attribution linkage (click IDs or UTM capture on lead forms) to replace proportional estimates.")
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// weekdayParityRecommendation compares average show-ups per session on
// Tuesdays vs Thursdays. A gap of one or more attendees suggests moving
// sessions to the stronger day.
func weekdayParityRecommendation(days []ShowUpDailyRow) (string, bool) {
	var tueShowUps, tueSessions, thuShowUps, thuSessions int
	for _, d := range days {
		t, err := time.Parse("2006-01-02", d.DateKey)
		if err != nil {
			continue
		}
		switch t.Weekday() {
		case time.Tuesday:
			tueShowUps += d.ShowUps
			tueSessions += d.Sessions
		case time.Thursday:
			thuShowUps += d.ShowUps
			thuSessions += d.Sessions
		}
	}
	if tueSessions == 0 || thuSessions == 0 {
		return "", false
	}
	tueAvg := SafeDivide(float64(tueShowUps), float64(tueSessions))
	thuAvg := SafeDivide(float64(thuShowUps), float64(thuSessions))
	gap := tueAvg - thuAvg
	if gap < 0 {
		gap = -gap
	}
	if gap < 1 {
		return "", false
	}
	strong, weak := "Tuesday", "Thursday"
	if thuAvg > tueAvg {
		strong, weak = "Thursday", "Tuesday"
	}
	return fmt.Sprintf("%s sessions average %.1f more show-ups than %s. Consider consolidating sessions onto %s.",
		strong, gap, weak, strong), true
}

// buildAlerts evaluates every anomaly rule. Informational entries (degraded
// data modes) count as alerts too, so a reader always learns what the report
// could not see. Never returns an empty list.
func buildAlerts(in InsightInputs) []string {
	cur := in.Current
	var alerts []string

	if in.PreviousMonth != nil {
		if d := SafeDelta(cur.CostCards.CPL, in.PreviousMonth.CostCards.CPL); d != nil && *d > 25 {
			alerts = append(alerts, fmt.Sprintf("Cost per lead is up %.0f%% month-over-month ($%.2f vs $%.2f).",
				*d, cur.CostCards.CPL, in.PreviousMonth.CostCards.CPL))
		}
		if d := SafeDelta(cur.Conversions.RegistrationToShowUp, in.PreviousMonth.Conversions.RegistrationToShowUp); d != nil && *d < -25 {
			alerts = append(alerts, fmt.Sprintf("Registration-to-show-up conversion dropped %.0f%% month-over-month.", -*d))
		}
	}

	if in.CurrentWeek != nil && in.PreviousWeek != nil {
		if d := SafeDelta(float64(in.CurrentWeek.ShowUps), float64(in.PreviousWeek.ShowUps)); d != nil && *d < -30 {
			alerts = append(alerts, fmt.Sprintf("Show-ups dropped %.0f%% week-over-week (%d vs %d).",
				-*d, in.CurrentWeek.ShowUps, in.PreviousWeek.ShowUps))
		}
	}

	if cur.RegistrationFallback {
		alerts = append(alerts, "No registration-level source available; registration counts use the CRM membership proxy.")
	} else {
		if cur.RegistrationZoomMatchRate < 0.35 {
			alerts = append(alerts, fmt.Sprintf("Only %.0f%% of registrations matched to meeting attendance. Show-up linkage is unreliable below 35%%.",
				cur.RegistrationZoomMatchRate*100))
		}
		if cur.RegistrationCRMMatchRate < 0.70 {
			alerts = append(alerts, fmt.Sprintf("Only %.0f%% of registrations matched a CRM identity (target 70%%). Check email normalization on the registration form.",
				cur.RegistrationCRMMatchRate*100))
		}
	}

	if !in.HasCRMAttributionColumns {
		alerts = append(alerts, "CRM export lacks attribution columns; ad-level outcomes are proportional estimates.")
	}

	if len(alerts) == 0 {
		alerts = append(alerts, "No anomalies detected this period.")
	}
	return alerts
}
