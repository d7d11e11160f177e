// Package report assembles full funnel analytics reports: five rolling
// attribution windows anchored on the latest data date, a 60-day trend
// series, funnel stage chains, ad rankings, narrative insights, and
// per-metric drill-down tables. The output is a plain data structure with no
// rendering concerns; the cmd layer decides how to print it.
package report

import (
	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
)

// Window names. Every report carries exactly these five.
const (
	WindowCurrentMonth  = "current_month"
	WindowPreviousMonth = "previous_month"
	WindowCurrentWeek   = "current_week"
	WindowPreviousWeek  = "previous_week"
	WindowLookback      = "lookback"
)

// trendDays is the length of the day-by-day series ending at the primary
// date.
const trendDays = 60

// FunnelStage is one step in the stage chain. ConversionFromPrevious is nil
// for the first stage.
type FunnelStage struct {
	Name                   string   `json:"name"`
	Value                  float64  `json:"value"`
	ConversionFromPrevious *float64 `json:"conversion_from_previous,omitempty"`
}

// TrendRow is one day of the trend series. Days with no data are present
// with zero values so charts have a continuous axis.
type TrendRow struct {
	DateKey       string  `json:"date_key"`
	Spend         float64 `json:"spend"`
	Leads         int     `json:"leads"`
	Registrations int     `json:"registrations"`
	ShowUps       int     `json:"show_ups"`
	NewShowUps    int     `json:"new_show_ups"`
}

// DrillDownRow is one (date, funnel) cell of a metric table.
type DrillDownRow struct {
	DateKey string             `json:"date_key"`
	Funnel  attribution.Funnel `json:"funnel"`
	Value   float64            `json:"value"`
}

// Deltas are percent changes against a baseline window. Nil means no
// baseline, not zero change.
type Deltas struct {
	Spend         *float64 `json:"spend,omitempty"`
	Leads         *float64 `json:"leads,omitempty"`
	Registrations *float64 `json:"registrations,omitempty"`
	ShowUps       *float64 `json:"show_ups,omitempty"`
	CPL           *float64 `json:"cpl,omitempty"`
	CPGL          *float64 `json:"cpgl,omitempty"`
}

// Report is the complete analytics result for one build.
type Report struct {
	PrimaryDate string `json:"primary_date"`
	GeneratedAt string `json:"generated_at"`

	Windows map[string]*attribution.WindowSnapshot `json:"windows"`

	MonthDeltas Deltas `json:"month_deltas"`
	WeekDeltas  Deltas `json:"week_deltas"`

	Trend  []TrendRow    `json:"trend"`
	Stages []FunnelStage `json:"stages"`

	TopAds    []attribution.AdPerformance `json:"top_ads"`
	BottomAds []attribution.AdPerformance `json:"bottom_ads"`

	Insights attribution.Insights `json:"insights"`

	// DrillDowns maps metric name to its table. Cost metrics alias the
	// table of the outcome they divide into, so cpl shares the leads table.
	DrillDowns map[string][]DrillDownRow `json:"drill_downs"`
}
