package report

import (
	"fmt"
	"time"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
)

const (
	dateLayout          = "2006-01-02"
	defaultLookbackDays = 90
	rankedAdCount       = 5
)

// Inputs are the materialized rows a report is built from, plus the
// data-availability flags ingestion established.
type Inputs struct {
	Ads           []attribution.AdRow
	Leads         []attribution.LeadRecord
	ShowUps       []attribution.ShowUpDailyRow
	Registrations []attribution.RegistrationRow

	HasCRMAttributionColumns bool
}

// Builder orchestrates the attribution engine across the report's windows.
type Builder struct {
	engine       *attribution.Engine
	logger       logging.Logger
	lookbackDays int
	now          func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLookbackDays overrides the default 90-day lookback window.
func WithLookbackDays(days int) BuilderOption {
	return func(b *Builder) { b.lookbackDays = days }
}

// WithClock overrides the wall clock, for tests. Only GeneratedAt uses it;
// all window math anchors on data dates.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a report builder.
func NewBuilder(logger logging.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		engine:       attribution.NewEngine(logger),
		logger:       logger.With(logging.F("component", "report_builder")),
		lookbackDays: defaultLookbackDays,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// primaryDate returns the max date key across all inputs. Anchoring on data
// rather than wall clock keeps reports reproducible against frozen history.
func primaryDate(in Inputs) string {
	max := ""
	bump := func(key string) {
		if key > max {
			max = key
		}
	}
	for _, r := range in.Ads {
		bump(r.DateKey)
	}
	for _, r := range in.Leads {
		bump(r.CreatedDateKey)
	}
	for _, r := range in.ShowUps {
		bump(r.DateKey)
	}
	for _, r := range in.Registrations {
		bump(r.EventDateKey)
	}
	return max
}

// Build runs the engine over the five report windows and assembles trend,
// stages, rankings, insights, and drill-downs.
func (b *Builder) Build(in Inputs) (*Report, error) {
	anchorKey := primaryDate(in)
	if anchorKey == "" {
		return nil, fmt.Errorf("building report: no dated rows in input: %w", funnelerrors.ErrValidation)
	}
	anchor, err := time.Parse(dateLayout, anchorKey)
	if err != nil {
		return nil, fmt.Errorf("building report: bad primary date %q: %w", anchorKey, funnelerrors.ErrValidation)
	}

	b.logger.Info("Building report",
		logging.F("primary_date", anchorKey),
		logging.F("ads", len(in.Ads)),
		logging.F("leads", len(in.Leads)))

	windows := map[string]*attribution.WindowSnapshot{}
	compute := func(name, start, end string) *attribution.WindowSnapshot {
		snap := b.engine.ComputeSnapshot(in.Ads, in.Leads, in.ShowUps, in.Registrations, start, end)
		windows[name] = snap
		return snap
	}

	monthStart := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthEnd := monthStart.AddDate(0, 0, -1)
	prevMonthStart := time.Date(prevMonthEnd.Year(), prevMonthEnd.Month(), 1, 0, 0, 0, 0, time.UTC)

	weekStart := startOfWeek(anchor)
	prevWeekStart := weekStart.AddDate(0, 0, -7)
	prevWeekEnd := weekStart.AddDate(0, 0, -1)

	lookbackStart := anchor.AddDate(0, 0, -(b.lookbackDays - 1))

	curMonth := compute(WindowCurrentMonth, key(monthStart), anchorKey)
	prevMonth := compute(WindowPreviousMonth, key(prevMonthStart), key(prevMonthEnd))
	curWeek := compute(WindowCurrentWeek, key(weekStart), anchorKey)
	prevWeek := compute(WindowPreviousWeek, key(prevWeekStart), key(prevWeekEnd))
	compute(WindowLookback, key(lookbackStart), anchorKey)

	top, bottom := attribution.RankAds(curMonth.Ads, rankedAdCount)

	rep := &Report{
		PrimaryDate: anchorKey,
		GeneratedAt: b.now().UTC().Format(time.RFC3339),
		Windows:     windows,
		MonthDeltas: deltas(curMonth, prevMonth),
		WeekDeltas:  deltas(curWeek, prevWeek),
		Trend:       buildTrend(in, anchor),
		Stages:      buildStages(curMonth),
		TopAds:      top,
		BottomAds:   bottom,
		DrillDowns:  buildDrillDowns(in, key(lookbackStart), anchorKey),
	}

	rep.Insights = attribution.BuildInsights(attribution.InsightInputs{
		Current:                  curMonth,
		PreviousMonth:            prevMonth,
		CurrentWeek:              curWeek,
		PreviousWeek:             prevWeek,
		TopAds:                   top,
		BottomAds:                bottom,
		ShowUpDays:               lookbackShowUps(in.ShowUps, key(lookbackStart), anchorKey),
		HasCRMAttributionColumns: in.HasCRMAttributionColumns,
	})

	return rep, nil
}

func key(t time.Time) string { return t.Format(dateLayout) }

// startOfWeek returns the Monday of t's week.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
}

func deltas(cur, prev *attribution.WindowSnapshot) Deltas {
	return Deltas{
		Spend:         attribution.SafeDelta(cur.Spend, prev.Spend),
		Leads:         attribution.SafeDelta(float64(cur.Leads), float64(prev.Leads)),
		Registrations: attribution.SafeDelta(float64(cur.Registrations), float64(prev.Registrations)),
		ShowUps:       attribution.SafeDelta(float64(cur.ShowUps), float64(prev.ShowUps)),
		CPL:           attribution.SafeDelta(cur.CostCards.CPL, prev.CostCards.CPL),
		CPGL:          attribution.SafeDelta(cur.CostCards.CPGL, prev.CostCards.CPGL),
	}
}

// buildStages derives the funnel stage chain from a window snapshot. The
// first stage has no conversion; every later stage converts from its
// predecessor through the safe-divide contract.
func buildStages(snap *attribution.WindowSnapshot) []FunnelStage {
	values := []struct {
		name  string
		value float64
	}{
		{"impressions", float64(snap.Impressions)},
		{"clicks", float64(snap.Clicks)},
		{"leads", float64(snap.Leads)},
		{"registrations", float64(snap.Registrations)},
		{"show_ups", float64(snap.ShowUps)},
		{"qualified_leads", float64(snap.QualifiedLeads)},
		{"great_leads", float64(snap.GreatLeads)},
	}

	stages := make([]FunnelStage, len(values))
	for i, v := range values {
		stages[i] = FunnelStage{Name: v.name, Value: v.value}
		if i > 0 {
			conv := attribution.SafeDivide(v.value, values[i-1].value)
			stages[i].ConversionFromPrevious = &conv
		}
	}
	return stages
}

// buildTrend produces one row per day for the 60 days ending at the anchor.
// Every day is present, zero-filled when nothing happened.
func buildTrend(in Inputs, anchor time.Time) []TrendRow {
	start := anchor.AddDate(0, 0, -(trendDays - 1))
	byDay := make(map[string]*TrendRow, trendDays)

	rows := make([]TrendRow, trendDays)
	for i := 0; i < trendDays; i++ {
		k := key(start.AddDate(0, 0, i))
		rows[i] = TrendRow{DateKey: k}
		byDay[k] = &rows[i]
	}

	for _, r := range in.Ads {
		if row := byDay[r.DateKey]; row != nil {
			row.Spend += r.Spend
		}
	}
	for _, r := range in.Leads {
		if row := byDay[r.CreatedDateKey]; row != nil {
			row.Leads++
		}
	}
	for _, r := range in.Registrations {
		if row := byDay[r.EventDateKey]; row != nil {
			row.Registrations++
		}
	}
	for _, r := range in.ShowUps {
		if row := byDay[r.DateKey]; row != nil {
			row.ShowUps += r.ShowUps
			row.NewShowUps += r.NewShowUps
		}
	}
	return rows
}

func lookbackShowUps(days []attribution.ShowUpDailyRow, startKey, endKey string) []attribution.ShowUpDailyRow {
	var out []attribution.ShowUpDailyRow
	for _, d := range days {
		if d.DateKey >= startKey && d.DateKey <= endKey {
			out = append(out, d)
		}
	}
	return out
}
