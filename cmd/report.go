package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/funnel-cli/pkg/attribution"
	"github.com/otherjamesbrown/funnel-cli/pkg/report"
	"github.com/otherjamesbrown/funnel-cli/pkg/warehouse"
)

// NewReportCommand creates the report command.
func NewReportCommand() *cobra.Command {
	var output string
	var lookbackDays int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the funnel analytics report",
		Long: `Build the full analytics report from the ingested data: rolling
month/week/lookback windows, the 60-day trend, funnel stage conversions,
ad rankings, and narrative insights.

All windows anchor on the latest data date, not the wall clock, so a
report built from last month's exports reads as of last month.

Examples:
  funnel report
  funnel report --output json > report.json
  funnel report --lookback 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			ads, err := app.Warehouse.LoadAdRows(ctx)
			if err != nil {
				return err
			}
			leads, err := app.Warehouse.LoadLeads(ctx)
			if err != nil {
				return err
			}
			showUps, err := app.Warehouse.LoadShowUpDaily(ctx)
			if err != nil {
				return err
			}
			regs, err := app.Warehouse.LoadRegistrations(ctx)
			if err != nil {
				return err
			}
			hasAttribution, err := app.Warehouse.GetFlag(ctx, warehouse.FlagCRMAttributionColumns)
			if err != nil {
				return err
			}

			// Leads matched to meeting attendees through the first-seen index.
			snap, err := app.Identities.Snapshot(ctx)
			if err != nil {
				return err
			}
			attribution.MatchLeadsToShowUps(leads, snap.FirstSeenIndex())

			days := lookbackDays
			if days <= 0 {
				days = app.Cfg.LookbackDays
			}

			start := time.Now()
			builder := report.NewBuilder(app.Logger, report.WithLookbackDays(days))
			rep, err := builder.Build(report.Inputs{
				Ads:                      ads,
				Leads:                    leads,
				ShowUps:                  showUps,
				Registrations:            regs,
				HasCRMAttributionColumns: hasAttribution,
			})
			if err != nil {
				return err
			}
			app.Metrics.ReportBuildsTotal.Inc()
			app.Metrics.ReportBuildSeconds.Observe(time.Since(start).Seconds())

			if wantJSON(app.Cfg, output) {
				return outputJSON(cmd.OutOrStdout(), rep)
			}
			renderReportText(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output format: text or json")
	cmd.Flags().IntVar(&lookbackDays, "lookback", 0, "drill-down lookback in days (default from config)")
	return cmd
}

// renderReportText prints the report in the standard terminal layout.
func renderReportText(w io.Writer, rep *report.Report) {
	fmt.Fprintf(w, "Funnel report as of %s (generated %s)\n\n", rep.PrimaryDate, rep.GeneratedAt)

	fmt.Fprintf(w, "Headline: %s\n\n", rep.Insights.Headline)

	month := rep.Windows[report.WindowCurrentMonth]
	week := rep.Windows[report.WindowCurrentWeek]
	renderWindow(w, "This month", month, rep.MonthDeltas)
	renderWindow(w, "This week", week, rep.WeekDeltas)

	fmt.Fprintln(w, "Funnel stages:")
	for _, stage := range rep.Stages {
		conv := ""
		if stage.ConversionFromPrevious != nil {
			conv = fmt.Sprintf("  (%.1f%% from previous)", *stage.ConversionFromPrevious*100)
		}
		fmt.Fprintf(w, "  %-18s %10.0f%s\n", stage.Name, stage.Value, conv)
	}
	fmt.Fprintln(w)

	if len(rep.TopAds) > 0 {
		fmt.Fprintln(w, "Top ads:")
		renderAdTable(w, rep.TopAds)
	}
	if len(rep.BottomAds) > 0 {
		fmt.Fprintln(w, "Worst ads:")
		renderAdTable(w, rep.BottomAds)
	}

	if len(rep.Insights.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, r := range rep.Insights.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Alerts:")
	for _, a := range rep.Insights.Alerts {
		fmt.Fprintf(w, "  ! %s\n", a)
	}
}

// renderWindow prints one window's cost cards with deltas against its
// baseline window.
func renderWindow(w io.Writer, label string, snap *attribution.WindowSnapshot, deltas report.Deltas) {
	if snap == nil {
		return
	}

	fmt.Fprintf(w, "%s (%s to %s):\n", label, snap.StartKey, snap.EndKey)
	fmt.Fprintf(w, "  spend $%.2f%s  leads %d%s  regs %d  show-ups %d%s\n",
		snap.Spend, deltaSuffix(deltas.Spend),
		snap.Leads, deltaSuffix(deltas.Leads),
		snap.Registrations,
		snap.ShowUps, deltaSuffix(deltas.ShowUps))
	fmt.Fprintf(w, "  CPL $%.2f%s  CPQL $%.2f  CPGL $%.2f%s  CP/show-up $%.2f\n",
		snap.CostCards.CPL, deltaSuffix(deltas.CPL),
		snap.CostCards.CPQL,
		snap.CostCards.CPGL, deltaSuffix(deltas.CPGL),
		snap.CostCards.CPShowUp)
	fmt.Fprintf(w, "  leads by tier: %d standard / %d qualified / %d great\n",
		snap.StandardLeads, snap.QualifiedLeads, snap.GreatLeads)
	if snap.RegistrationFallback {
		fmt.Fprintln(w, "  (registrations estimated from CRM membership proxy)")
	}
	fmt.Fprintln(w)
}

// renderAdTable prints a ranked ad list.
func renderAdTable(w io.Writer, ads []attribution.AdPerformance) {
	fmt.Fprintf(w, "  %-20s %-10s %10s %8s %8s %8s\n", "AD", "FUNNEL", "SPEND", "CPL", "CPGL", "SCORE")
	for _, ad := range ads {
		fmt.Fprintf(w, "  %-20s %-10s %10.2f %8.2f %8.2f %8.3f\n",
			ad.AdID, ad.Funnel, ad.Spend, ad.CPL, ad.CPGL, ad.Score)
	}
	fmt.Fprintln(w)
}

// deltaSuffix formats a percent delta like " (+12.5%)", empty when nil.
func deltaSuffix(d *float64) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf(" (%+.1f%%)", *d)
}
