package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
	"github.com/otherjamesbrown/funnel-cli/pkg/ingest"
	"github.com/otherjamesbrown/funnel-cli/pkg/logging"
	"github.com/otherjamesbrown/funnel-cli/pkg/names"
	"github.com/otherjamesbrown/funnel-cli/pkg/pipeline"
	"github.com/otherjamesbrown/funnel-cli/pkg/roster"
	"github.com/otherjamesbrown/funnel-cli/pkg/warehouse"
)

// NewIngestCommand creates the ingest command group.
func NewIngestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest source data files",
		Long: `Ingest exported source data into the local warehouse.

All ingest commands are idempotent: rows are keyed by their natural key
(ad+date, event+guest, lead created date+email) so re-running an ingest on
a newer export updates rather than duplicates.

Malformed rows are skipped and counted, never fatal.

Examples:
  funnel ingest ads ./ads_export.csv
  funnel ingest leads ./crm_leads.csv
  funnel ingest registrations ./event_registrations.csv
  funnel ingest roster ./sessions.json`,
	}

	cmd.AddCommand(newIngestAdsCommand())
	cmd.AddCommand(newIngestLeadsCommand())
	cmd.AddCommand(newIngestRegistrationsCommand())
	cmd.AddCommand(newIngestRosterCommand())
	return cmd
}

func newIngestAdsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ads <file>",
		Short: "Ingest a daily ad performance export (CSV)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, stats, err := ingest.ParseAdsCSV(f, app.Logger)
			if err != nil {
				return err
			}
			if err := app.Warehouse.UpsertAdRows(ctx, rows); err != nil {
				return err
			}

			app.Metrics.RowsIngestedTotal.WithLabelValues("ads").Add(float64(stats.Parsed))
			app.Metrics.RowsSkippedTotal.WithLabelValues("ads").Add(float64(stats.Skipped))
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d ad rows (%d skipped)\n", stats.Parsed, stats.Skipped)
			return nil
		},
	}
}

func newIngestLeadsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leads <file>",
		Short: "Ingest a CRM lead export (CSV)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			result, err := ingest.ParseLeadsCSV(f, app.Logger)
			if err != nil {
				return err
			}
			if err := app.Warehouse.UpsertLeads(ctx, result.Leads); err != nil {
				return err
			}
			if err := app.Warehouse.SetFlag(ctx, warehouse.FlagCRMAttributionColumns, result.HasAttributionColumns); err != nil {
				return err
			}

			app.Metrics.RowsIngestedTotal.WithLabelValues("leads").Add(float64(result.Stats.Parsed))
			app.Metrics.RowsSkippedTotal.WithLabelValues("leads").Add(float64(result.Stats.Skipped))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ingested %d leads (%d skipped)\n", result.Stats.Parsed, result.Stats.Skipped)
			if !result.HasAttributionColumns {
				fmt.Fprintln(out, "Note: export has no attribution columns; reports will flag this.")
			}
			return nil
		},
	}
}

func newIngestRegistrationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "registrations <file>",
		Short: "Ingest an event registration export (CSV)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, stats, err := ingest.ParseRegistrationsCSV(f, app.Logger)
			if err != nil {
				return err
			}
			if err := app.Warehouse.UpsertRegistrations(ctx, rows); err != nil {
				return err
			}

			app.Metrics.RowsIngestedTotal.WithLabelValues("registrations").Add(float64(stats.Parsed))
			app.Metrics.RowsSkippedTotal.WithLabelValues("registrations").Add(float64(stats.Skipped))
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d registrations (%d skipped)\n", stats.Parsed, stats.Skipped)
			return nil
		},
	}
}

func newIngestRosterCommand() *cobra.Command {
	var format string
	var publishCases bool

	cmd := &cobra.Command{
		Use:   "roster <file>",
		Short: "Ingest session rosters and resolve attendee identities",
		Long: `Parse meeting session rosters, run every attendee through identity
resolution, and store the resulting daily show-up aggregates.

The file format is inferred from the extension (.json or .csv) unless
--format is given. With --publish-cases, new pending review cases are also
pushed to the Redis review queue.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fmtName := format
			if fmtName == "" {
				if strings.EqualFold(filepath.Ext(args[0]), ".csv") {
					fmtName = "csv"
				} else {
					fmtName = "json"
				}
			}

			var sessions []roster.SessionRecord
			var stats ingest.Stats
			switch fmtName {
			case "json":
				sessions, stats, err = ingest.ParseRosterJSON(f, app.Logger)
			case "csv":
				sessions, stats, err = ingest.ParseRosterCSV(f, app.Logger)
			default:
				return fmt.Errorf("unknown roster format %q (must be json or csv)", fmtName)
			}
			if err != nil {
				return err
			}

			aliases, err := app.Cfg.LoadAliases()
			if err != nil {
				return err
			}

			opts := []pipeline.ResolverOption{
				pipeline.WithAliases(aliases),
				pipeline.WithMetrics(app.Metrics),
			}
			if publishCases {
				opts = append(opts, pipeline.WithCasePublisher(app.ReviewQueue()))
			}

			resolver := pipeline.NewResolver(
				roster.NewDeduper(names.NewCanonicalizer(nil)),
				identity.NewEngine(identity.WithEngineLogger(app.Logger)),
				app.Identities,
				app.Logger,
				opts...,
			)

			result, err := resolver.ProcessSessions(ctx, sessions)
			if err != nil {
				return err
			}

			if err := app.Warehouse.UpsertShowUpDaily(ctx, result.ShowUpDaily); err != nil {
				return err
			}

			app.Metrics.RowsIngestedTotal.WithLabelValues("roster").Add(float64(stats.Parsed))
			app.Metrics.RowsSkippedTotal.WithLabelValues("roster").Add(float64(stats.Skipped))
			app.Logger.Info("Roster ingested",
				logging.F("sessions", result.Sessions),
				logging.F("sightings", result.Sightings))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d sessions, %d sightings\n", result.Sessions, result.Sightings)
			fmt.Fprintf(out, "  new identities:  %d\n", result.NewIdentities)
			fmt.Fprintf(out, "  pending cases:   %d\n", result.PendingCases)
			fmt.Fprintf(out, "  show-up days:    %d\n", len(result.ShowUpDaily))
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "roster file format: json or csv (default: inferred)")
	cmd.Flags().BoolVar(&publishCases, "publish-cases", false, "push new review cases to the Redis queue")
	return cmd
}
