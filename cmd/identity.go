package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
)

// NewIdentityCommand creates the identity command group.
func NewIdentityCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Inspect and manage attendee identities",
		Long: `Inspect the deduplicated attendee identities and their audit trail,
and apply manual corrections: merges, renames, note-taker marks, and
blocklist entries.

Examples:
  funnel identity list
  funnel identity search "emil"
  funnel identity merge <target-id> <source-id> --reason "same person"
  funnel identity rename <id> "Emil Bakiyev"
  funnel identity notetaker <id>
  funnel identity log --limit 50
  funnel identity blocklist add --name "test account"`,
	}

	cmd.AddCommand(newIdentityListCommand())
	cmd.AddCommand(newIdentitySearchCommand())
	cmd.AddCommand(newIdentityMergeCommand())
	cmd.AddCommand(newIdentityRenameCommand())
	cmd.AddCommand(newIdentityNotetakerCommand())
	cmd.AddCommand(newIdentityLogCommand())
	cmd.AddCommand(newIdentityBlocklistCommand())
	return cmd
}

func newIdentityListCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			ids, err := app.Identities.ListIdentities(ctx)
			if err != nil {
				return err
			}

			sort.Slice(ids, func(i, j int) bool {
				return ids[i].CanonicalName < ids[j].CanonicalName
			})

			if wantJSON(app.Cfg, output) {
				return outputJSON(cmd.OutOrStdout(), ids)
			}
			printIdentityTable(cmd, ids)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output format: text or json")
	return cmd
}

func newIdentitySearchCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search identities by name, alias, or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			svc := identity.NewService(app.Identities, app.Logger)
			ids, err := svc.Search(ctx, args[0])
			if err != nil {
				return err
			}

			if wantJSON(app.Cfg, output) {
				return outputJSON(cmd.OutOrStdout(), ids)
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No identities matched.")
				return nil
			}
			printIdentityTable(cmd, ids)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output format: text or json")
	return cmd
}

func newIdentityMergeCommand() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "merge <target-id> <source-id>",
		Short: "Merge one identity into another",
		Long: `Merge the source identity into the target identity. Aliases and
external IDs are unioned, appearance counts are summed, attendance is
remapped, and the source record is deleted. The merge is logged.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			svc := identity.NewService(app.Identities, app.Logger)
			merged, err := svc.Merge(ctx, args[0], args[1], reason)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s (%s, %d appearances)\n",
				args[1], merged.CanonicalID, merged.CanonicalName, merged.TotalAppearances)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded in the merge log")
	return cmd
}

func newIdentityRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <new-name>",
		Short: "Override an identity's canonical name",
		Long: `Set a new canonical name. The old name is kept as an alias so future
sightings under it still resolve to this identity.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			svc := identity.NewService(app.Identities, app.Logger)
			id, err := svc.Rename(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", id.CanonicalID, id.CanonicalName)
			return nil
		},
	}
}

func newIdentityNotetakerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notetaker <id>",
		Short: "Mark an identity as a note-taker bot",
		Long: `Mark an identity as a note-taker. The record is kept for audit but
excluded from all attendance counts from now on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			svc := identity.NewService(app.Identities, app.Logger)
			if err := svc.MarkNoteTaker(ctx, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as note-taker\n", args[0])
			return nil
		},
	}
}

func newIdentityLogCommand() *cobra.Command {
	var limit int
	var output string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the merge audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.Identities.ListLog(ctx, limit)
			if err != nil {
				return err
			}

			if wantJSON(app.Cfg, output) {
				return outputJSON(cmd.OutOrStdout(), entries)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-20s %-18s %-24s %-5s %s\n", "TIME", "ACTION", "TARGET", "CONF", "SOURCE NAME")
			for _, e := range entries {
				fmt.Fprintf(out, "%-20s %-18s %-24s %-5d %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"),
					e.Action, e.TargetCanonicalName, e.Confidence, e.SourceName)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum log entries to show")
	cmd.Flags().StringVar(&output, "output", "", "output format: text or json")
	return cmd
}

func newIdentityBlocklistCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocklist",
		Short: "Manage the sighting blocklist",
	}

	var namePattern, externalID, addedBy string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a blocklist entry",
		Long: `Add a blocklist entry by name pattern and/or external user ID.
Sightings matching an entry are never counted as people.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if namePattern == "" && externalID == "" {
				return fmt.Errorf("at least one of --name or --external-id is required")
			}

			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			entry := identity.BlocklistEntry{
				NamePattern:    namePattern,
				ExternalUserID: externalID,
				AddedBy:        addedBy,
			}
			if err := app.Identities.AddBlocklistEntry(ctx, entry); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Blocklist entry added")
			return nil
		},
	}
	addCmd.Flags().StringVar(&namePattern, "name", "", "name pattern to block (substring match)")
	addCmd.Flags().StringVar(&externalID, "external-id", "", "external user ID to block")
	addCmd.Flags().StringVar(&addedBy, "added-by", "", "operator recording the entry")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List blocklist entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.Identities.ListBlocklist(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Blocklist is empty.")
				return nil
			}
			fmt.Fprintf(out, "%-30s %-24s %s\n", "NAME PATTERN", "EXTERNAL ID", "ADDED BY")
			for _, e := range entries {
				fmt.Fprintf(out, "%-30s %-24s %s\n", e.NamePattern, e.ExternalUserID, e.AddedBy)
			}
			return nil
		},
	}

	cmd.AddCommand(addCmd)
	cmd.AddCommand(listCmd)
	return cmd
}

// printIdentityTable renders identities in the standard list format.
func printIdentityTable(cmd *cobra.Command, ids []*identity.CanonicalIdentity) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-38s %-24s %-12s %-6s %s\n", "ID", "NAME", "FIRST SEEN", "SEEN", "ALIASES")
	for _, id := range ids {
		name := id.CanonicalName
		if id.IsNoteTaker {
			name += " (bot)"
		}
		fmt.Fprintf(out, "%-38s %-24s %-12s %-6d %s\n",
			id.CanonicalID, name, id.FirstSeenDate, id.TotalAppearances,
			strings.Join(id.NameAliases, ", "))
	}
}
