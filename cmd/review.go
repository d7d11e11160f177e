package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	funnelerrors "github.com/otherjamesbrown/funnel-cli/pkg/errors"
	"github.com/otherjamesbrown/funnel-cli/pkg/identity"
)

// NewReviewCommand creates the review command group.
func NewReviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Work through pending identity review cases",
		Long: `Pending review cases are possible duplicate identities the resolver
was not confident enough to merge automatically. List them, pull the next
one from the Redis queue, and resolve each with a decision.

Decisions:
  merge      the two candidates are the same person; merge B into A
  keep       the candidates are different people; keep them separate
  notetaker  the new candidate is a bot; mark it and exclude from counts

Examples:
  funnel review list
  funnel review next
  funnel review resolve <case-id> merge
  funnel review resolve <case-id> keep`,
	}

	cmd.AddCommand(newReviewListCommand())
	cmd.AddCommand(newReviewNextCommand())
	cmd.AddCommand(newReviewResolveCommand())
	cmd.AddCommand(newReviewPushCommand())
	return cmd
}

func newReviewListCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending review cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			cases, err := app.Identities.ListPendingCases(ctx)
			if err != nil {
				return err
			}

			if wantJSON(app.Cfg, output) {
				return outputJSON(cmd.OutOrStdout(), cases)
			}

			out := cmd.OutOrStdout()
			if len(cases) == 0 {
				fmt.Fprintln(out, "No pending cases.")
				return nil
			}
			for _, c := range cases {
				printCase(cmd, &c)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output format: text or json")
	return cmd
}

func newReviewNextCommand() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Pop the next case from the review queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			c, err := app.ReviewQueue().Pop(ctx, wait)
			if err != nil {
				if funnelerrors.IsNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty.")
					return nil
				}
				return err
			}

			printCase(cmd, c)
			fmt.Fprintf(cmd.OutOrStdout(), "\nResolve with: funnel review resolve %s <merge|keep|notetaker>\n", c.CaseID)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "how long to block waiting for a case")
	return cmd
}

func newReviewResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <case-id> <merge|keep|notetaker>",
		Short: "Resolve a pending review case",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resolution identity.CaseResolution
			switch args[1] {
			case "merge":
				resolution = identity.ResolveMerge
			case "keep":
				resolution = identity.ResolveKeepSeparate
			case "notetaker":
				resolution = identity.ResolveMarkNotetaker
			default:
				return fmt.Errorf("unknown resolution %q (must be merge, keep, or notetaker)", args[1])
			}

			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			svc := identity.NewService(app.Identities, app.Logger)
			if err := svc.ResolveCase(ctx, args[0], resolution); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Case %s resolved: %s\n", args[0], args[1])
			return nil
		},
	}
}

func newReviewPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push all pending cases to the review queue",
		Long: `Publish every pending case from the database to the Redis queue, for
working through them with 'funnel review next' on another machine.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			cases, err := app.Identities.ListPendingCases(ctx)
			if err != nil {
				return err
			}

			queue := app.ReviewQueue()
			for _, c := range cases {
				if err := queue.Publish(ctx, c); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d cases\n", len(cases))
			return nil
		},
	}
}

// printCase renders one pending case with both candidates.
func printCase(cmd *cobra.Command, c *identity.PendingReviewCase) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Case %s (confidence %d)\n", c.CaseID, c.Confidence)
	fmt.Fprintf(out, "  A (existing): %s\n", c.CandidateA)
	fmt.Fprintf(out, "  B (new):      %s\n", c.CandidateB)
	fmt.Fprintf(out, "  reason:       %s\n", c.Reason)
	fmt.Fprintf(out, "  opened:       %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
}
