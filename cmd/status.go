package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/funnel-cli/pkg/db"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check database and review queue connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()

			health := db.Check(ctx, app.Pool)
			if health.Healthy {
				fmt.Fprintf(out, "Database: healthy (%.1fms, %d/%d conns in use)\n",
					float64(health.Latency.Microseconds())/1000,
					health.AcquiredConns, health.TotalConns)
			} else {
				fmt.Fprintf(out, "Database: UNHEALTHY: %v\n", health.Error)
			}

			length, err := app.ReviewQueue().Length(ctx)
			if err != nil {
				fmt.Fprintf(out, "Review queue: unreachable: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "Review queue: reachable (%d cases queued)\n", length)
			return nil
		},
	}
}
