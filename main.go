// Package main provides the funnel CLI entry point.
// funnel is the command-line interface for the meeting-attendance
// identity-resolution and marketing-attribution analytics system.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/funnel-cli/cmd"
	"github.com/otherjamesbrown/funnel-cli/config"
	"github.com/otherjamesbrown/funnel-cli/pkg/buildinfo"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Funnel CLI - attendance identity resolution and ad attribution",
	Long: `funnel resolves meeting attendees into deduplicated identities and
attributes marketing outcomes back to the ads that produced them.

COMMON WORKFLOWS:
  Load data:       funnel ingest ads ./ads.csv  →  funnel ingest roster ./sessions.json
  Review dupes:    funnel review list  →  funnel review resolve <id> merge
  Fix identities:  funnel identity search "name"  →  funnel identity merge <a> <b>
  Build report:    funnel report  |  funnel report --output json

DISCOVERY:
  funnel <command> --help     Subcommands, flags, and examples for any command
  funnel status               Database and queue connectivity`,
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "funnel version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go version: %s\n", info.GoVersion)
		return nil
	},
}

// configCmd manages CLI configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the funnel CLI configuration settings.`,
}

// configShowCmd displays current configuration.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		configPath, _ := config.ConfigPath()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:    %s\n", configPath)
		fmt.Fprintf(out, "  Output format:  %s\n", cfg.OutputFormat)
		fmt.Fprintf(out, "  Lookback days:  %d\n", cfg.LookbackDays)
		fmt.Fprintf(out, "  Alias file:     %s\n", valueOrDefault(cfg.AliasFile, "(not set)"))
		fmt.Fprintf(out, "  Debug:          %t\n", cfg.Debug)
		fmt.Fprintf(out, "  Database:       %s@%s\n",
			valueOrDefault(cfg.Database.User, "funnel"),
			valueOrDefault(cfg.Database.Host, "localhost"))
		fmt.Fprintf(out, "  Redis:          %s\n", cfg.Redis.Addr)
		return nil
	},
}

// configInitCmd initializes configuration.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a new configuration file with default values if one doesn't exist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Configuration file already exists: %s\n", configPath)
			fmt.Println("Use 'funnel config show' to view current settings.")
			return nil
		}

		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Created configuration file: %s\n", configPath)
		return nil
	},
}

// configSetCmd sets a configuration value.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  output_format  - Default output format (text, json)
  lookback_days  - Drill-down lookback window in days
  alias_file     - YAML file of raw name to canonical name overrides
  debug          - Enable debug mode (true/false)
  redis_addr     - Review queue Redis address (host:port)

Examples:
  funnel config set output_format json
  funnel config set lookback_days 30
  funnel config set alias_file ~/.funnel/aliases.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		currentCfg, err := config.LoadConfig()
		if err != nil {
			currentCfg = config.DefaultConfig()
		}

		switch key {
		case "output_format":
			format := config.OutputFormat(value)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text or json)", value)
			}
			currentCfg.OutputFormat = format
		case "lookback_days":
			var days int
			if _, err := fmt.Sscanf(value, "%d", &days); err != nil || days <= 0 {
				return fmt.Errorf("invalid lookback_days value: %s", value)
			}
			currentCfg.LookbackDays = days
		case "alias_file":
			currentCfg.AliasFile = value
		case "debug":
			switch value {
			case "true", "1":
				currentCfg.Debug = true
			case "false", "0":
				currentCfg.Debug = false
			default:
				return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
			}
		case "redis_addr":
			currentCfg.Redis.Addr = value
		default:
			return fmt.Errorf("unknown configuration key: %s", key)
		}

		if err := config.SaveConfig(currentCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "identity", Title: "Identities:"},
		&cobra.Group{ID: "analysis", Title: "Analysis:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	ingestCmd := cmd.NewIngestCommand()
	ingestCmd.GroupID = "data"
	rootCmd.AddCommand(ingestCmd)

	identityCmd := cmd.NewIdentityCommand()
	identityCmd.GroupID = "identity"
	rootCmd.AddCommand(identityCmd)

	reviewCmd := cmd.NewReviewCommand()
	reviewCmd.GroupID = "identity"
	rootCmd.AddCommand(reviewCmd)

	reportCmd := cmd.NewReportCommand()
	reportCmd.GroupID = "analysis"
	rootCmd.AddCommand(reportCmd)

	statusCmd := cmd.NewStatusCommand()
	statusCmd.GroupID = "setup"
	rootCmd.AddCommand(statusCmd)

	configCmd.GroupID = "setup"
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)

	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
