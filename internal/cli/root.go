package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the batchrun CLI.
// It wires up configuration overlays, logging, run IDs and audit logging,
// and registers the run, plan and config command groups.
func NewRootCmd(ver string) *cobra.Command {
	var logResult *logging.LogPathResult

	cmd := &cobra.Command{
		Use:           "batchrun",
		Short:         "Run task plans in fixed-size concurrent windows",
		Long:          "batchrun: execute ordered task plans with bounded concurrency and ordered results",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyConfigOverlay(cmd); err != nil {
				return err
			}

			result := setupLogging(cmd)
			logResult = &result
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, logResult)
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "YAML file whose sections override the configuration file")
	cmd.AddCommand(NewRunCmd(), newPlanCmd(), newConfigCmd())

	return cmd
}

// applyConfigOverlay merges the --config file onto a fresh copy of the
// configuration and installs it as the global config.
func applyConfigOverlay(cmd *cobra.Command) error {
	overlay, _ := cmd.Flags().GetString("config")
	if overlay == "" {
		return nil
	}

	cfg := config.New()
	if err := config.ShallowMergeYAML(cfg, overlay); err != nil {
		return fmt.Errorf("applying --config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("applying --config: %w", err)
	}
	config.SetGlobalConfig(cfg)
	return nil
}

const rootCmdExample = `  # Run a plan with the configured batch size
  batchrun run plan.yaml

  # Run three tasks at a time and print results as JSON
  batchrun run plan.yaml --batch-size 3 --output json

  # Drop empty results, as older plans expected
  batchrun run plan.yaml --result-policy drop_empty

  # Show how a plan will be split into windows
  batchrun plan windows plan.yaml --batch-size 4

  # Initialize and edit configuration
  batchrun config init
  batchrun config set executor.batch_size 8`

// newPlanCmd creates the plan command group.
func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "plan", Short: "Plan file commands"}
	cmd.AddCommand(NewPlanValidateCmd(), NewPlanWindowsCmd())
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(
		NewConfigInitCmd(), NewConfigSetCmd(), NewConfigGetCmd(),
		NewConfigListCmd(), NewConfigValidateCmd(),
	)
	return cmd
}
