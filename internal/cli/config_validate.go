package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the configuration file for syntax and semantic correctness.

This includes:
- YAML syntax
- executor.batch_size is a positive integer
- executor.result_policy is keep_all or drop_empty
- output and logging values are among the supported choices`,
		Example: `  # Validate current configuration
  batchrun config validate

  # Validate and show detailed information
  batchrun config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("✅ Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}

	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	if cfg.Path() != "" {
		cmd.Printf("  Config file: %s\n", cfg.Path())
	}
	cmd.Printf("  Batch size: %d\n", cfg.Executor.BatchSize)
	cmd.Printf("  Result policy: %s\n", cfg.Executor.ResultPolicy)
	cmd.Printf("  Output format: %s\n", cfg.Output.DefaultFormat)
	cmd.Printf("  Output precision: %d\n", cfg.Output.Precision)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}
	if cfg.Logging.Audit.Enabled {
		cmd.Println("  Audit logging: enabled")
	}
}
