package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
)

// loadConfigFile loads the config file strictly. A missing file yields the
// defaults with environment overrides and the path set for saving.
func loadConfigFile() (*config.Config, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.New()
		cfg.SetPath(path)
		return cfg, nil
	}
	return cfg, err
}

// loadConfigForEdit loads the config file without environment overrides, so
// saving it back never persists BATCHRUN_* values. A missing file yields the
// defaults with the path set for saving.
func loadConfigForEdit() (*config.Config, error) {
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}

	cfg, err := config.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		cfg.SetPath(path)
		return cfg, nil
	}
	return cfg, err
}

// NewConfigGetCmd creates the config get command.
func NewConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print a configuration value",
		Example: `  batchrun config get executor.batch_size
  batchrun config get logging.level`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFile()
			if err != nil {
				return err
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			cmd.Println(value)
			return nil
		},
	}
}

// NewConfigSetCmd creates the config set command.
func NewConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Sets KEY to VALUE and writes the configuration file. The value is
validated first; an invalid value leaves the file unchanged.`,
		Example: `  # Run eight tasks per window by default
  batchrun config set executor.batch_size 8

  # Drop empty results
  batchrun config set executor.result_policy drop_empty`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigForEdit()
			if err != nil {
				return err
			}
			if err = cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err = cfg.Save(); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			logger.Debug().Ctx(cmd.Context()).Str("key", args[0]).Str("value", args[1]).Msg("configuration updated")
			cmd.Printf("Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

// NewConfigListCmd creates the config list command.
func NewConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFile()
			if err != nil {
				return err
			}
			values := cfg.List()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			for _, key := range config.Keys() {
				fmt.Fprintf(tw, "%s\t%s\n", key, values[key])
			}
			return tw.Flush()
		},
	}
}

