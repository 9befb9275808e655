package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgu13/ark-analysis/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

// newConfigInitCmd creates the config init command, which writes a default
// config file.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Example: `  # Create $HOME/.ark/config.yaml with defaults
  ark config init

  # Overwrite an existing file
  ark config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = config.DefaultPath()
			}
			if path == "" {
				return fmt.Errorf("cannot resolve config path; pass --config")
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			}

			if err := config.Default().Write(path); err != nil {
				return err
			}
			cmd.Printf("Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// newConfigValidateCmd creates the config validate command.
func newConfigValidateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			cmd.Printf("✅ Configuration is valid\n")
			if verbose {
				cmd.Println()
				cmd.Println("Configuration details:")
				cmd.Printf("  Batch size: %d\n", cfg.Pixel.BatchSize)
				cmd.Printf("  Workers: %d\n", cfg.Pixel.Workers)
				cmd.Printf("  Label column: %s\n", cfg.Pixel.LabelColumn)
				cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
				cmd.Printf("  Logging format: %s\n", cfg.Logging.Format)
				cmd.Printf("  Log file: %s\n", cfg.Logging.File)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed configuration information")
	return cmd
}
