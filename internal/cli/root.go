// Package cli wires the ark command tree: pixel cluster mapping commands
// plus configuration management.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jgu13/ark-analysis/internal/config"
	"github.com/jgu13/ark-analysis/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ctxKey is the private type for context values owned by this package.
type ctxKey int

// configKey carries the loaded *config.Config in the command context.
const configKey ctxKey = iota

// configFromCmd returns the config loaded by the root command, or defaults
// when the command runs without the root's PersistentPreRunE (tests).
func configFromCmd(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// NewRootCmd creates the root Cobra command for the ark CLI. It loads
// configuration and sets up logging in PersistentPreRunE so every
// subcommand finds a logger in its context.
func NewRootCmd(ver string) *cobra.Command {
	var closeLog func() error

	cmd := &cobra.Command{
		Use:     "ark",
		Short:   "ark pixel analysis CLI",
		Long:    "ark: map multiplexed-imaging pixel data onto trained SOM clusters",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			loggingCfg := logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				File:   cfg.Logging.File,
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				loggingCfg.Level = "debug"
				loggingCfg.Format = logging.FormatConsole
				loggingCfg.File = ""
			}

			logger, closer, err := logging.New(loggingCfg)
			if err != nil {
				return err
			}
			closeLog = closer

			ctx := logging.WithContext(cmd.Context(), logging.ComponentLogger(logger, "cli"))
			ctx = context.WithValue(ctx, configKey, cfg)
			cmd.SetContext(ctx)

			logging.FromContext(ctx).Debug().Str("command", cmd.Name()).Msg("command started")
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if closeLog != nil {
				return closeLog()
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "path to config file (default $HOME/.ark/config.yaml)")
	cmd.AddCommand(newPixelsCmd(), newConfigCmd())

	return cmd
}

const rootCmdExample = `  # Map pixels of three FOVs onto trained SOM clusters
  ark pixels map --fovs fov0,fov1,fov2 --data ./pixel_mats --norm norm_vals.feather --codes weights.feather

  # Map every FOV table found in the data directory
  ark pixels map --data ./pixel_mats --norm norm_vals.feather --codes weights.feather

  # Check inputs without writing anything
  ark pixels validate --data ./pixel_mats --norm norm_vals.feather --codes weights.feather

  # Report per-cluster pixel counts of a finished run
  ark pixels summary --data ./pixel_mats

  # Initialize configuration
  ark config init`
