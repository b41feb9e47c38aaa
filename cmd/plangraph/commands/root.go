package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openfroyo/plangraph/pkg/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	// settings is loaded from --config before any subcommand runs.
	settings = config.DefaultSettings()
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "plangraph",
		Short: "plangraph - planning graph heuristics for STRIPS problems",
		Long: `plangraph builds relaxed planning graphs with mutual exclusion for ground
STRIPS problems and evaluates the levelsum, maxlevel and setlevel heuristics.

Problems are read from YAML, JSON, CUE or Starlark files. Estimates can be
cached in a SQLite database and inspected with 'plangraph history'.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings(configPath)
			if err != nil {
				return err
			}
			if verbose {
				s.Telemetry.Logging.Level = "debug"
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			settings = s
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newEstimateCommand())
	rootCmd.AddCommand(newFillCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
