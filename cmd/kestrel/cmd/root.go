// Package cmd provides the CLI commands for kestrel.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/logging"
	"github.com/kestrelhq/kestrel/pkg/version"
)

var (
	flagRoot     string
	flagLogLevel string

	loggingCleanup func()
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kestrel",
		Short: "Local code-intelligence engine with hybrid search",
		Long: `Kestrel indexes a source tree into a hybrid lexical + semantic index
and serves ranked retrieval queries over it.

Run 'kestrel index' once, then 'kestrel search <query>' or 'kestrel watch'
to keep the index fresh while you edit.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if flagLogLevel != "" {
				level = flagLogLevel
			}
			_, cleanup, err := logging.Setup(logging.Config{
				Level:         level,
				WriteToStderr: true,
			})
			if err != nil {
				return err
			}
			loggingCleanup = cleanup
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if loggingCleanup != nil {
				loggingCleanup()
			}
		},
	}

	cmd.SetVersionTemplate("kestrel version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root directory")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

// loadConfig loads the config from the --root directory.
func loadConfig() (*config.Config, error) {
	return config.Load(flagRoot)
}
