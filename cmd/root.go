// Package cmd is the cobra CLI front-end: argument parsing and usage
// printing, explicitly out of scope for the core sync engine (spec §1)
// but necessary to drive it.
package cmd

import (
	"github.com/spf13/cobra"

	"gcsync/internal/config"
	"gcsync/internal/db"
	"gcsync/internal/logger"
)

var (
	cfg   *config.Config
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "gcsync",
	Short: "One-way rsync between a local filesystem and a GCS bucket prefix",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if err := logger.Init(debug); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		return db.Init(cfg.HistoryDBPath)
	},
}

// Execute runs the command tree and returns the process exit code
// spec §6 mandates (0 success, 1 per-item error, 2 config/usage error,
// 3 auth error, 4 cancelled).
func Execute() int {
	err := rootCmd.Execute()
	return exitCode(err)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
