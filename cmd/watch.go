package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/logger"
	"gcsync/internal/watch"
)

var watchDebounceMS int

var watchCmd = &cobra.Command{
	Use:   "watch <source> <destination>",
	Short: "Watch a local source directory and re-sync on every change",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&mirror, "mirror", "m", false, "delete destination entries absent from the source")
	watchCmd.Flags().StringArrayVarP(&includes, "include", "i", nil, "include glob (repeatable)")
	watchCmd.Flags().StringArrayVarP(&excludes, "exclude", "x", nil, "exclude glob (repeatable)")
	watchCmd.Flags().IntVar(&watchDebounceMS, "debounce-ms", 500, "quiet period after a burst of filesystem changes before re-syncing")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	source, destination := args[0], args[1]

	if _, _, ok := parseGCSURL(source); ok {
		return errs.New(errs.Config, "cmd.watch", source, fmt.Errorf("watch mode requires a local source directory, not a gs:// URL"))
	}

	runCfg := entry.RunConfig{
		Mirror:         mirror,
		RestoreMtime:   true,
		Includes:       includes,
		Excludes:       excludes,
		MaxConcurrency: cfg.MaxConcurrency,
		Recursive:      true,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	const eventBufferSize = 64

	delay := time.Duration(watchDebounceMS) * time.Millisecond
	return watch.Run(ctx, source, delay, eventBufferSize, func(ctx context.Context) error {
		return runOneSync(ctx, source, destination, runCfg)
	})
}
