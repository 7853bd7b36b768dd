package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gcsync/internal/engine"
	"gcsync/internal/entry"
	"gcsync/internal/logger"
	"gcsync/internal/model"
	"gcsync/internal/repository"
	"gcsync/internal/statusd"
)

var (
	recursive  bool
	mirror     bool
	includes   []string
	excludes   []string
	failFast   bool
	statusAddr string
)

var syncCmd = &cobra.Command{
	Use:   "sync <source> <destination>",
	Short: "Run one sync pass from source to destination",
	Args:  cobra.ExactArgs(2),
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "recurse into subdirectories/prefixes")
	syncCmd.Flags().BoolVarP(&mirror, "mirror", "m", false, "delete destination entries absent from the source")
	syncCmd.Flags().StringArrayVarP(&includes, "include", "i", nil, "include glob (repeatable)")
	syncCmd.Flags().StringArrayVarP(&excludes, "exclude", "x", nil, "exclude glob (repeatable)")
	syncCmd.Flags().BoolVar(&failFast, "fail-fast", false, "cancel outstanding work on the first per-item error")
	syncCmd.Flags().StringVar(&statusAddr, "status-addr", "", "serve live run status at this address (e.g. :8080)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	source, destination := args[0], args[1]

	return runOneSync(cmd.Context(), source, destination, entry.RunConfig{
		Mirror:         mirror,
		RestoreMtime:   true,
		Includes:       includes,
		Excludes:       excludes,
		MaxConcurrency: cfg.MaxConcurrency,
		Recursive:      recursive,
		FailFast:       failFast,
	})
}

// runOneSync resolves both endpoints, drives one engine.Sync run,
// records the result to run history, and returns an error only when
// the process should exit non-zero (spec §6).
func runOneSync(ctx context.Context, source, destination string, runCfg entry.RunConfig) error {
	srcEp, err := resolveEndpoint(source, cfg, false)
	if err != nil {
		return err
	}
	dstEp, err := resolveEndpoint(destination, cfg, runCfg.RestoreMtime)
	if err != nil {
		return err
	}
	if err := validateDirection(srcEp, dstEp); err != nil {
		return err
	}
	runCfg.Direction = direction(srcEp)

	var state *statusd.State
	var hooks []func(entry.Outcome)
	if statusAddr != "" {
		state = statusd.NewState()
		srv := statusd.NewServer(statusAddr, state)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
		hooks = append(hooks, state.Observe)
	}

	startedAt := time.Now()
	res, runErr := engine.Sync(ctx, srcEp.source, dstEp.source, dstEp.sink, runCfg, hooks...)
	if state != nil {
		state.Finish()
	}

	saveHistory(source, destination, runCfg, res, startedAt, runErr)

	if runErr != nil {
		return runErr
	}
	if res.Failed > 0 {
		return fmt.Errorf("sync completed with %d failed action(s)", res.Failed)
	}
	return nil
}

func saveHistory(source, destination string, runCfg entry.RunConfig, res engine.Result, startedAt time.Time, runErr error) {
	status := model.RunStatusSuccess
	errMsg := ""
	if runErr != nil || res.Failed > 0 {
		status = model.RunStatusFailed
	}
	if runErr != nil {
		errMsg = runErr.Error()
	}

	repo := repository.NewRunRepository()
	h := &model.RunHistory{
		Source:      source,
		Destination: destination,
		Direction:   runCfg.Direction.String(),
		Mirror:      runCfg.Mirror,
		Status:      status,
		Skipped:     res.Skipped,
		Upserted:    res.Upserted,
		Deleted:     res.Deleted,
		Failed:      res.Failed,
		StartedAt:   startedAt,
		DurationMS:  time.Since(startedAt).Milliseconds(),
		ErrMsg:      errMsg,
	}
	if err := repo.Save(h); err != nil {
		logger.Log.Warn("failed to save run history", zap.Error(err))
	}
}
