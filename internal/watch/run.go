package watch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gcsync/internal/logger"
)

// SyncFunc performs one full sync(RunConfig) run. It is
// internal/engine.Sync bound to its RunConfig and endpoints by the
// caller (cmd/), kept abstract here so this package never imports
// internal/entry's Source/Sink contracts directly.
type SyncFunc func(ctx context.Context) error

// Run performs an initial sync, then watches root and re-triggers fn
// (debounced by delay) every time something under root changes, until
// ctx is cancelled. It returns the initial sync's error, if any;
// errors from later re-syncs are logged, not returned, since a single
// bad re-sync should not end a long-running watch.
func Run(ctx context.Context, root string, delay time.Duration, bufferSize int, fn SyncFunc) error {
	if err := fn(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	w, err := newWatcher(root, bufferSize)
	if err != nil {
		return err
	}
	go w.run(ctx)

	triggers := debounce(w.events, delay)

	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-triggers:
			if !ok {
				return nil
			}
			logger.Log.Info("re-sync triggered by filesystem change", zap.String("root", root))
			if err := fn(ctx); err != nil {
				logger.Log.Error("re-sync failed", zap.Error(err))
			}
		}
	}
}
