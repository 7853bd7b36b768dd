// Package watch drives an incremental re-sync of internal/engine.Sync
// whenever a local root changes, debounced so a burst of filesystem
// activity triggers one re-diff rather than one per file (supplemental
// mode, SPEC_FULL §10 — the teacher's primary mode for local sync,
// adapted here to drive a batch rsync engine instead of copying files
// one at a time as events arrive).
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"gcsync/internal/logger"
)

// watcher recursively watches a directory tree and emits a signal (not
// per-file event detail) on every change under root. The batch engine
// re-diffs the whole tree on each trigger, so unlike the teacher's
// file-by-file copier there is nothing useful to carry per-event beyond
// "something changed".
type watcher struct {
	fw     *fsnotify.Watcher
	events chan struct{}
}

func newWatcher(root string, bufferSize int) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &watcher{fw: fw, events: make(chan struct{}, bufferSize)}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

func (w *watcher) run(ctx context.Context) {
	defer close(w.events)
	defer w.fw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if fsEvent.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
					if err := w.fw.Add(fsEvent.Name); err != nil {
						logger.Log.Warn("failed to watch new directory",
							zap.String("path", fsEvent.Name), zap.Error(err))
					}
				}
			}

			select {
			case w.events <- struct{}{}:
			default:
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Log.Error("watcher error", zap.Error(err))
		}
	}
}
