// Package engine wires the Entry Source, Entry Sink, Diff Engine, and
// Executor into the single entry point described by spec §3's lifecycle:
// a run is one call to Sync(RunConfig).
package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gcsync/internal/diffengine"
	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/executor"
	"gcsync/internal/logger"
)

// Result aggregates the counts spec §7 requires in the summary line,
// plus the full outcome list for callers that want per-item detail (the
// run-history persistence layer, the status server).
type Result struct {
	Skipped  int
	Upserted int
	Deleted  int
	Failed   int
	Outcomes []entry.Outcome
}

// Sync drives one full pipeline run. src enumerates the sync source; dst
// enumerates the destination for diffing purposes; sink is the
// destination's write capability. src and dst are ordinarily backed by
// the same concrete root as sink (e.g. source/local.Source and
// sink/local.Sink both rooted at the same directory), but the engine
// only ever sees the three capability records.
//
// Include/exclude filters (cfg.Includes/Excludes) apply only to src's
// enumeration, per spec §4.A; dst is enumerated unfiltered so that
// mirror mode can still see (and delete) destination entries the source
// filter excludes — this is what seed scenario S5 requires.
//
// Sync owns one cancellable context shared by every stage. FailFast
// cancels it on the first per-item error, which stops both sides'
// enumeration in addition to the executor's own internal stop. An
// outcome whose error is of a fatal kind (errs.Kind.Fatal, e.g. Auth)
// cancels it in any mode, and Sync then returns that error.
// onOutcome, if given, is called once per Outcome as it is produced,
// before Sync's own bookkeeping — internal/statusd uses this to keep a
// live counter snapshot for an in-flight run without this package
// needing to know statusd exists.
func Sync(ctx context.Context, src, dst entry.Source, sink entry.Sink, cfg entry.RunConfig, onOutcome ...func(entry.Outcome)) (Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcStream := src.Stream(runCtx, cfg.Includes, cfg.Excludes, cfg.Recursive)
	dstStream := dst.Stream(runCtx, nil, nil, cfg.Recursive)

	actions, errc := diffengine.Run(runCtx, srcStream, dstStream, cfg.Mirror)
	outcomes := executor.Run(runCtx, actions, sink, cfg)

	var res Result
	var fatalErr error
	for o := range outcomes {
		res.Outcomes = append(res.Outcomes, o)
		report(cfg.Direction, o)
		for _, hook := range onOutcome {
			hook(o)
		}

		if o.Status == entry.OutcomeErr {
			res.Failed++
			var se *errs.SyncError
			if fatalErr == nil && errors.As(o.Err, &se) && se.Kind.Fatal() {
				fatalErr = o.Err
				cancel()
			}
			if cfg.FailFast {
				cancel()
			}
			continue
		}
		switch o.Action.Kind {
		case entry.ActionSkip:
			res.Skipped++
		case entry.ActionUpsert:
			res.Upserted++
		case entry.ActionDelete:
			res.Deleted++
		}
	}

	runErr := <-errc
	if fatalErr != nil {
		return res, fatalErr
	}
	if runErr != nil {
		return res, runErr
	}

	fmt.Printf("sync complete: %d skipped, %d upserted, %d deleted, %d failed\n",
		res.Skipped, res.Upserted, res.Deleted, res.Failed)

	return res, nil
}

// report prints the single per-action line spec §7 requires (direction,
// key, result) and, for failures, logs the structured detail via zap.
func report(dir entry.Direction, o entry.Outcome) {
	result := "ok"
	if o.Status == entry.OutcomeErr {
		result = "error: " + o.Err.Error()
	}
	fmt.Printf("%s %s %s %s\n", dir, o.Action.Kind, o.Action.Key, result)

	if o.Status == entry.OutcomeErr {
		logger.Log.Error("action failed",
			zap.String("direction", dir.String()),
			zap.String("kind", o.Action.Kind.String()),
			zap.String("key", string(o.Action.Key)),
			zap.Error(o.Err))
	}
}
