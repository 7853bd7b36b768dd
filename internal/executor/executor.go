// Package executor drives a stream of SyncActions to completion through a
// Sink, bounded to a fixed number of concurrent in-flight actions (spec
// §4.E/§5).
package executor

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"gcsync/internal/entry"
)

var errUnknownAction = errors.New("executor: unrecognized SyncAction kind")

// Run consumes actions and reports one Outcome per action on the returned
// channel, which closes once actions is drained (or the run is aborted).
// At most cfg.MaxConcurrency actions are driven concurrently; a
// non-positive value means unbounded. In FailFast mode, the first Outcome
// with OutcomeErr cancels every still-running and not-yet-started action;
// outcomes already produced are still delivered.
func Run(ctx context.Context, actions <-chan entry.SyncAction, sink entry.Sink, cfg entry.RunConfig) <-chan entry.Outcome {
	out := make(chan entry.Outcome)

	go func() {
		defer close(out)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(runCtx)
		limit := cfg.MaxConcurrency
		if limit <= 0 {
			limit = -1
		}
		g.SetLimit(limit)

		emit := func(o entry.Outcome) bool {
			select {
			case out <- o:
				return true
			case <-runCtx.Done():
				return false
			}
		}

	consume:
		for {
			select {
			case action, ok := <-actions:
				if !ok {
					break consume
				}
				action := action
				g.Go(func() error {
					outcome := drive(gctx, sink, action)
					if !emit(outcome) {
						return gctx.Err()
					}
					if outcome.Status == entry.OutcomeErr && cfg.FailFast {
						cancel()
						return outcome.Err
					}
					return nil
				})
			case <-gctx.Done():
				break consume
			}
		}

		g.Wait()
	}()

	return out
}

func drive(ctx context.Context, sink entry.Sink, action entry.SyncAction) entry.Outcome {
	switch action.Kind {
	case entry.ActionSkip:
		return entry.Outcome{Action: action, Status: entry.OutcomeOK}

	case entry.ActionDelete:
		if err := sink.Delete(ctx, action.Key); err != nil {
			return entry.Outcome{Action: action, Status: entry.OutcomeErr, Err: err}
		}
		return entry.Outcome{Action: action, Status: entry.OutcomeOK}

	case entry.ActionUpsert:
		dst, err := sink.Put(ctx, action.Key, action.Src, action.Src.Open)
		if err != nil {
			return entry.Outcome{Action: action, Status: entry.OutcomeErr, Err: err}
		}
		return entry.Outcome{Action: action, Status: entry.OutcomeOK, Dst: dst}

	default:
		return entry.Outcome{Action: action, Status: entry.OutcomeErr, Err: errUnknownAction}
	}
}
