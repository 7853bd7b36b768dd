// Package diffengine implements the merge of two ordered entry sequences
// into an ordered stream of SyncActions (spec §4.C).
package diffengine

import (
	"context"
	"errors"

	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/predicate"
)

var errOutOfOrder = errors.New("entry source emitted keys out of order")

// Run merges src and dst, emitting SyncActions on the first returned
// channel in ascending key order, provided both input channels already
// are. Mirror enables Delete actions for destination-only keys. The
// action channel is closed when the merge ends; the buffered error
// channel is never closed and receives exactly one value — nil on a
// clean drain, or the fatal error (an error item from either side, a
// predicate error, cancellation, or an OrderingViolation) that ended
// the run early.
func Run(ctx context.Context, src, dst <-chan entry.Item, mirror bool) (<-chan entry.SyncAction, <-chan error) {
	out := make(chan entry.SyncAction)
	errc := make(chan error, 1)

	go func() {
		defer close(out)

		var sItem, dItem entry.Item
		var sOK, dOK bool
		var sPrev, dPrev entry.RelativeKey
		var sSeen, dSeen bool

		sItem, sOK = <-src
		dItem, dOK = <-dst
		// sNew/dNew mark an item not yet checked against its side's
		// previous key; an item that waits in place is checked only once.
		sNew, dNew := true, true

		finish := func(err error) {
			errc <- err
		}

		emit := func(a entry.SyncAction) bool {
			select {
			case out <- a:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for sOK || dOK {
			select {
			case <-ctx.Done():
				finish(errs.New(errs.Cancelled, "diffengine.run", "", ctx.Err()))
				return
			default:
			}

			if sOK && sItem.Err != nil {
				finish(sItem.Err)
				return
			}
			if dOK && dItem.Err != nil {
				finish(dItem.Err)
				return
			}

			if sOK && sNew {
				if sSeen && !sPrev.Less(sItem.Descriptor.Key) {
					finish(errs.New(errs.OrderingViolation, "diffengine.src", string(sItem.Descriptor.Key), errOutOfOrder))
					return
				}
				sPrev, sSeen, sNew = sItem.Descriptor.Key, true, false
			}
			if dOK && dNew {
				if dSeen && !dPrev.Less(dItem.Descriptor.Key) {
					finish(errs.New(errs.OrderingViolation, "diffengine.dst", string(dItem.Descriptor.Key), errOutOfOrder))
					return
				}
				dPrev, dSeen, dNew = dItem.Descriptor.Key, true, false
			}

			switch {
			case sOK && (!dOK || sItem.Descriptor.Key.Less(dItem.Descriptor.Key)):
				if !emit(entry.SyncAction{Kind: entry.ActionUpsert, Key: sItem.Descriptor.Key, Src: sItem.Descriptor}) {
					finish(errs.New(errs.Cancelled, "diffengine.run", "", ctx.Err()))
					return
				}
				sItem, sOK = <-src
				sNew = true

			case dOK && (!sOK || dItem.Descriptor.Key.Less(sItem.Descriptor.Key)):
				if mirror {
					if !emit(entry.SyncAction{Kind: entry.ActionDelete, Key: dItem.Descriptor.Key}) {
						finish(errs.New(errs.Cancelled, "diffengine.run", "", ctx.Err()))
						return
					}
				}
				dItem, dOK = <-dst
				dNew = true

			default: // equal keys
				res, reason, err := predicate.Compare(ctx, sItem.Descriptor, dItem.Descriptor)
				if err != nil {
					finish(err)
					return
				}

				var ok bool
				if res == predicate.Equal {
					ok = emit(entry.SyncAction{Kind: entry.ActionSkip, Key: sItem.Descriptor.Key, Reason: reason})
				} else {
					ok = emit(entry.SyncAction{Kind: entry.ActionUpsert, Key: sItem.Descriptor.Key, Src: sItem.Descriptor})
				}
				if !ok {
					finish(errs.New(errs.Cancelled, "diffengine.run", "", ctx.Err()))
					return
				}

				sItem, sOK = <-src
				dItem, dOK = <-dst
				sNew, dNew = true, true
			}
		}

		finish(nil)
	}()

	return out, errc
}
