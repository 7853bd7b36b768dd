package watch

import "time"

// debounce coalesces a burst of signals on in into a single value on
// the returned channel once delay has elapsed with no further signal.
// This is the teacher's pipeline.Debounce (pipeline/debounce.go)
// generalized from a per-path map of timers to a single whole-run
// timer: the batch engine re-diffs the entire tree on every trigger, so
// there is no per-path key to debounce on.
func debounce(in <-chan struct{}, delay time.Duration) <-chan struct{} {
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)

		var timer *time.Timer
		var timerC <-chan time.Time

		for {
			select {
			case _, ok := <-in:
				if !ok {
					if timer != nil {
						timer.Stop()
					}
					return
				}
				if timer == nil {
					timer = time.NewTimer(delay)
				} else {
					timer.Reset(delay)
				}
				timerC = timer.C

			case <-timerC:
				select {
				case out <- struct{}{}:
				default:
				}
				timerC = nil
			}
		}
	}()

	return out
}
