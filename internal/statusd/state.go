// Package statusd serves live status for one in-flight sync run over
// HTTP, scoped down from the teacher's multi-job daemon (internal/daemon)
// to a single run (SPEC_FULL §10, the --status-addr supplemental mode).
package statusd

import (
	"sync"
	"time"

	"gcsync/internal/entry"
)

// State is the live counter snapshot of one sync run, safe for
// concurrent access: internal/engine.Sync's own goroutine records
// outcomes into it via Observe while an HTTP handler reads Snapshot
// concurrently.
type State struct {
	mu        sync.RWMutex
	startedAt time.Time
	skipped   int
	upserted  int
	deleted   int
	failed    int
	done      bool
}

// NewState returns a State with StartedAt set to now.
func NewState() *State {
	return &State{startedAt: time.Now()}
}

// Observe records one Outcome. Matches the engine.Sync onOutcome hook
// signature so a *State can be passed directly.
func (s *State) Observe(o entry.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Status == entry.OutcomeErr {
		s.failed++
		return
	}
	switch o.Action.Kind {
	case entry.ActionSkip:
		s.skipped++
	case entry.ActionUpsert:
		s.upserted++
	case entry.ActionDelete:
		s.deleted++
	}
}

// Finish marks the run as complete; Snapshot().Done becomes true.
func (s *State) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

// Snapshot is the JSON-serializable view of State returned by GET /status.
type Snapshot struct {
	StartedAt time.Time `json:"started_at"`
	Skipped   int       `json:"skipped"`
	Upserted  int       `json:"upserted"`
	Deleted   int       `json:"deleted"`
	Failed    int       `json:"failed"`
	Done      bool      `json:"done"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		StartedAt: s.startedAt,
		Skipped:   s.skipped,
		Upserted:  s.upserted,
		Deleted:   s.deleted,
		Failed:    s.failed,
		Done:      s.done,
	}
}
