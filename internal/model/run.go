// Package model holds the gorm-mapped row types persisted by
// internal/db and internal/repository. It has no dependency on the
// sync engine: run history is a CLI-level observability feature, never
// read back by the engine itself (SPEC_FULL §9.5).
package model

import (
	"time"

	"gorm.io/gorm"
)

// RunStatus is the terminal state of one persisted sync run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// RunHistory is one row per completed gcsync sync/watch run.
type RunHistory struct {
	gorm.Model
	Source      string `gorm:"not null"`
	Destination string `gorm:"not null"`
	Direction   string `gorm:"not null"`
	Mirror      bool
	Status      RunStatus `gorm:"not null"`
	Skipped     int
	Upserted    int
	Deleted     int
	Failed      int
	StartedAt   time.Time `gorm:"not null;index"`
	DurationMS  int64
	ErrMsg      string
}
