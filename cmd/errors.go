package cmd

import (
	"errors"

	"gcsync/internal/errs"
)

// exitCode maps a run's terminal error to spec §6's exit code table.
// A nil err is success; an err that doesn't classify as a *errs.SyncError
// (e.g. the "N action(s) failed" sentinel returned when per-item
// outcomes contained errors but the run itself completed normally) is
// a plain per-item failure, exit code 1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var se *errs.SyncError
	if !errors.As(err, &se) {
		return 1
	}

	switch se.Kind {
	case errs.Auth:
		return 3
	case errs.Cancelled:
		return 4
	case errs.Config:
		return 2
	default:
		return 1
	}
}
