// Package predicate implements the equality predicate of §4.D: given a
// source and destination descriptor for the same key, decide whether the
// destination is already up to date.
package predicate

import (
	"context"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"gcsync/internal/entry"
)

// Tolerance is the mtime slack: sub-second mtime is not portable across
// all filesystems, and GCS custom metadata only preserves whole seconds.
const Tolerance = time.Second

// Result of comparing two descriptors for the same key.
type Result int

const (
	Equal Result = iota
	NotEqual
)

// Reason names why Equal was decided, for the Diff Engine's Skip action.
type Reason = entry.SkipReason

// Compare decides equality per spec §4.D. It may read the bytes of
// whichever side lacks a checksum to promote (compute the missing CRC32C)
// when sizes match but mtime disagrees and exactly one side already
// carries a checksum.
func Compare(ctx context.Context, src, dst entry.Descriptor) (Result, Reason, error) {
	if src.Size != dst.Size {
		return NotEqual, "", nil
	}

	if src.HasCRC32C() && dst.HasCRC32C() {
		if *src.CRC32C == *dst.CRC32C {
			return Equal, entry.ReasonCRC32CMatch, nil
		}
		return NotEqual, "", nil
	}

	if !src.HasCRC32C() && !dst.HasCRC32C() {
		if mtimeMatch(src, dst) {
			return Equal, entry.ReasonSizeMTimeMatch, nil
		}
		return NotEqual, "", nil
	}

	// Exactly one side has a checksum. Fast-path on mtime first; promote
	// (stream the source to compute the missing CRC32C) only when mtime
	// disagrees, and only before scheduling a full transfer.
	if mtimeMatch(src, dst) {
		return Equal, entry.ReasonSizeMTimeMatch, nil
	}

	promoted, err := promote(ctx, src, dst)
	if err != nil {
		return NotEqual, "", err
	}
	if promoted {
		return Equal, entry.ReasonCRC32CMatch, nil
	}
	return NotEqual, "", nil
}

// mtimeMatch reports whether src is not newer than dst plus Tolerance,
// which is the direction required so a freshly-uploaded destination
// (mtime restored from src) is not immediately re-uploaded.
func mtimeMatch(src, dst entry.Descriptor) bool {
	return !src.ModTime.After(dst.ModTime.Add(Tolerance))
}

// promote computes whichever side's CRC32C is missing by a streaming read,
// then compares.
func promote(ctx context.Context, src, dst entry.Descriptor) (bool, error) {
	var want uint32
	var open entry.OpenFunc

	switch {
	case dst.HasCRC32C() && !src.HasCRC32C():
		want = *dst.CRC32C
		open = src.Open
	case src.HasCRC32C() && !dst.HasCRC32C():
		want = *src.CRC32C
		open = dst.Open
	default:
		return false, nil
	}

	if open == nil {
		return false, fmt.Errorf("predicate: promote crc32c for %q: no reader available", src.Key)
	}

	r, err := open(ctx)
	if err != nil {
		return false, fmt.Errorf("predicate: open %q for crc32c promotion: %w", src.Key, err)
	}
	defer r.Close()

	got, err := streamCRC32C(r)
	if err != nil {
		return false, fmt.Errorf("predicate: compute crc32c for %q: %w", src.Key, err)
	}

	return got == want, nil
}

func streamCRC32C(r io.Reader) (uint32, error) {
	h := crc32.New(crc32.MakeTable(crc32.Castagnoli))
	if _, err := io.Copy(h, r); err != nil {
		return 0, err
	}
	return h.Sum32(), nil
}
