package entry

import "context"

// Source is the capability record implemented by both sync endpoints (local
// directory, GCS bucket/prefix). There is deliberately no class hierarchy
// here: the engine is handed two of these records and never asks which
// concrete side it is talking to.
//
// Stream must emit descriptors in strictly ascending RelativeKey order
// (spec invariant 3); the Diff Engine treats a violation as a fatal
// OrderingViolation.
type Source interface {
	// Stream produces a lazy, ordered sequence of entries under root,
	// respecting includes/excludes. When recursive is false, enumeration
	// is restricted to the exact prefix depth. The returned channel is
	// closed once the sequence (or an error) has been fully delivered;
	// ctx cancellation stops production promptly.
	Stream(ctx context.Context, includes, excludes []string, recursive bool) <-chan Item
}

// Sink is the write-side capability record: put, delete, lookup, exists.
type Sink interface {
	// Put writes the bytes behind src to key and returns the post-write
	// destination descriptor (spec invariant 1).
	Put(ctx context.Context, key RelativeKey, src Descriptor, body OpenFunc) (Descriptor, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key RelativeKey) error

	// Lookup returns the descriptor for key, or ok=false if absent.
	// Reserved for per-item code paths that choose a targeted lookup over
	// whole-side enumeration; the core diff/merge path does not call it.
	Lookup(ctx context.Context, key RelativeKey) (d Descriptor, ok bool, err error)

	// Exists reports whether key is present, without fetching full
	// metadata. Supplemental capability (see gcs-rsync's exists check)
	// for callers that want a targeted check instead of a full
	// destination enumeration; the diff/merge path, mirror-mode deletes
	// included, does not call it.
	Exists(ctx context.Context, key RelativeKey) (bool, error)
}
