package entry

import (
	"context"
	"io"
	"time"
)

// OpenFunc lazily opens the byte stream behind a descriptor. It is the
// opaque_source_handle of spec §3: a filesystem path on the local side, a
// GCS object reference (with generation) on the remote side.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// Descriptor is the observable state of one file or one GCS object.
type Descriptor struct {
	Key     RelativeKey
	Size    uint64
	ModTime time.Time
	// CRC32C is the Castagnoli CRC32C of the content. Always present for
	// GCS objects; nil until computed for local files (computing it means
	// a streaming read, so callers only pay for it on demand).
	CRC32C *uint32
	// Open returns a fresh reader over the entry's bytes. Nil for
	// descriptors that only carry metadata (e.g. a destination-side
	// lookup result never read from).
	Open OpenFunc
}

// HasCRC32C reports whether d carries a known checksum.
func (d Descriptor) HasCRC32C() bool { return d.CRC32C != nil }

// Item is one element of a lazily produced, ordered entry sequence: either
// a Descriptor or an error that terminates the sequence.
type Item struct {
	Descriptor Descriptor
	Err        error
}
