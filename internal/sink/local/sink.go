// Package local is the local-filesystem Entry Sink.
package local

import (
	"context"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/util"
)

// Sink writes under an absolute root directory.
type Sink struct {
	root         string
	restoreMtime bool
}

func New(root string, restoreMtime bool) (*Sink, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.New(errs.Config, "sink.local.new", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errs.New(errs.LocalIO, "sink.local.new", root, err)
	}
	return &Sink{root: abs, restoreMtime: restoreMtime}, nil
}

func (s *Sink) path(key entry.RelativeKey) string {
	return filepath.Join(s.root, filepath.FromSlash(string(key)))
}

// Put writes body to key via a temp-file-and-rename, restores mtime from
// src if configured, and returns the post-write descriptor computed with
// a streaming CRC32C so the caller never needs a second pass over the
// bytes (spec §4.B).
func (s *Sink) Put(ctx context.Context, key entry.RelativeKey, src entry.Descriptor, body entry.OpenFunc) (entry.Descriptor, error) {
	dst := s.path(key)

	r, err := body(ctx)
	if err != nil {
		return entry.Descriptor{}, errs.New(errs.LocalIO, "sink.local.put", string(key), err)
	}
	defer r.Close()

	h := crc32.New(crc32.MakeTable(crc32.Castagnoli))
	tee := io.TeeReader(r, h)

	if err := util.AtomicWrite(dst, tee); err != nil {
		return entry.Descriptor{}, errs.New(errs.LocalIO, "sink.local.put", string(key), err)
	}

	if s.restoreMtime && !src.ModTime.IsZero() {
		if err := os.Chtimes(dst, src.ModTime, src.ModTime); err != nil {
			return entry.Descriptor{}, errs.New(errs.LocalIO, "sink.local.put", string(key), err)
		}
	}

	info, err := os.Stat(dst)
	if err != nil {
		return entry.Descriptor{}, errs.New(errs.LocalIO, "sink.local.put", string(key), err)
	}

	sum := h.Sum32()
	full := dst
	return entry.Descriptor{
		Key:     key,
		Size:    uint64(info.Size()),
		ModTime: info.ModTime(),
		CRC32C:  &sum,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return os.Open(full)
		},
	}, nil
}

// Delete removes key's file. Deleting an absent key is not an error.
func (s *Sink) Delete(ctx context.Context, key entry.RelativeKey) error {
	if err := util.RemoveIfExists(s.path(key)); err != nil {
		return errs.New(errs.LocalIO, "sink.local.delete", string(key), err)
	}
	return nil
}

// Lookup stats key's file, if present.
func (s *Sink) Lookup(ctx context.Context, key entry.RelativeKey) (entry.Descriptor, bool, error) {
	full := s.path(key)
	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		return entry.Descriptor{}, false, nil
	}
	if err != nil {
		return entry.Descriptor{}, false, errs.New(errs.LocalIO, "sink.local.lookup", string(key), err)
	}
	return entry.Descriptor{
		Key:     key,
		Size:    uint64(info.Size()),
		ModTime: info.ModTime(),
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return os.Open(full)
		},
	}, true, nil
}

// Exists reports whether key's file is present.
func (s *Sink) Exists(ctx context.Context, key entry.RelativeKey) (bool, error) {
	_, ok, err := s.Lookup(ctx, key)
	return ok, err
}
