// Package local is the local-filesystem Entry Source: a lexicographic
// tree walk rooted at an absolute directory.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/globset"
)

// Source walks a directory tree rooted at an absolute path.
type Source struct {
	root string
}

// New resolves root to an absolute path and validates that it is an
// existing directory.
func New(root string) (*Source, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.New(errs.Config, "source.local.new", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.New(errs.Config, "source.local.new", root, err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.Config, "source.local.new", root, fmt.Errorf("not a directory"))
	}
	return &Source{root: abs}, nil
}

// Stream implements entry.Source.
func (s *Source) Stream(ctx context.Context, includes, excludes []string, recursive bool) <-chan entry.Item {
	out := make(chan entry.Item)

	filter, err := globset.New(includes, excludes)
	if err != nil {
		go func() {
			defer close(out)
			out <- entry.Item{Err: errs.New(errs.Config, "source.local.stream", s.root, err)}
		}()
		return out
	}

	go func() {
		defer close(out)
		if err := s.walk(ctx, s.root, recursive, filter, out); err != nil {
			select {
			case out <- entry.Item{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out
}

// walk performs the lexicographic tree walk: children of each directory
// are sorted by name, a directory child sorting as its name plus "/" (the
// prefix every key beneath it carries), and a directory child is fully
// descended before the walk moves to its next sibling (spec §4.A). This
// keeps emitted keys in ascending byte order, e.g. "a.txt" before "a/x".
func (s *Source) walk(ctx context.Context, dir string, recursive bool, filter *globset.Set, out chan<- entry.Item) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.New(errs.LocalIO, "source.local.readdir", dir, err)
	}

	sortKeys := make(map[string]string, len(entries))
	for _, de := range entries {
		k := de.Name()
		if info, err := os.Stat(filepath.Join(dir, k)); err == nil && info.IsDir() {
			k += "/"
		}
		sortKeys[de.Name()] = k
	}
	sort.Slice(entries, func(i, j int) bool { return sortKeys[entries[i].Name()] < sortKeys[entries[j].Name()] })

	for _, de := range entries {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		full := filepath.Join(dir, de.Name())

		// Follow symlinks to their targets; os.Stat does this for us.
		// A symlink is never itself emitted as a distinct entry kind —
		// it is treated exactly as whatever it points to.
		info, err := os.Stat(full)
		if err != nil {
			return errs.New(errs.LocalIO, "source.local.stat", full, err)
		}

		if info.IsDir() {
			if !recursive {
				continue
			}
			if err := s.walk(ctx, full, recursive, filter, out); err != nil {
				return err
			}
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return errs.New(errs.LocalIO, "source.local.rel", full, err)
		}

		key, err := entry.NewRelativeKey(rel)
		if err != nil {
			return errs.New(errs.Config, "source.local.key", rel, err)
		}

		ok, err := filter.Match(string(key))
		if err != nil {
			return errs.New(errs.Config, "source.local.filter", string(key), err)
		}
		if !ok {
			continue
		}

		desc := entry.Descriptor{
			Key:     key,
			Size:    uint64(info.Size()),
			ModTime: info.ModTime(),
			Open: func(ctx context.Context) (io.ReadCloser, error) {
				return os.Open(full)
			},
		}

		select {
		case out <- entry.Item{Descriptor: desc}:
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}
