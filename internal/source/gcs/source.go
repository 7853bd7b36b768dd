// Package gcs is the GCS-bucket-prefix Entry Source.
package gcs

import (
	"context"
	"io"
	"strconv"
	"time"

	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/gcsclient"
	"gcsync/internal/globset"
)

// Source lists objects under a prefix within one bucket.
type Source struct {
	client *gcsclient.Client
	prefix gcsclient.Prefix
}

func New(client *gcsclient.Client, prefix string) *Source {
	return &Source{client: client, prefix: gcsclient.NewPrefix(prefix)}
}

// Stream implements entry.Source. GCS already returns items in
// lexicographic order by name (spec §4.A); this just flattens, filters,
// and relativizes them.
func (s *Source) Stream(ctx context.Context, includes, excludes []string, recursive bool) <-chan entry.Item {
	out := make(chan entry.Item)

	filter, err := globset.New(includes, excludes)
	if err != nil {
		go func() {
			defer close(out)
			out <- entry.Item{Err: errs.New(errs.Config, "source.gcs.stream", s.prefix.ListValue(), err)}
		}()
		return out
	}

	delimiter := ""
	if !recursive {
		delimiter = "/"
	}

	go func() {
		defer close(out)

		for item := range s.client.List(ctx, s.prefix.ListValue(), delimiter) {
			if item.Err != nil {
				select {
				case out <- entry.Item{Err: item.Err}:
				case <-ctx.Done():
				}
				return
			}

			rel := s.prefix.RelativeKey(item.Object.Name)
			key, err := entry.NewRelativeKey(rel)
			if err != nil {
				select {
				case out <- entry.Item{Err: errs.New(errs.Protocol, "source.gcs.key", item.Object.Name, err)}:
				case <-ctx.Done():
				}
				return
			}

			ok, err := filter.Match(string(key))
			if err != nil {
				select {
				case out <- entry.Item{Err: errs.New(errs.Config, "source.gcs.filter", string(key), err)}:
				case <-ctx.Done():
				}
				return
			}
			if !ok {
				continue
			}

			name := item.Object.Name
			desc := entry.Descriptor{
				Key:     key,
				Size:    item.Object.Size,
				ModTime: objectMTime(item.Object),
				CRC32C:  item.Object.CRC32C,
				Open: func(ctx context.Context) (io.ReadCloser, error) {
					return s.client.Download(ctx, name)
				},
			}

			select {
			case out <- entry.Item{Descriptor: desc}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// objectMTime prefers the goog-reserved-file-mtime custom metadata field
// (the source's original mtime, read back on the return trip) over GCS's
// own Updated timestamp.
func objectMTime(o gcsclient.Object) time.Time {
	if s, ok := o.Metadata[gcsclient.MTimeMetaKey]; ok {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
	}
	return o.Updated
}
