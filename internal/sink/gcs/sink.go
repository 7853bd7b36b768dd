// Package gcs is the GCS-bucket-prefix Entry Sink.
package gcs

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/gcsclient"
)

// Sink writes objects under a prefix within one bucket.
type Sink struct {
	client *gcsclient.Client
	prefix gcsclient.Prefix
}

func New(client *gcsclient.Client, prefix string) *Sink {
	return &Sink{client: client, prefix: gcsclient.NewPrefix(prefix)}
}

func (s *Sink) objectName(key entry.RelativeKey) string {
	return s.prefix.ObjectName(string(key))
}

// Put uploads body under key, carrying src's mtime in the
// goog-reserved-file-mtime custom metadata field (spec §6), and returns
// the post-write descriptor parsed from GCS's response.
func (s *Sink) Put(ctx context.Context, key entry.RelativeKey, src entry.Descriptor, body entry.OpenFunc) (entry.Descriptor, error) {
	r, err := body(ctx)
	if err != nil {
		return entry.Descriptor{}, errs.New(errs.LocalIO, "sink.gcs.put", string(key), err)
	}
	defer r.Close()

	name := s.objectName(key)
	obj, err := s.client.UploadSimple(ctx, name, int64(src.Size), src.ModTime.Unix(), r)
	if err != nil {
		return entry.Descriptor{}, err
	}

	return s.toDescriptor(key, obj), nil
}

// Delete removes key's object. Deleting an absent key is not an error.
func (s *Sink) Delete(ctx context.Context, key entry.RelativeKey) error {
	return s.client.Delete(ctx, s.objectName(key))
}

// Lookup fetches key's metadata, if present.
func (s *Sink) Lookup(ctx context.Context, key entry.RelativeKey) (entry.Descriptor, bool, error) {
	obj, err := s.client.GetMetadata(ctx, s.objectName(key))
	if err != nil {
		if isNotFound(err) {
			return entry.Descriptor{}, false, nil
		}
		return entry.Descriptor{}, false, err
	}
	return s.toDescriptor(key, obj), true, nil
}

// Exists reports whether key's object is present.
func (s *Sink) Exists(ctx context.Context, key entry.RelativeKey) (bool, error) {
	_, ok, err := s.Lookup(ctx, key)
	return ok, err
}

func (s *Sink) toDescriptor(key entry.RelativeKey, obj gcsclient.Object) entry.Descriptor {
	name := obj.Name
	return entry.Descriptor{
		Key:     key,
		Size:    obj.Size,
		ModTime: mtimeOf(obj),
		CRC32C:  obj.CRC32C,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			return s.client.Download(ctx, name)
		},
	}
}

func mtimeOf(o gcsclient.Object) time.Time {
	if v, ok := o.Metadata[gcsclient.MTimeMetaKey]; ok {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC()
		}
	}
	return o.Updated
}

func isNotFound(err error) bool {
	se, ok := err.(*errs.SyncError)
	return ok && se.Status == http.StatusNotFound
}
