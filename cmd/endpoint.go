package cmd

import (
	"fmt"
	"strings"

	"gcsync/internal/auth"
	"gcsync/internal/config"
	"gcsync/internal/entry"
	"gcsync/internal/errs"
	"gcsync/internal/gcsclient"
	sinkgcs "gcsync/internal/sink/gcs"
	sinklocal "gcsync/internal/sink/local"
	sourcegcs "gcsync/internal/source/gcs"
	sourcelocal "gcsync/internal/source/local"
)

// endpoint is one resolved side of a sync: a local directory or a GCS
// bucket/prefix. Both capability records are always built, even though
// a given run only ever writes through one side's sink — the other
// side is still listed (as a Source) for the Diff Engine.
type endpoint struct {
	source entry.Source
	sink   entry.Sink
	local  bool
}

// resolveEndpoint parses spec as either an absolute local path or a
// gs://bucket/prefix URL (spec §6) and builds both of its capability
// records.
func resolveEndpoint(spec string, cfg *config.Config, restoreMtime bool) (*endpoint, error) {
	if bucket, prefix, ok := parseGCSURL(spec); ok {
		client, err := newGCSClient(bucket, cfg)
		if err != nil {
			return nil, err
		}
		return &endpoint{
			source: sourcegcs.New(client, prefix),
			sink:   sinkgcs.New(client, prefix),
			local:  false,
		}, nil
	}

	src, err := sourcelocal.New(spec)
	if err != nil {
		return nil, err
	}
	sink, err := sinklocal.New(spec, restoreMtime)
	if err != nil {
		return nil, err
	}
	return &endpoint{source: src, sink: sink, local: true}, nil
}

func parseGCSURL(spec string) (bucket, prefix string, ok bool) {
	const schema = "gs://"
	if !strings.HasPrefix(spec, schema) {
		return "", "", false
	}
	rest := strings.TrimPrefix(spec, schema)
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix, true
}

func newGCSClient(bucket string, cfg *config.Config) (*gcsclient.Client, error) {
	credPath := config.CredentialsPath()
	if credPath == "" {
		return gcsclient.NewAnonymous(bucket), nil
	}
	provider, err := auth.FromCredentialsFile(credPath)
	if err != nil {
		return nil, errs.New(errs.Auth, "cmd.newGCSClient", bucket, err)
	}
	return gcsclient.New(bucket, provider, cfg), nil
}

func direction(src *endpoint) entry.Direction {
	if src.local {
		return entry.LocalToRemote
	}
	return entry.RemoteToLocal
}

func validateDirection(src, dst *endpoint) error {
	if src.local == dst.local {
		return errs.New(errs.Config, "cmd.validateDirection", "", fmt.Errorf("exactly one of source/destination must be a gs:// URL"))
	}
	return nil
}
