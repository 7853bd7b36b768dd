// Package auth implements the token provider contract: the engine needs a
// bearer token for every GCS request, and this package is the only place
// that knows how one is acquired (authorized-user refresh, service-account
// JWT bearer-assertion, application-default discovery, or no-auth).
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gcsync/internal/errs"
)

// TokenProvider yields a bearer token, refreshing as needed. Implementations
// must be safe for concurrent use; refresh must be serialized so that at
// most one caller performs a real refresh while the rest await its result
// (spec §5, "Token refresh contention").
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// NoAuth is the anonymous provider: no Authorization header is sent. Used
// for downloading public objects (gcs-rsync's StorageClient::no_auth).
type NoAuth struct{}

func (NoAuth) Token(ctx context.Context) (string, error) { return "", nil }

type credentialsFile struct {
	Type string `json:"type"`
}

// FromCredentialsFile loads the file at path and auto-detects its format
// by the "type" field, per spec §6: "authorized-user or service-account
// format, auto-detected by content."
func FromCredentialsFile(path string) (TokenProvider, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.Config, "auth.load_credentials", path, err)
	}

	var probe credentialsFile
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, errs.New(errs.Config, "auth.parse_credentials", path, err)
	}

	switch probe.Type {
	case "authorized_user":
		return newAuthorizedUser(b)
	case "service_account":
		return newServiceAccount(b)
	default:
		return nil, errs.New(errs.Config, "auth.parse_credentials", path,
			fmt.Errorf("unrecognized credentials type %q", probe.Type))
	}
}
