package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2/google"

	"gcsync/internal/errs"
)

// FromApplicationDefault discovers credentials the way `gcloud` and every
// Google client library do: GOOGLE_APPLICATION_CREDENTIALS, then the
// well-known gcloud config location, then the GCE/GKE metadata server.
// Unlike the authorized-user and service-account paths above, this one is
// delegated to golang.org/x/oauth2/google rather than hand-rolled, since
// the whole point of ADC is to track whatever discovery order Google's
// own tooling uses.
func FromApplicationDefault(ctx context.Context) (TokenProvider, error) {
	creds, err := google.FindDefaultCredentials(ctx, storageScope)
	if err != nil {
		return nil, errs.New(errs.Auth, "auth.find_default_credentials", "", err)
	}

	return newCachingProvider(func(ctx context.Context) (string, time.Time, error) {
		tok, err := creds.TokenSource.Token()
		if err != nil {
			return "", time.Time{}, errs.New(errs.Auth, "auth.refresh", "", err)
		}
		return tok.AccessToken, tok.Expiry, nil
	}), nil
}
