package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gcsync/internal/errs"
)

const tokenEndpoint = "https://oauth2.googleapis.com/token"

// tokenEndpointOverride lets tests point the refresh flow at an
// httptest.Server instead of the real Google endpoint.
var tokenEndpointOverride = tokenEndpoint

type authorizedUserCreds struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// newAuthorizedUser builds a TokenProvider for the authorized-user
// credentials format (spec §6): POSTs grant_type=refresh_token to the
// Google OAuth2 token endpoint.
func newAuthorizedUser(raw []byte) (TokenProvider, error) {
	var creds authorizedUserCreds
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, errs.New(errs.Config, "auth.parse_authorized_user", "", err)
	}
	if creds.RefreshToken == "" || creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, errs.New(errs.Config, "auth.parse_authorized_user", "",
			fmt.Errorf("missing client_id, client_secret or refresh_token"))
	}

	return newCachingProvider(func(ctx context.Context) (string, time.Time, error) {
		form := url.Values{
			"grant_type":    {"refresh_token"},
			"client_id":     {creds.ClientID},
			"client_secret": {creds.ClientSecret},
			"refresh_token": {creds.RefreshToken},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpointOverride,
			bytes.NewBufferString(form.Encode()))
		if err != nil {
			return "", time.Time{}, errs.New(errs.Auth, "auth.refresh", "", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", time.Time{}, errs.New(errs.Auth, "auth.refresh", "", err)
		}
		defer resp.Body.Close()

		var tr tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return "", time.Time{}, errs.New(errs.Auth, "auth.refresh", "", err)
		}
		if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
			return "", time.Time{}, errs.New(errs.Auth, "auth.refresh", "",
				fmt.Errorf("token endpoint returned status %d", resp.StatusCode))
		}

		return tr.AccessToken, time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second), nil
	}), nil
}
