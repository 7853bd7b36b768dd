package auth

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gcsync/internal/errs"
)

const storageScope = "https://www.googleapis.com/auth/devstorage.read_write"

type serviceAccountCreds struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

type jwtHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

type jwtClaims struct {
	Iss   string `json:"iss"`
	Scope string `json:"scope"`
	Aud   string `json:"aud"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp"`
}

// newServiceAccount builds a TokenProvider for the service-account
// credentials format (spec §6): constructs an RS256 JWT with claims
// {iss, scope, aud, iat, exp=iat+3600} and exchanges it at token_uri.
// Built directly against the token endpoint, bypassing any opaque
// credentials-to-TokenSource helper, so the exact claim set is explicit.
func newServiceAccount(raw []byte) (TokenProvider, error) {
	var creds serviceAccountCreds
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, errs.New(errs.Config, "auth.parse_service_account", "", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" || creds.TokenURI == "" {
		return nil, errs.New(errs.Config, "auth.parse_service_account", "",
			fmt.Errorf("missing client_email, private_key or token_uri"))
	}

	key, err := parsePrivateKey(creds.PrivateKey)
	if err != nil {
		return nil, errs.New(errs.Config, "auth.parse_service_account", "", err)
	}

	return newCachingProvider(func(ctx context.Context) (string, time.Time, error) {
		now := time.Now()
		assertion, err := signAssertion(key, jwtClaims{
			Iss:   creds.ClientEmail,
			Scope: storageScope,
			Aud:   creds.TokenURI,
			Iat:   now.Unix(),
			Exp:   now.Unix() + 3600,
		})
		if err != nil {
			return "", time.Time{}, errs.New(errs.Auth, "auth.sign_assertion", "", err)
		}

		form := url.Values{
			"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
			"assertion":  {assertion},
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.TokenURI,
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

		expiresIn := tr.ExpiresIn
		if expiresIn == 0 {
			expiresIn = 3600
		}
		return tr.AccessToken, now.Add(time.Duration(expiresIn) * time.Second), nil
	}), nil
}

func parsePrivateKey(pemKey string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, fmt.Errorf("invalid PEM block in private_key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}

func signAssertion(key *rsa.PrivateKey, claims jwtClaims) (string, error) {
	header, err := json.Marshal(jwtHeader{Alg: "RS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signingInput := b64(header) + "." + b64(body)

	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}

	return signingInput + "." + b64(sig), nil
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
