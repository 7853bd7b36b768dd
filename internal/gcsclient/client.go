// Package gcsclient is the REST/JSON facade over the subset of the GCS
// JSON API the engine needs: paged listing with partial-response field
// masks, metadata get, streamed download, simple/multipart upload, delete.
package gcsclient

import (
	"context"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"gcsync/internal/auth"
	"gcsync/internal/config"
)

const defaultBaseURL = "https://storage.googleapis.com"

// RetryPolicy is the exponential backoff schedule applied to transient
// failures (spec §4.B).
type RetryPolicy struct {
	Initial     time.Duration
	Factor      float64
	JitterFrac  float64
	Max         time.Duration
	MaxAttempts int
}

var DefaultRetryPolicy = RetryPolicy{
	Initial:     500 * time.Millisecond,
	Factor:      2,
	JitterFrac:  0.2,
	Max:         30 * time.Second,
	MaxAttempts: 5,
}

// Client is a per-bucket handle on the GCS JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	bucket     string
	tokens     auth.TokenProvider
	retry      RetryPolicy
}

// New builds a Client authenticated via tokens, honoring
// STORAGE_EMULATOR_HOST and the configured HTTP pool/timeout/retry
// settings.
func New(bucket string, tokens auth.TokenProvider, cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
			Transport: &http.Transport{
				MaxConnsPerHost:     cfg.MaxConnections,
				MaxIdleConnsPerHost: cfg.MaxConnections,
			},
		},
		baseURL: resolveBaseURL(),
		bucket:  bucket,
		tokens:  tokens,
		retry:   policyFromConfig(cfg),
	}
}

// NewAnonymous builds a Client with no token provider, for public object
// access (gcs-rsync's StorageClient::no_auth).
func NewAnonymous(bucket string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    resolveBaseURL(),
		bucket:     bucket,
		tokens:     auth.NoAuth{},
		retry:      DefaultRetryPolicy,
	}
}

func policyFromConfig(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		Initial:     cfg.InitialBackoff,
		Factor:      cfg.BackoffFactor,
		JitterFrac:  cfg.BackoffJitter,
		Max:         cfg.MaxBackoff,
		MaxAttempts: cfg.MaxAttempts,
	}
}

// resolveBaseURL honors STORAGE_EMULATOR_HOST, stripping a trailing slash
// before concatenation (gcs-rsync's StorageClient::get_host).
func resolveBaseURL() string {
	host := config.EmulatorHost()
	if host == "" {
		return defaultBaseURL
	}
	return strings.TrimSuffix(host, "/")
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return nil
}

// backoffDelay computes the delay before the given retry (1-based: 1 is
// the first retry): the exponential value capped at Max, then scaled by
// a random jitter within ±JitterFrac.
func (c *Client) backoffDelay(attempt int) time.Duration {
	d := float64(c.retry.Initial)
	for i := 1; i < attempt; i++ {
		d *= c.retry.Factor
	}
	if max := float64(c.retry.Max); d > max {
		d = max
	}
	jitter := 1 + (rand.Float64()*2-1)*c.retry.JitterFrac
	return time.Duration(d * jitter)
}
