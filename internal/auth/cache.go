package auth

import (
	"context"
	"sync"
	"time"
)

// staleBefore is how long before expiry a token is considered stale,
// per spec §6 ("the token is considered stale 30s before that").
const staleBefore = 30 * time.Second

// refreshFunc performs one real token acquisition/refresh call.
type refreshFunc func(ctx context.Context) (accessToken string, expiresAt time.Time, err error)

// cachingProvider serializes refreshes: at most one in-flight refresh at a
// time, every other caller awaits its result (spec §5, §9 DESIGN NOTES:
// "the only piece of non-trivial shared mutable state in the core").
type cachingProvider struct {
	refresh refreshFunc

	mu         sync.Mutex
	token      string
	expiresAt  time.Time
	inflight   chan struct{} // non-nil while a refresh is in progress
	inflightOK bool
	inflightTk string
	inflightEr error
}

func newCachingProvider(refresh refreshFunc) *cachingProvider {
	return &cachingProvider{refresh: refresh}
}

func (c *cachingProvider) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.valid() {
		tok := c.token
		c.mu.Unlock()
		return tok, nil
	}

	if c.inflight != nil {
		wait := c.inflight
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		c.mu.Lock()
		tok, err := c.inflightTk, c.inflightEr
		c.mu.Unlock()
		return tok, err
	}

	done := make(chan struct{})
	c.inflight = done
	c.mu.Unlock()

	tok, exp, err := c.refresh(ctx)

	c.mu.Lock()
	if err == nil {
		c.token = tok
		c.expiresAt = exp
	}
	c.inflightTk, c.inflightEr = tok, err
	c.inflight = nil
	c.mu.Unlock()
	close(done)

	return tok, err
}

// valid must be called with c.mu held.
func (c *cachingProvider) valid() bool {
	return c.token != "" && time.Now().Before(c.expiresAt.Add(-staleBefore))
}
