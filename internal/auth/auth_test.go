package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNoAuthReturnsEmptyToken(t *testing.T) {
	tok, err := NoAuth{}.Token(context.Background())
	if err != nil || tok != "" {
		t.Fatalf("got %q, %v, want empty token and nil error", tok, err)
	}
}

func TestCachingProviderSingleFlight(t *testing.T) {
	var calls int32
	c := newCachingProvider(func(ctx context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "tok", time.Now().Add(time.Hour), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.Token(context.Background())
			if err != nil || tok != "tok" {
				t.Errorf("got %q, %v", tok, err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("refresh called %d times, want exactly 1", calls)
	}
}

func TestCachingProviderRefreshesAfterExpiry(t *testing.T) {
	var calls int32
	c := newCachingProvider(func(ctx context.Context) (string, time.Time, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "first", time.Now().Add(-time.Second), nil // already stale
		}
		return "second", time.Now().Add(time.Hour), nil
	})

	tok, err := c.Token(context.Background())
	if err != nil || tok != "first" {
		t.Fatalf("got %q, %v", tok, err)
	}
	tok, err = c.Token(context.Background())
	if err != nil || tok != "second" {
		t.Fatalf("got %q, %v, want second refresh", tok, err)
	}
	if calls != 2 {
		t.Errorf("refresh called %d times, want 2", calls)
	}
}

func TestAuthorizedUserRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.FormValue("grant_type") != "refresh_token" || r.FormValue("refresh_token") != "rt" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "access-123", ExpiresIn: 3600})
	}))
	defer srv.Close()

	orig := tokenEndpointOverride
	tokenEndpointOverride = srv.URL
	defer func() { tokenEndpointOverride = orig }()

	raw, _ := json.Marshal(authorizedUserCreds{ClientID: "id", ClientSecret: "secret", RefreshToken: "rt"})
	p, err := newAuthorizedUser(raw)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok != "access-123" {
		t.Errorf("got %q, want access-123", tok)
	}
}

func TestServiceAccountSignsAndExchanges(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))

	var gotAssertion string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotAssertion = r.FormValue("assertion")
		json.NewEncoder(w).Encode(tokenResponse{AccessToken: "sa-access", ExpiresIn: 3600})
	}))
	defer srv.Close()

	raw, _ := json.Marshal(serviceAccountCreds{
		ClientEmail: "sa@example.iam.gserviceaccount.com",
		PrivateKey:  pemKey,
		TokenURI:    srv.URL,
	})
	p, err := newServiceAccount(raw)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok != "sa-access" {
		t.Errorf("got %q, want sa-access", tok)
	}
	if parts := strings.Split(gotAssertion, "."); len(parts) != 3 {
		t.Errorf("assertion %q is not a 3-part JWT", gotAssertion)
	}
}
