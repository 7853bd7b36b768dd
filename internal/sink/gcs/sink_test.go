package gcs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gcsync/internal/entry"
	"gcsync/internal/gcsclient"
)

func anonClient(t *testing.T, h http.HandlerFunc) *gcsclient.Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	t.Setenv("STORAGE_EMULATOR_HOST", srv.URL)
	return gcsclient.NewAnonymous("bkt")
}

func TestPutUploadsUnderPrefix(t *testing.T) {
	var gotPath string
	client := anonClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), "hi") {
			t.Errorf("upload body missing bytes: %s", b)
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "pfx/a.txt", "size": "2"})
	})

	sink := New(client, "pfx")
	key, _ := entry.NewRelativeKey("a.txt")
	src := entry.Descriptor{Size: 2, ModTime: time.Now()}

	desc, err := sink.Put(context.Background(), key, src, func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("hi")), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if desc.Size != 2 {
		t.Errorf("got size %d, want 2", desc.Size)
	}
	if !strings.Contains(gotPath, "/b/bkt/o") {
		t.Errorf("upload path %q does not look like an upload endpoint", gotPath)
	}
}

func TestLookupNotFoundReturnsOkFalse(t *testing.T) {
	client := anonClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":404}}`))
	})

	sink := New(client, "pfx")
	key, _ := entry.NewRelativeKey("missing.txt")

	_, ok, err := sink.Lookup(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("got ok=true for a 404, want false")
	}
}

func TestExistsTrue(t *testing.T) {
	client := anonClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"name": "pfx/a.txt", "size": "2"})
	})

	sink := New(client, "pfx")
	key, _ := entry.NewRelativeKey("a.txt")

	ok, err := sink.Exists(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("got ok=%v, err=%v", ok, err)
	}
}
