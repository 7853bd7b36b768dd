package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gcsync/internal/entry"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func collect(t *testing.T, ch <-chan entry.Item) []entry.Item {
	t.Helper()
	var items []entry.Item
	for it := range ch {
		if it.Err != nil {
			t.Fatalf("unexpected error item: %v", it.Err)
		}
		items = append(items, it)
	}
	return items
}

func TestStreamEmitsAscendingKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hi")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "ho")

	src, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	items := collect(t, src.Stream(context.Background(), nil, nil, true))
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	for i := 1; i < len(items); i++ {
		if !items[i-1].Descriptor.Key.Less(items[i].Descriptor.Key) {
			t.Errorf("keys not ascending: %q then %q", items[i-1].Descriptor.Key, items[i].Descriptor.Key)
		}
	}
}

func TestStreamNonRecursiveRestrictsDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hi")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "ho")

	src, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	items := collect(t, src.Stream(context.Background(), nil, nil, false))
	if len(items) != 1 || items[0].Descriptor.Key != "a.txt" {
		t.Fatalf("got %v, want only a.txt", items)
	}
}

func TestStreamFiltersWithIncludeExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hi")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "ho")
	writeFile(t, filepath.Join(dir, "a.bin"), "xx")

	src, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	items := collect(t, src.Stream(context.Background(), []string{"**/*.txt"}, []string{"**/b.txt"}, true))
	if len(items) != 1 || items[0].Descriptor.Key != "a.txt" {
		t.Fatalf("got %v, want only a.txt", items)
	}
}

func TestStreamFollowsSymlinkToFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real.txt"), "hi")
	if err := os.Symlink(filepath.Join(dir, "real.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	src, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	items := collect(t, src.Stream(context.Background(), nil, nil, true))
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (real.txt and link.txt)", len(items))
	}
}

func TestNewRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "file.txt")
	writeFile(t, f, "x")

	if _, err := New(f); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}
