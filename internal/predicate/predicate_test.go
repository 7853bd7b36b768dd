package predicate

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"gcsync/internal/entry"
)

func u32(v uint32) *uint32 { return &v }

func descOpen(data string) entry.OpenFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader([]byte(data))), nil
	}
}

func TestCompareSizeMismatch(t *testing.T) {
	src := entry.Descriptor{Size: 2}
	dst := entry.Descriptor{Size: 3}
	res, _, err := Compare(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if res != NotEqual {
		t.Errorf("got %v, want NotEqual", res)
	}
}

func TestCompareCRC32CAuthoritative(t *testing.T) {
	now := time.Now()
	src := entry.Descriptor{Size: 2, ModTime: now, CRC32C: u32(0xC5F75FCD)}
	dst := entry.Descriptor{Size: 2, ModTime: now.Add(-time.Hour), CRC32C: u32(0xC5F75FCD)}
	res, reason, err := Compare(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if res != Equal || reason != entry.ReasonCRC32CMatch {
		t.Errorf("got %v/%v, want Equal/crc32c_match", res, reason)
	}

	dst.CRC32C = u32(0x12345678)
	res, _, err = Compare(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if res != NotEqual {
		t.Errorf("mismatched crc32c with matching mtime should still be NotEqual, got %v", res)
	}
}

func TestCompareMTimeFallback(t *testing.T) {
	now := time.Now()
	src := entry.Descriptor{Size: 2, ModTime: now}
	dst := entry.Descriptor{Size: 2, ModTime: now.Add(2 * time.Second)}
	res, reason, err := Compare(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if res != Equal || reason != entry.ReasonSizeMTimeMatch {
		t.Errorf("got %v/%v, want Equal/size_mtime_match", res, reason)
	}

	src.ModTime = now.Add(10 * time.Second)
	dst.ModTime = now
	res, _, err = Compare(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if res != NotEqual {
		t.Errorf("src newer than dst+tolerance should be NotEqual, got %v", res)
	}
}

func TestComparePromotion(t *testing.T) {
	now := time.Now()
	data := "hi"
	crc := u32(0xF59DD9C2) // Castagnoli CRC32C of "hi"

	// dst has crc32c, src doesn't; mtime disagrees beyond tolerance so
	// the predicate must promote by streaming src.
	src := entry.Descriptor{Size: 2, ModTime: now.Add(10 * time.Second), Open: descOpen(data)}
	dst := entry.Descriptor{Size: 2, ModTime: now, CRC32C: crc}

	res, reason, err := Compare(context.Background(), src, dst)
	if err != nil {
		t.Fatal(err)
	}
	if res != Equal || reason != entry.ReasonCRC32CMatch {
		t.Errorf("got %v/%v, want Equal/crc32c_match", res, reason)
	}
}

func TestComparePromotionNoReader(t *testing.T) {
	now := time.Now()
	crc := u32(0xC5F75FCD)
	src := entry.Descriptor{Size: 2, ModTime: now.Add(10 * time.Second)}
	dst := entry.Descriptor{Size: 2, ModTime: now, CRC32C: crc}

	if _, _, err := Compare(context.Background(), src, dst); err == nil {
		t.Fatal("expected error when promotion has no reader available")
	}
}
