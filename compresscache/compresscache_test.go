package compresscache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-httpcache/httpcache"
)

const longValue = "the quick brown fox jumps over the lazy dog, repeated: " +
	"the quick brown fox jumps over the lazy dog, repeated: " +
	"the quick brown fox jumps over the lazy dog, repeated: " +
	"the quick brown fox jumps over the lazy dog."

func TestGzipStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, err := NewGzip(GzipConfig{Storage: httpcache.NewMemoryStorage()})
	if err != nil {
		t.Fatalf("NewGzip: %v", err)
	}

	if err := storage.Set(ctx, "k", longValue, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := storage.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got != longValue {
		t.Fatalf("round trip mismatch: ok=%v got=%q", ok, got)
	}
}

func TestBrotliStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, err := NewBrotli(BrotliConfig{Storage: httpcache.NewMemoryStorage()})
	if err != nil {
		t.Fatalf("NewBrotli: %v", err)
	}

	if err := storage.Set(ctx, "k", longValue, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := storage.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got != longValue {
		t.Fatalf("round trip mismatch: ok=%v got=%q", ok, got)
	}
}

func TestSnappyStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, err := NewSnappy(SnappyConfig{Storage: httpcache.NewMemoryStorage()})
	if err != nil {
		t.Fatalf("NewSnappy: %v", err)
	}

	if err := storage.Set(ctx, "k", longValue, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := storage.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got != longValue {
		t.Fatalf("round trip mismatch: ok=%v got=%q", ok, got)
	}
}

func TestCompressCacheStoresSmallerThanOriginal(t *testing.T) {
	ctx := context.Background()
	underlying := httpcache.NewMemoryStorage()
	storage, err := NewGzip(GzipConfig{Storage: underlying})
	if err != nil {
		t.Fatalf("NewGzip: %v", err)
	}

	repeated := strings.Repeat("a", 10000)
	if err := storage.Set(ctx, "k", repeated, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, ok, err := underlying.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected underlying entry present, ok=%v err=%v", ok, err)
	}
	if len(raw) >= len(repeated) {
		t.Fatalf("expected compressed payload smaller than input: got %d want < %d", len(raw), len(repeated))
	}
}

func TestCompressCacheCrossAlgorithmDecompression(t *testing.T) {
	ctx := context.Background()
	underlying := httpcache.NewMemoryStorage()

	writer, err := NewBrotli(BrotliConfig{Storage: underlying})
	if err != nil {
		t.Fatalf("NewBrotli: %v", err)
	}
	if err := writer.Set(ctx, "k", longValue, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reader, err := NewGzip(GzipConfig{Storage: underlying})
	if err != nil {
		t.Fatalf("NewGzip: %v", err)
	}
	got, ok, err := reader.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get across algorithms: %v", err)
	}
	if !ok || got != longValue {
		t.Fatalf("cross-algorithm decompression mismatch: ok=%v got=%q", ok, got)
	}
}

func TestCompressCacheStats(t *testing.T) {
	ctx := context.Background()
	storage, err := NewGzip(GzipConfig{Storage: httpcache.NewMemoryStorage()})
	if err != nil {
		t.Fatalf("NewGzip: %v", err)
	}

	if err := storage.Set(ctx, "k", longValue, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	stats := storage.Stats()
	if stats.CompressedCount != 1 {
		t.Fatalf("expected 1 compressed entry, got %d", stats.CompressedCount)
	}
	if stats.CompressedBytes == 0 || stats.UncompressedBytes == 0 {
		t.Fatalf("expected non-zero byte counters, got %+v", stats)
	}
}

func TestAlgorithmString(t *testing.T) {
	cases := map[Algorithm]string{Gzip: "gzip", Brotli: "brotli", Snappy: "snappy", Algorithm(99): "unknown"}
	for algo, want := range cases {
		if got := algo.String(); got != want {
			t.Errorf("Algorithm(%d).String() = %q, want %q", algo, got, want)
		}
	}
}

func TestCompressCacheRejectsNilStorage(t *testing.T) {
	if _, err := NewGzip(GzipConfig{}); err == nil {
		t.Fatal("expected error for nil storage")
	}
	if _, err := NewBrotli(BrotliConfig{}); err == nil {
		t.Fatal("expected error for nil storage")
	}
	if _, err := NewSnappy(SnappyConfig{}); err == nil {
		t.Fatal("expected error for nil storage")
	}
}

func TestCompressCacheClear(t *testing.T) {
	ctx := context.Background()
	storage, err := NewSnappy(SnappyConfig{Storage: httpcache.NewMemoryStorage()})
	if err != nil {
		t.Fatalf("NewSnappy: %v", err)
	}

	if err := storage.Set(ctx, "k", longValue, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := storage.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := storage.Get(ctx, "k"); ok {
		t.Fatal("expected entry cleared")
	}
}
