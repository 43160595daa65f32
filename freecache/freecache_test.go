package freecache

import (
	"context"
	"testing"
	"time"

	"github.com/go-httpcache/httpcache/test"
)

const testCacheSize = 1024 * 1024

func TestFreecacheStorageConformance(t *testing.T) {
	test.Storage(t, New(testCacheSize))
}

func TestFreecacheStorageExpiresQuickly(t *testing.T) {
	test.ExpiresQuickly(t, New(testCacheSize), 500*time.Millisecond, 1500*time.Millisecond)
}

func TestFreecacheStorageNoExpiryWhenTTLZero(t *testing.T) {
	storage := New(testCacheSize)
	ctx := context.Background()

	if err := storage.Set(ctx, "forever", "value", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	val, ok, err := storage.Get(ctx, "forever")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || val != "value" {
		t.Fatalf("expected ttl=0 entry to persist, got ok=%v val=%q", ok, val)
	}
}

func TestFreecacheStorageSubSecondTTLRoundsUp(t *testing.T) {
	storage := New(testCacheSize)
	ctx := context.Background()

	if err := storage.Set(ctx, "k", "v", 100*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := storage.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || val != "v" {
		t.Fatalf("expected immediate read to hit, got ok=%v val=%q", ok, val)
	}

	// Rounded up to 1s the entry expires; left at 0 it would never expire.
	time.Sleep(2100 * time.Millisecond)
	if _, ok, _ := storage.Get(ctx, "k"); ok {
		t.Fatal("expected sub-second ttl rounded up to 1s to have expired")
	}
}

func TestFreecacheStorageEntryCount(t *testing.T) {
	storage := New(testCacheSize)
	ctx := context.Background()

	if storage.EntryCount() != 0 {
		t.Fatalf("expected empty cache, got %d entries", storage.EntryCount())
	}
	if err := storage.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := storage.Set(ctx, "b", "2", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := storage.EntryCount(); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestFreecacheStorageHitRate(t *testing.T) {
	storage := New(testCacheSize)
	ctx := context.Background()

	if err := storage.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, _, err := storage.Get(ctx, "a"); err != nil {
		t.Fatalf("Get hit: %v", err)
	}
	if _, _, err := storage.Get(ctx, "missing"); err != nil {
		t.Fatalf("Get miss: %v", err)
	}
	if rate := storage.HitRate(); rate <= 0 || rate >= 1 {
		t.Fatalf("expected hit rate strictly between 0 and 1, got %f", rate)
	}
}

func TestFreecacheStorageClear(t *testing.T) {
	ctx := context.Background()
	storage := New(testCacheSize)

	if err := storage.Set(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := storage.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := storage.Get(ctx, "a"); ok {
		t.Fatal("expected entry cleared")
	}
	if storage.EntryCount() != 0 {
		t.Fatalf("expected 0 entries after Clear, got %d", storage.EntryCount())
	}
}
