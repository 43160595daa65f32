// Package test provides a conformance test shared by every Storage backend.
package test

import (
	"context"
	"testing"
	"time"

	"github.com/go-httpcache/httpcache"
)

// Storage exercises a httpcache.Storage implementation against the
// contract every backend must satisfy: miss before set, hit with the exact
// value after set, and a miss again after Clear.
func Storage(t *testing.T, storage httpcache.Storage) {
	t.Helper()
	ctx := context.Background()
	key := "testKey"

	_, ok, err := storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("retrieved key before adding it")
	}

	val := "some value"
	if err := storage.Set(ctx, key, val, time.Minute); err != nil {
		t.Fatalf("error setting key: %v", err)
	}

	retVal, ok, err := storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an element we just added")
	}
	if retVal != val {
		t.Fatalf("retrieved value %q, want %q", retVal, val)
	}

	if err := storage.Clear(ctx); err != nil {
		t.Fatalf("error clearing storage: %v", err)
	}

	_, ok, err = storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("key still present after Clear")
	}
}

// ExpiresQuickly sets a key with a short ttl and waits for it to expire,
// asserting the backend treats it as a miss afterward. Backends whose TTL
// support is only advisory may skip calling this helper.
func ExpiresQuickly(t *testing.T, storage httpcache.Storage, ttl, wait time.Duration) {
	t.Helper()
	ctx := context.Background()
	key := "expiringKey"

	if err := storage.Set(ctx, key, "v", ttl); err != nil {
		t.Fatalf("error setting key: %v", err)
	}
	time.Sleep(wait)

	_, ok, err := storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("key still present after ttl elapsed")
	}
}
