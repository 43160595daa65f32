// Package memcache provides a Storage backend for httpcache using gomemcache
// to talk to a memcached server, which supports native per-item expiration.
package memcache

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Storage is a httpcache.Storage implementation backed by memcached.
type Storage struct {
	*memcache.Client
}

// cacheKey prefixes keys to avoid collision with other data stored in
// memcache.
func cacheKey(key string) string {
	return "httpcache:" + key
}

// Get returns the value corresponding to key if present.
func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	item, err := s.Client.Get(cacheKey(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return "", false, nil
		}
		return "", false, err
	}
	return string(item.Value), true, nil
}

// Set stores value under key with the given ttl, passed straight through
// to memcached's native item expiration.
func (s *Storage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	item := &memcache.Item{
		Key:        cacheKey(key),
		Value:      []byte(value),
		Expiration: int32(ttl.Seconds()),
	}
	if err := s.Client.Set(item); err != nil {
		return fmt.Errorf("memcache set failed for key %q: %w", key, err)
	}
	return nil
}

// Clear flushes every item on every configured memcached server. This is a
// server-wide operation; use a dedicated memcached instance per cache if
// that blast radius is unacceptable.
func (s *Storage) Clear(_ context.Context) error {
	if err := s.Client.FlushAll(); err != nil {
		return fmt.Errorf("memcache flush failed: %w", err)
	}
	return nil
}

// New returns a new Storage using the provided memcache server(s) with
// equal weight.
func New(server ...string) *Storage {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient returns a new Storage with the given memcache client.
func NewWithClient(client *memcache.Client) *Storage {
	return &Storage{client}
}
