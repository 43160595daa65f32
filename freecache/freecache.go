// Package freecache provides a zero-GC-overhead Storage backend for
// httpcache using github.com/coocood/freecache, which supports a per-entry
// expiration natively.
package freecache

import (
	"context"
	"fmt"
	"time"

	"github.com/coocood/freecache"
)

// Storage is a httpcache.Storage implementation backed by freecache.
type Storage struct {
	cache *freecache.Cache
}

// New creates a new Storage with the specified size in bytes (512KB
// minimum, enforced by freecache itself).
func New(size int) *Storage {
	return &Storage{cache: freecache.NewCache(size)}
}

// Get returns the value corresponding to key if present.
func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	value, err := s.cache.Get([]byte(key))
	if err != nil {
		if err == freecache.ErrNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	return string(value), true, nil
}

// Set stores value under key with the given ttl, passed straight through
// to freecache's native per-entry expiration. A ttl <= 0 means no
// expiration.
func (s *Storage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	seconds := int(ttl.Seconds())
	if ttl > 0 && seconds == 0 {
		seconds = 1
	}
	if err := s.cache.Set([]byte(key), []byte(value), seconds); err != nil {
		return fmt.Errorf("freecache set failed for key %q: %w", key, err)
	}
	return nil
}

// Clear removes every entry from the cache.
func (s *Storage) Clear(_ context.Context) error {
	s.cache.Clear()
	return nil
}

// EntryCount returns the number of entries currently in the cache.
func (s *Storage) EntryCount() int64 {
	return s.cache.EntryCount()
}

// HitRate returns the ratio of cache hits to total lookups.
func (s *Storage) HitRate() float64 {
	return s.cache.HitRate()
}
