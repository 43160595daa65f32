// Package httpcache provides a http.RoundTripper implementation that works as
// an RFC 7234 compliant cache for HTTP responses.
package httpcache

import (
	"context"
	"time"
)

// Storage is the backend contract for the cache: a string-keyed store of
// string blobs with per-entry expiry. Implementations own eviction once the
// ttl passed to Set has elapsed; Get on an expired key must behave as a miss.
type Storage interface {
	// Get returns the value stored under key. ok is false if the key is
	// absent or has expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key with the given time to live. A ttl <= 0
	// stores the entry without expiry; every backend in this module does
	// so, and MultiCache relies on it when promoting hits.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Clear removes every entry the backend holds for this cache.
	Clear(ctx context.Context) error
}
