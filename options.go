package httpcache

import (
	"fmt"
	"time"
)

const defaultPrivateCacheKeyHeader = "X-Private-Cache-Key"

// defaultMaxTTL mirrors the 2^31-second ceiling named in the configuration
// table; it is the fallback maxAge when a response carries none, and the
// hard clamp for any computed TTL.
var defaultMaxTTL = time.Duration(1<<31) * time.Second

// config holds the construction-time, immutable settings of a Transport.
type config struct {
	privateCacheKeyHeader string
	maxCacheItemSize      int
	maxTTL                time.Duration
	storage               Storage
	keyFactory            KeyFactory
	client                Client
}

func newConfig() *config {
	return &config{
		privateCacheKeyHeader: defaultPrivateCacheKeyHeader,
		maxTTL:                defaultMaxTTL,
		keyFactory:            NewDefaultKeyFactory(),
	}
}

// Option configures a Transport at construction time.
type Option func(*config) error

// WithStorage sets the cache backend. Required; NewTransport returns an
// error if it is never supplied.
func WithStorage(s Storage) Option {
	return func(c *config) error {
		if s == nil {
			return fmt.Errorf("httpcache: storage must not be nil")
		}
		c.storage = s
		return nil
	}
}

// WithKeyFactory overrides the default sha1||md5 key derivation.
func WithKeyFactory(kf KeyFactory) Option {
	return func(c *config) error {
		if kf == nil {
			return fmt.Errorf("httpcache: key factory must not be nil")
		}
		c.keyFactory = kf
		return nil
	}
}

// WithPrivateCacheKeyHeader overrides the request header used to carry the
// caller's private-scope token. Default: X-Private-Cache-Key.
func WithPrivateCacheKeyHeader(header string) Option {
	return func(c *config) error {
		if header == "" {
			return fmt.Errorf("httpcache: private cache key header must not be empty")
		}
		c.privateCacheKeyHeader = header
		return nil
	}
}

// WithMaxCacheItemSize sets a ceiling on serialized entry size. A response
// serializing larger than this is not admitted. 0 means unlimited.
func WithMaxCacheItemSize(bytes int) Option {
	return func(c *config) error {
		if bytes < 0 {
			return fmt.Errorf("httpcache: max cache item size must not be negative")
		}
		c.maxCacheItemSize = bytes
		return nil
	}
}

// WithMaxTTL caps the per-entry TTL derived by the storability filter.
func WithMaxTTL(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("httpcache: max ttl must be positive")
		}
		c.maxTTL = d
		return nil
	}
}

// WithClient sets the downstream HTTP client the Transport forwards
// requests to. Default: http.DefaultClient.
func WithClient(cl Client) Option {
	return func(c *config) error {
		if cl == nil {
			return fmt.Errorf("httpcache: client must not be nil")
		}
		c.client = cl
		return nil
	}
}
