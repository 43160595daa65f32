package compresscache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-httpcache/httpcache"
	"github.com/golang/snappy"
)

// SnappyStorage wraps a Storage backend with automatic snappy compression.
type SnappyStorage struct {
	*baseCompressCache
}

// SnappyConfig holds the configuration for snappy compression.
type SnappyConfig struct {
	// Storage is the underlying backend (required).
	Storage httpcache.Storage
}

// NewSnappy creates a new SnappyStorage.
func NewSnappy(config SnappyConfig) (*SnappyStorage, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: storage cannot be nil")
	}
	return &SnappyStorage{baseCompressCache: newBaseCompressCache(config.Storage, Snappy)}, nil
}

func (c *SnappyStorage) compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyStorage) decompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode failed: %w", err)
	}
	return decompressed, nil
}

// Get retrieves and decompresses a value from the backend.
func (c *SnappyStorage) Get(ctx context.Context, key string) (string, bool, error) {
	data, ok, err := c.storage.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return c.getValue(data, key, c.decompress)
}

// Set compresses and stores value under key with the given ttl.
func (c *SnappyStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.storage.Set(ctx, key, c.encodeValue(value, c.compress), ttl)
}

// Clear clears the wrapped backend.
func (c *SnappyStorage) Clear(ctx context.Context) error {
	return c.storage.Clear(ctx)
}

// Stats returns compression statistics.
func (c *SnappyStorage) Stats() Stats {
	return c.stats()
}

var _ httpcache.Storage = (*SnappyStorage)(nil)
