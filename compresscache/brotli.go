package compresscache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-httpcache/httpcache"
)

// BrotliStorage wraps a Storage backend with automatic brotli compression.
type BrotliStorage struct {
	*baseCompressCache
	level int
}

// BrotliConfig holds the configuration for brotli compression.
type BrotliConfig struct {
	// Storage is the underlying backend (required).
	Storage httpcache.Storage

	// Level is the compression level (1 to 11); 0 selects the default, 6.
	Level int
}

// NewBrotli creates a new BrotliStorage.
func NewBrotli(config BrotliConfig) (*BrotliStorage, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: storage cannot be nil")
	}
	if config.Level == 0 {
		config.Level = 6
	}
	if config.Level < 0 || config.Level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli compression level: %d", config.Level)
	}

	return &BrotliStorage{
		baseCompressCache: newBaseCompressCache(config.Storage, Brotli),
		level:             config.Level,
	}, nil
}

func (c *BrotliStorage) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("brotli write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *BrotliStorage) decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("brotli read failed: %w", err)
	}
	return decompressed, nil
}

// Get retrieves and decompresses a value from the backend.
func (c *BrotliStorage) Get(ctx context.Context, key string) (string, bool, error) {
	data, ok, err := c.storage.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return c.getValue(data, key, c.decompress)
}

// Set compresses and stores value under key with the given ttl.
func (c *BrotliStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.storage.Set(ctx, key, c.encodeValue(value, c.compress), ttl)
}

// Clear clears the wrapped backend.
func (c *BrotliStorage) Clear(ctx context.Context) error {
	return c.storage.Clear(ctx)
}

// Stats returns compression statistics.
func (c *BrotliStorage) Stats() Stats {
	return c.stats()
}

var _ httpcache.Storage = (*BrotliStorage)(nil)
