package compresscache

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-httpcache/httpcache"
)

// GzipStorage wraps a Storage backend with automatic gzip compression.
type GzipStorage struct {
	*baseCompressCache
	level int
}

// GzipConfig holds the configuration for gzip compression.
type GzipConfig struct {
	// Storage is the underlying backend (required).
	Storage httpcache.Storage

	// Level is the compression level (-2 to 9); 0 selects the default,
	// gzip.DefaultCompression, so gzip.NoCompression cannot be chosen.
	Level int
}

// NewGzip creates a new GzipStorage.
func NewGzip(config GzipConfig) (*GzipStorage, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("compresscache: storage cannot be nil")
	}
	if config.Level == 0 {
		config.Level = gzip.DefaultCompression
	}
	if config.Level < gzip.HuffmanOnly || config.Level > gzip.BestCompression {
		return nil, fmt.Errorf("compresscache: invalid gzip compression level: %d", config.Level)
	}

	return &GzipStorage{
		baseCompressCache: newBaseCompressCache(config.Storage, Gzip),
		level:             config.Level,
	}, nil
}

func (c *GzipStorage) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer creation failed: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GzipStorage) decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader creation failed: %w", err)
	}
	defer r.Close() //nolint:errcheck // best effort cleanup

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read failed: %w", err)
	}
	return decompressed, nil
}

// Get retrieves and decompresses a value from the backend.
func (c *GzipStorage) Get(ctx context.Context, key string) (string, bool, error) {
	data, ok, err := c.storage.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	return c.getValue(data, key, c.decompress)
}

// Set compresses and stores value under key with the given ttl.
func (c *GzipStorage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.storage.Set(ctx, key, c.encodeValue(value, c.compress), ttl)
}

// Clear clears the wrapped backend.
func (c *GzipStorage) Clear(ctx context.Context) error {
	return c.storage.Clear(ctx)
}

// Stats returns compression statistics.
func (c *GzipStorage) Stats() Stats {
	return c.stats()
}

var _ httpcache.Storage = (*GzipStorage)(nil)
