// Package compresscache provides a Storage wrapper that automatically
// compresses cached values to reduce backend storage and transfer size.
// Supports gzip, brotli, and snappy.
package compresscache

import (
	"fmt"
	"sync/atomic"

	"github.com/go-httpcache/httpcache"
)

// Algorithm identifies a compression algorithm.
type Algorithm int

const (
	// Gzip is a good balance of compression ratio and speed.
	Gzip Algorithm = iota
	// Brotli gives the best compression ratio but is slower.
	Brotli
	// Snappy is the fastest, with a lower compression ratio.
	Snappy
)

// String returns the name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds compression statistics accumulated across Set calls.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
	CompressionRatio  float64
	SavingsPercent    float64
}

type compressFunc func([]byte) ([]byte, error)
type decompressFunc func([]byte) ([]byte, error)

// baseCompressCache implements the marker-prefixed compression scheme
// shared by GzipStorage, BrotliStorage, and SnappyStorage.
type baseCompressCache struct {
	storage   httpcache.Storage
	algorithm Algorithm

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newBaseCompressCache(storage httpcache.Storage, algorithm Algorithm) *baseCompressCache {
	return &baseCompressCache{storage: storage, algorithm: algorithm}
}

// getValue retrieves and decompresses a value, transparently handling
// values written by a different algorithm's Storage (the marker byte
// records which one was used).
func (c *baseCompressCache) getValue(data string, key string, decompressFn decompressFunc) (string, bool, error) {
	if len(data) < 1 {
		return data, true, nil
	}

	marker := data[0]
	if marker == 0 {
		return data[1:], true, nil
	}

	storedAlgo := Algorithm(marker - 1)
	decompressed, err := c.decompressWithAlgorithm([]byte(data[1:]), storedAlgo, decompressFn)
	if err != nil {
		httpcache.GetLogger().Warn("compresscache: decompression failed", "key", key, "algorithm", storedAlgo.String(), "error", err)
		return "", false, err
	}
	return string(decompressed), true, nil
}

func (c *baseCompressCache) decompressWithAlgorithm(data []byte, algorithm Algorithm, decompressFn decompressFunc) ([]byte, error) {
	if algorithm == c.algorithm {
		return decompressFn(data)
	}
	return c.decompressAny(data, algorithm)
}

// decompressAny supports reading a value that was written under a
// different algorithm than this Storage is configured with.
func (c *baseCompressCache) decompressAny(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case Gzip:
		return (&GzipStorage{baseCompressCache: c}).decompress(data)
	case Brotli:
		return (&BrotliStorage{baseCompressCache: c}).decompress(data)
	case Snappy:
		return (&SnappyStorage{baseCompressCache: c}).decompress(data)
	default:
		return nil, fmt.Errorf("compresscache: unsupported decompression algorithm: %v", algorithm)
	}
}

func (c *baseCompressCache) encodeValue(value string, compressFn compressFunc) string {
	compressed, err := compressFn([]byte(value))
	if err != nil {
		httpcache.GetLogger().Warn("compresscache: compression failed, storing uncompressed", "algorithm", c.algorithm.String(), "error", err)
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(value)))
		return "\x00" + value
	}

	c.compressedCount.Add(1)
	c.compressedBytes.Add(int64(len(compressed)))
	c.uncompressedBytes.Add(int64(len(value)))
	return string([]byte{byte(c.algorithm + 1)}) + string(compressed)
}

func (c *baseCompressCache) stats() Stats {
	compressed := c.compressedBytes.Load()
	uncompressed := c.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}
