// Package blobcache provides a Storage backend for httpcache using the Go
// Cloud Development Kit's blob abstraction, so the same code can target S3,
// GCS, Azure Blob Storage, or an in-memory/local bucket for testing.
//
// Example usage with S3:
//
//	import (
//	    _ "gocloud.dev/blob/s3blob"
//	    "github.com/go-httpcache/httpcache/blobcache"
//	)
//
//	cache, err := blobcache.New(ctx, blobcache.Config{
//	    BucketURL: "s3://my-bucket?region=us-west-2",
//	})
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// expiresAtKey is the blob metadata key carrying the entry's expiry, since
// blob storage has no native TTL.
const expiresAtKey = "httpcache-expires-at"

// Config holds the configuration for the blob cache.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g., "s3://bucket?region=us-west-2").
	BucketURL string

	// KeyPrefix is prepended to all cache keys (default: "cache/").
	KeyPrefix string

	// Timeout for blob operations (default: 30s).
	Timeout time.Duration

	// Bucket is an optional pre-opened bucket; if nil, BucketURL is used.
	Bucket *blob.Bucket
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "cache/",
		Timeout:   30 * time.Second,
	}
}

// Storage is a httpcache.Storage implementation backed by a gocloud.dev
// blob bucket.
type Storage struct {
	bucket     *blob.Bucket
	keyPrefix  string
	timeout    time.Duration
	ownsBucket bool
}

// New creates a new Storage with the given configuration, opening the
// bucket from BucketURL. Call Close() to release it.
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.BucketURL == "" && config.Bucket == nil {
		return nil, fmt.Errorf("either BucketURL or Bucket must be provided")
	}

	defaults := DefaultConfig()
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaults.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	if config.Bucket != nil {
		return &Storage{bucket: config.Bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
	}

	bucket, err := blob.OpenBucket(ctx, config.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return &Storage{bucket: bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout, ownsBucket: true}, nil
}

// NewWithBucket creates a Storage using an already-opened bucket. The
// caller remains responsible for closing it.
func NewWithBucket(bucket *blob.Bucket, keyPrefix string, timeout time.Duration) *Storage {
	if keyPrefix == "" {
		keyPrefix = DefaultConfig().KeyPrefix
	}
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Storage{bucket: bucket, keyPrefix: keyPrefix, timeout: timeout}
}

func (s *Storage) blobKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return s.keyPrefix + hex.EncodeToString(hash[:])
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Get returns the value corresponding to key if present and not expired.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	blobKey := s.blobKey(key)

	attrs, err := s.bucket.Attributes(ctx, blobKey)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("blobcache attributes failed for key %q: %w", key, err)
	}
	if raw, ok := attrs.Metadata[expiresAtKey]; ok {
		if expiresAt, pErr := strconv.ParseInt(raw, 10, 64); pErr == nil && expiresAt != 0 && time.Now().Unix() > expiresAt {
			_ = s.bucket.Delete(ctx, blobKey) //nolint:errcheck // best effort cleanup of expired entry
			return "", false, nil
		}
	}

	reader, err := s.bucket.NewReader(ctx, blobKey, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("blobcache get failed for key %q: %w", key, err)
	}
	defer reader.Close() //nolint:errcheck // best effort cleanup, error already handled

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", false, fmt.Errorf("blobcache read failed for key %q: %w", key, err)
	}
	return string(data), true, nil
}

// Set stores value under key with ttl recorded as blob metadata, since blob
// storage has no native expiry.
func (s *Storage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}

	writer, err := s.bucket.NewWriter(ctx, s.blobKey(key), &blob.WriterOptions{
		Metadata: map[string]string{expiresAtKey: strconv.FormatInt(expiresAt, 10)},
	})
	if err != nil {
		return fmt.Errorf("blobcache set failed to create writer for key %q: %w", key, err)
	}

	_, writeErr := writer.Write([]byte(value))
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobcache set failed to write for key %q: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobcache set failed to close writer for key %q: %w", key, closeErr)
	}
	return nil
}

// Clear deletes every blob under this cache's key prefix.
func (s *Storage) Clear(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	iter := s.bucket.List(&blob.ListOptions{Prefix: s.keyPrefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("blobcache clear failed to list: %w", err)
		}
		if err := s.bucket.Delete(ctx, obj.Key); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
			return fmt.Errorf("blobcache clear failed to delete %q: %w", obj.Key, err)
		}
	}
	return nil
}

// Close closes the bucket if it was opened by New().
func (s *Storage) Close() error {
	if s.ownsBucket {
		if err := s.bucket.Close(); err != nil {
			return fmt.Errorf("failed to close blob bucket: %w", err)
		}
	}
	return nil
}
