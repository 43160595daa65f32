// Package diskcache provides an on-disk Storage backend for httpcache using
// the diskv package.
package diskcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/diskv"
)

// Storage is a httpcache.Storage implementation backed by diskv. diskv has
// no native TTL, so each entry is envelope-encoded as
// "<expiresAtUnix>\n<value>"; an expiresAtUnix of 0 means no expiry.
type Storage struct {
	d *diskv.Diskv
}

// Get returns the value corresponding to key if present and not expired.
func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	raw, err := s.d.Read(keyToFilename(key))
	if err != nil {
		return "", false, nil
	}

	expiresAt, value, ok := decodeEnvelope(string(raw))
	if !ok {
		return "", false, nil
	}
	if expiresAt != 0 && time.Now().Unix() > expiresAt {
		_ = s.d.Erase(keyToFilename(key)) //nolint:errcheck // best effort cleanup of expired entry
		return "", false, nil
	}
	return value, true, nil
}

// Set stores value under key with the given ttl.
func (s *Storage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}

	envelope := encodeEnvelope(expiresAt, value)
	if err := s.d.WriteStream(keyToFilename(key), bytes.NewReader([]byte(envelope)), true); err != nil {
		return fmt.Errorf("diskcache set failed for key %q: %w", key, err)
	}
	return nil
}

// Clear removes every file diskv is managing for this cache.
func (s *Storage) Clear(_ context.Context) error {
	for key := range s.d.Keys(nil) {
		if err := s.d.Erase(key); err != nil {
			return fmt.Errorf("diskcache clear failed: %w", err)
		}
	}
	return nil
}

func encodeEnvelope(expiresAt int64, value string) string {
	return strconv.FormatInt(expiresAt, 10) + "\n" + value
}

func decodeEnvelope(raw string) (expiresAt int64, value string, ok bool) {
	head, tail, found := strings.Cut(raw, "\n")
	if !found {
		return 0, "", false
	}
	n, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, tail, true
}

func keyToFilename(key string) string {
	h := sha256.New()
	//nolint:errcheck // io.WriteString to hash.Hash never fails
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}

// New returns a new Storage that stores files under basePath.
func New(basePath string) *Storage {
	return &Storage{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv returns a new Storage using the provided Diskv instance.
func NewWithDiskv(d *diskv.Diskv) *Storage {
	return &Storage{d: d}
}
