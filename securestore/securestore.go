// Package securestore wraps an httpcache.Storage implementation to add
// optional AES-256-GCM encryption at rest. Cache keys are left untouched
// (httpcache already hashes them via its KeyFactory); only the stored value
// is encrypted.
package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/go-httpcache/httpcache"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// Storage wraps another httpcache.Storage, transparently encrypting values
// with AES-256-GCM before they reach the wrapped backend.
type Storage struct {
	storage httpcache.Storage
	gcm     cipher.AEAD
}

// Config holds the configuration for creating a Storage.
type Config struct {
	// Storage is the underlying backend to wrap.
	Storage httpcache.Storage

	// Passphrase derives the AES-256 key via scrypt. Must stay consistent
	// across restarts or previously stored entries become undecryptable.
	Passphrase string
}

// New creates a Storage that encrypts values written to config.Storage.
func New(config Config) (*Storage, error) {
	if config.Storage == nil {
		return nil, fmt.Errorf("securestore: storage cannot be nil")
	}
	if config.Passphrase == "" {
		return nil, fmt.Errorf("securestore: passphrase cannot be empty")
	}

	salt := sha256.Sum256([]byte("httpcache-securestore-salt-v1"))
	key, err := scrypt.Key([]byte(config.Passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("securestore: failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securestore: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securestore: failed to create GCM: %w", err)
	}

	return &Storage{storage: config.Storage, gcm: gcm}, nil
}

func (s *Storage) encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("securestore: failed to generate nonce: %w", err)
	}
	ciphertext := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *Storage) decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("securestore: failed to decode ciphertext: %w", err)
	}
	if len(raw) < nonceSize {
		return "", fmt.Errorf("securestore: ciphertext too short")
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := s.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("securestore: failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Get returns the decrypted value corresponding to key if present.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	data, ok, err := s.storage.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	plaintext, err := s.decrypt(data)
	if err != nil {
		httpcache.GetLogger().Warn("securestore: failed to decrypt cached value", "key", key, "error", err)
		return "", false, err
	}
	return plaintext, true, nil
}

// Set encrypts value and stores it under key with the given ttl.
func (s *Storage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	encrypted, err := s.encrypt(value)
	if err != nil {
		httpcache.GetLogger().Warn("securestore: failed to encrypt value", "key", key, "error", err)
		return err
	}
	return s.storage.Set(ctx, key, encrypted, ttl)
}

// Clear clears the wrapped backend.
func (s *Storage) Clear(ctx context.Context) error {
	return s.storage.Clear(ctx)
}

var _ httpcache.Storage = (*Storage)(nil)
