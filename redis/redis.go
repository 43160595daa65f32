// Package redis provides a Storage backend for httpcache backed by a Redis
// server, using redigo's connection pool.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Config holds the configuration for creating a Redis-backed Storage.
type Config struct {
	// Address is the Redis server address (e.g., "localhost:6379").
	Address string

	// Password is the Redis password for authentication. Optional.
	Password string

	// DB is the Redis database number to use. Optional, defaults to 0.
	DB int

	// MaxIdle is the maximum number of idle connections in the pool.
	MaxIdle int

	// MaxActive is the maximum number of active connections in the pool.
	MaxActive int

	// IdleTimeout is the duration after which idle connections are closed.
	IdleTimeout time.Duration

	// ConnectTimeout is the timeout for connecting to Redis.
	ConnectTimeout time.Duration

	// ReadTimeout is the timeout for reading from Redis.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for writing to Redis.
	WriteTimeout time.Duration
}

// Storage is a httpcache.Storage implementation that stores responses in a
// Redis server.
type Storage struct {
	pool *redis.Pool
}

// cacheKey prefixes keys to avoid collision with other data stored in redis.
func cacheKey(key string) string {
	return "rediscache:" + key
}

// Get returns the value corresponding to key if present.
func (s Storage) Get(_ context.Context, key string) (string, bool, error) {
	conn := s.pool.Get()
	defer conn.Close() //nolint:errcheck // best effort cleanup

	value, err := redis.String(conn.Do("GET", cacheKey(key)))
	if err != nil {
		if err == redis.ErrNil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get failed for key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key with the given ttl, using Redis's native EX
// expiry. A ttl <= 0 stores the key without expiry.
func (s Storage) Set(_ context.Context, key, value string, ttl time.Duration) error {
	conn := s.pool.Get()
	defer conn.Close() //nolint:errcheck // best effort cleanup

	var err error
	if ttl > 0 {
		_, err = conn.Do("SET", cacheKey(key), value, "EX", int64(ttl.Seconds()))
	} else {
		_, err = conn.Do("SET", cacheKey(key), value)
	}
	if err != nil {
		return fmt.Errorf("redis set failed for key %q: %w", key, err)
	}
	return nil
}

// Clear removes every key this cache owns, identified by its prefix. It
// uses SCAN rather than KEYS so it does not block the server on a large
// keyspace.
func (s Storage) Clear(_ context.Context) error {
	conn := s.pool.Get()
	defer conn.Close() //nolint:errcheck // best effort cleanup

	cursor := "0"
	for {
		reply, err := redis.Values(conn.Do("SCAN", cursor, "MATCH", cacheKey("*"), "COUNT", 1000))
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if _, err := redis.Scan(reply, &cursor); err != nil {
			return fmt.Errorf("redis scan decode failed: %w", err)
		}

		keys, err := redis.Strings(reply[1], nil)
		if err != nil {
			return fmt.Errorf("redis scan keys decode failed: %w", err)
		}
		if len(keys) > 0 {
			args := redis.Args{}.AddFlat(keys)
			if _, err := conn.Do("DEL", args...); err != nil {
				return fmt.Errorf("redis clear failed: %w", err)
			}
		}

		if cursor == "0" {
			break
		}
	}
	return nil
}

// Close closes the connection pool.
func (s Storage) Close() error {
	return s.pool.Close()
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxIdle:        10,
		MaxActive:      100,
		IdleTimeout:    5 * time.Minute,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// New creates a new Storage with the given configuration, establishing a
// connection pool to Redis. Call Close() when done.
func New(config Config) (Storage, error) {
	if config.Address == "" {
		return Storage{}, fmt.Errorf("redis address is required")
	}

	defaults := DefaultConfig()
	if config.MaxIdle == 0 {
		config.MaxIdle = defaults.MaxIdle
	}
	if config.MaxActive == 0 {
		config.MaxActive = defaults.MaxActive
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = defaults.IdleTimeout
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	pool := &redis.Pool{
		MaxIdle:     config.MaxIdle,
		MaxActive:   config.MaxActive,
		IdleTimeout: config.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{
				redis.DialConnectTimeout(config.ConnectTimeout),
				redis.DialReadTimeout(config.ReadTimeout),
				redis.DialWriteTimeout(config.WriteTimeout),
				redis.DialDatabase(config.DB),
			}
			if config.Password != "" {
				opts = append(opts, redis.DialPassword(config.Password))
			}
			return redis.Dial("tcp", config.Address, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	conn := pool.Get()
	defer conn.Close() //nolint:errcheck // best effort cleanup

	if _, err := conn.Do("PING"); err != nil {
		pool.Close() //nolint:errcheck // best effort cleanup after ping failure
		return Storage{}, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return Storage{pool: pool}, nil
}

// NewWithPool returns a Storage using an already-configured redis.Pool.
func NewWithPool(pool *redis.Pool) Storage {
	return Storage{pool: pool}
}
