//go:build integration

package redis

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	redigo "github.com/gomodule/redigo/redis"
	"github.com/go-httpcache/httpcache/test"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	skipIntegrationMsg = "skipping integration test; run without -short to enable"
	redisImage         = "redis:7-alpine"
)

var (
	sharedRedisContainer testcontainers.Container
	sharedRedisEndpoint  string
)

// TestMain starts a single Redis container shared by every test in this
// package, torn down once all tests finish.
func TestMain(m *testing.M) {
	flag.Parse()

	ctx := context.Background()

	container, err := rediscontainer.Run(ctx, redisImage)
	if err != nil {
		panic("failed to start Redis container: " + err.Error())
	}
	sharedRedisContainer = container

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		panic("failed to get Redis endpoint: " + err.Error())
	}
	sharedRedisEndpoint = endpoint

	code := m.Run()

	if err := testcontainers.TerminateContainer(container); err != nil {
		panic("failed to terminate Redis container: " + err.Error())
	}

	os.Exit(code)
}

func setupStorage(t *testing.T) (Storage, func()) {
	t.Helper()

	storage, err := New(Config{Address: sharedRedisEndpoint})
	if err != nil {
		t.Fatalf("failed to connect to Redis: %v", err)
	}

	if err := storage.Clear(context.Background()); err != nil {
		storage.Close()
		t.Fatalf("failed to flush Redis: %v", err)
	}

	return storage, func() { storage.Close() }
}

func TestRedisStorageConformance(t *testing.T) {
	if testing.Short() {
		t.Skip(skipIntegrationMsg)
	}

	storage, cleanup := setupStorage(t)
	defer cleanup()

	test.Storage(t, storage)
}

func TestRedisStorageExpiresQuickly(t *testing.T) {
	if testing.Short() {
		t.Skip(skipIntegrationMsg)
	}

	storage, cleanup := setupStorage(t)
	defer cleanup()

	test.ExpiresQuickly(t, storage, 500*time.Millisecond, 1500*time.Millisecond)
}

func TestRedisStorageSharedKeyspaceClearOnlyOwnPrefix(t *testing.T) {
	if testing.Short() {
		t.Skip(skipIntegrationMsg)
	}

	storage, cleanup := setupStorage(t)
	defer cleanup()

	ctx := context.Background()
	if err := storage.Set(ctx, "mine", "value", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	pool, err := newTestPool()
	if err != nil {
		t.Fatalf("newTestPool: %v", err)
	}
	defer pool.Close()
	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("SET", "unrelated-app-key", "untouched"); err != nil {
		t.Fatalf("seeding unrelated key failed: %v", err)
	}

	if err := storage.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, ok, _ := storage.Get(ctx, "mine"); ok {
		t.Fatalf("expected owned key cleared")
	}
	val, err := redigo.String(conn.Do("GET", "unrelated-app-key"))
	if err != nil || val != "untouched" {
		t.Fatalf("expected unrelated key to survive Clear, got %q err=%v", val, err)
	}
}

func newTestPool() (*redigo.Pool, error) {
	pool := &redigo.Pool{
		Dial: func() (redigo.Conn, error) {
			return redigo.Dial("tcp", sharedRedisEndpoint)
		},
	}
	conn := pool.Get()
	defer conn.Close()
	_, err := conn.Do("PING")
	return pool, err
}
