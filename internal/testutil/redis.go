package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const defaultRedisTestAddr = "localhost:6380"

// GetRedisTestAddr returns the Redis test address, checking environment variable first.
func GetRedisTestAddr() string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return defaultRedisTestAddr
}

// SetupRedis returns a client for the test Redis server. Keys under prefix are
// removed before the test and again on cleanup.
func SetupRedis(t *testing.T, prefix string) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: GetRedisTestAddr()})
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err(), "failed to ping redis")

	flushPrefix(t, client, prefix)
	t.Cleanup(func() {
		flushPrefix(t, client, prefix)
		_ = client.Close()
	})
	return client
}

func flushPrefix(t *testing.T, client *redis.Client, prefix string) {
	t.Helper()

	ctx := context.Background()
	iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		require.NoError(t, client.Del(ctx, iter.Val()).Err())
	}
	require.NoError(t, iter.Err())
}

// SkipIfNoRedis skips the test if the Redis test server is not reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: GetRedisTestAddr(), DialTimeout: time.Second})
	defer func() {
		_ = client.Close()
	}()

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
}
