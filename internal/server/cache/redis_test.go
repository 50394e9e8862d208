package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRedisOrSkip connects to a local Redis and skips the test when none is
// reachable, so the suite stays runnable without infrastructure.
func newRedisOrSkip(t *testing.T) *RedisCache {
	t.Helper()
	c, err := NewRedisCache(&redis.Options{Addr: "localhost:6379"})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_SetGetDel(t *testing.T) {
	c := newRedisOrSkip(t)
	ctx := context.Background()

	passphrase := "sealed-passphrase"
	entry := &Entry{
		SecretID:             7,
		SecretKey:            "redis-test-key",
		Ciphertext:           "sealed",
		PassphraseCiphertext: &passphrase,
		TTLSeconds:           60,
		CreatedAt:            time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, c.Set(ctx, entry.SecretKey, entry, time.Minute))

	got, err := c.GetDel(ctx, entry.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, entry.SecretID, got.SecretID)
	assert.Equal(t, entry.Ciphertext, got.Ciphertext)
	require.NotNil(t, got.PassphraseCiphertext)
	assert.Equal(t, passphrase, *got.PassphraseCiphertext)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))

	// consumed by the GETDEL above
	_, err = c.GetDel(ctx, entry.SecretKey)
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisCache_MissOnUnknownKey(t *testing.T) {
	c := newRedisOrSkip(t)

	_, err := c.GetDel(context.Background(), "redis-test-unknown")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}
