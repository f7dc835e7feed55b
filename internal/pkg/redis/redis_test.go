package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRateLimit(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, err := client.RateLimit(ctx, "ratelimit:owner", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, err := client.RateLimit(ctx, "ratelimit:owner", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Zero(t, remaining)

	mr.FastForward(time.Minute + time.Second)

	allowed, _, err = client.RateLimit(ctx, "ratelimit:owner", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIdempotencyKey(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := client.HasIdempotencyKey(ctx, "delivery:a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.SetIdempotencyKey(ctx, "delivery:a", "sent", time.Hour))

	ok, err = client.HasIdempotencyKey(ctx, "delivery:a")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)

	ok, err = client.HasIdempotencyKey(ctx, "delivery:a")
	require.NoError(t, err)
	assert.False(t, ok)
}
