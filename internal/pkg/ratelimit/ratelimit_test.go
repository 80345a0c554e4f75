package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, Config{Limit: 2, Window: time.Hour, Prefix: "rl:"})
	ctx := context.Background()

	for range 2 {
		d, err := l.Allow(ctx, "+910000000001")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.Allow(ctx, "+910000000001")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Hour, d.RetryAfter)

	d, err = l.Allow(ctx, "+910000000002")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "other keys keep their own window")

	mr.FastForward(time.Hour + time.Second)
	d, err = l.Allow(ctx, "+910000000001")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisCounterAlwaysExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, Config{Limit: 1, Window: time.Minute, Prefix: "rl:"})
	ctx := context.Background()

	_, err := l.Allow(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL("rl:a@example.com"))

	require.NoError(t, mr.Set("rl:b@example.com", "5"))
	d, err := l.Allow(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Minute, d.RetryAfter)
	assert.Equal(t, time.Minute, mr.TTL("rl:b@example.com"))

	mr.FastForward(time.Minute + time.Second)
	d, err = l.Allow(ctx, "b@example.com")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedis(client, Config{Limit: 1, Window: time.Minute}).Allow(context.Background(), "k")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMemoryBucket(t *testing.T) {
	l := NewMemory(Config{Limit: 3, Window: time.Hour})
	ctx := context.Background()

	for range 3 {
		d, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 20*time.Minute, d.RetryAfter)

	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

func TestDisabledLimiters(t *testing.T) {
	ctx := context.Background()

	d, err := NewMemory(Config{}).Allow(ctx, "x")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = NewRedis(nil, Config{}).Allow(ctx, "x")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = Noop{}.Allow(ctx, "x")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
