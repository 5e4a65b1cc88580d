package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowSlidingWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.UnixMilli(1_700_000_000_000)
	limiter := Limiter{Client: client, Prefix: "test:", Now: func() time.Time { return now }}
	ctx := context.Background()
	window := 10 * time.Second

	allowed, remaining, reset, err := limiter.Allow(ctx, "voucher:1.2.3.4", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, remaining)
	require.WithinDuration(t, now.Add(window), reset, 0)

	now = now.Add(4 * time.Second)
	allowed, remaining, _, err = limiter.Allow(ctx, "voucher:1.2.3.4", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 0, remaining)

	now = now.Add(time.Second)
	allowed, remaining, reset, err = limiter.Allow(ctx, "voucher:1.2.3.4", window, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, 0, remaining)
	require.WithinDuration(t, time.UnixMilli(1_700_000_010_000), reset, 0, "reset follows the oldest hit")

	// The first hit slides out; the rejected one was never recorded.
	now = time.UnixMilli(1_700_000_010_001)
	allowed, remaining, _, err = limiter.Allow(ctx, "voucher:1.2.3.4", window, 2)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 0, remaining)

	allowed, _, _, err = limiter.Allow(ctx, "voucher:5.6.7.8", window, 2)
	require.NoError(t, err)
	require.True(t, allowed, "keys are independent")
}

func TestLimiterWithoutClientAllows(t *testing.T) {
	allowed, remaining, _, err := Limiter{}.Allow(context.Background(), "k", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 3, remaining)
}
