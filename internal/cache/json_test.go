package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTripAndDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, KeyStoreSettings, map[string]string{"storeName": "Kopi"}))
	var got map[string]string
	ok, err := c.GetJSON(ctx, KeyStoreSettings, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Kopi", got["storeName"])

	require.NoError(t, c.Delete(ctx, KeyStoreSettings))
	ok, err = c.GetJSON(ctx, KeyStoreSettings, &got)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestJSONDisabledWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 0)
	require.NoError(t, c.SetJSON(context.Background(), "k", 1))
	require.False(t, mr.Exists("k"))
}
