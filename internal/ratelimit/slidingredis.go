package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims hits older than the window and records the new hit only
// while under max, so rejected calls do not extend a lockout. Scores are unix
// milliseconds. Returns {allowed, remaining, reset_ms}.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
local allowed = 0
if count < max then
  redis.call('ZADD', KEYS[1], now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', KEYS[1], window)
local reset = now + window
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end
return {allowed, max - count, reset}
`)

// Limiter implements a sliding window rate limiter backed by Redis sorted sets.
// Voucher apply and the payment webhook use it so bursts are bounded per window
// rather than per clock minute.
type Limiter struct {
	Client *redis.Client
	Prefix string
	// Now is overridable in tests.
	Now func() time.Time
}

// Allow registers a hit for key and reports whether it fits in the window.
// reset is when the oldest hit in the window expires.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	res, err := slidingWindow.Run(ctx, l.Client, []string{l.Prefix + key},
		now.UnixMilli(), window.Milliseconds(), max, uuid.NewString()).Int64Slice()
	if err != nil {
		return false, 0, now.Add(window), err
	}
	return res[0] == 1, int(max64(res[1], 0)), time.UnixMilli(res[2]), nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
