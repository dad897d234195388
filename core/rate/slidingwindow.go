package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] bucket; ARGV window(ms) limit now(ms) member
const slidingWindowLua = `
local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return {1, 0}
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {0, tonumber(oldest[2]) + window}
`

var slidingWindowScript = redis.NewScript(slidingWindowLua)

// SlidingWindowLimiter shares one budget between every process using the
// same bucket key.
type SlidingWindowLimiter struct {
	client    redis.UniversalClient
	bucketKey string
	window    time.Duration
	limit     int
}

func NewSlidingWindowLimiter(client redis.UniversalClient, bucketKey string, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client:    client,
		bucketKey: bucketKey,
		window:    window,
		limit:     limit,
	}
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, now time.Time) (bool, time.Time, error) {
	res, err := slidingWindowScript.Run(ctx, l.client, []string{l.bucketKey},
		l.window.Milliseconds(), l.limit, now.UnixMilli(), uuid.NewString()).Int64Slice()
	if err != nil {
		return false, time.Time{}, err
	}
	if len(res) != 2 {
		return false, time.Time{}, fmt.Errorf("rate: unexpected script reply %v", res)
	}
	if res[0] == 1 {
		return true, time.Time{}, nil
	}
	return false, time.UnixMilli(res[1]), nil
}

func (l *SlidingWindowLimiter) Reset(ctx context.Context) error {
	return l.client.Del(ctx, l.bucketKey).Err()
}
