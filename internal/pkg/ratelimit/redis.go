package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript performs the check-and-increment atomically so that two
// concurrent consumers cannot both be granted the last remaining point. It
// returns {allowed, remaining, pttl_ms}.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local points = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

local consumed = tonumber(redis.call('GET', key) or '0')
if consumed + points > limit then
  return {0, limit - consumed, redis.call('PTTL', key)}
end

local total = redis.call('INCRBY', key, points)
if total == points then
  redis.call('PEXPIRE', key, window)
end

return {1, limit - total, redis.call('PTTL', key)}
`)

// Redis is a Limiter backed by a shared Redis counter.
//
// Because the counter lives in Redis, every instance of the service observes
// the same window state, which is required for multi-instance deployments.
type Redis struct {
	client *redis.Client
	cfg    Config
}

// NewRedis creates a Redis-backed fixed-window limiter.
func NewRedis(client *redis.Client, cfg Config) *Redis {
	return &Redis{client: client, cfg: cfg}
}

func (r *Redis) key(key string) string {
	return r.cfg.Prefix + ":" + key
}

// Consume charges points against key, refusing the whole charge when it would
// exceed the allowance.
func (r *Redis) Consume(ctx context.Context, key string, points int64) (*Result, error) {
	raw, err := consumeScript.Run(ctx, r.client,
		[]string{r.key(key)},
		points, r.cfg.Points, r.cfg.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("ratelimit: consume %q: %w", key, err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("ratelimit: consume %q: unexpected script reply %v", key, raw)
	}

	res := &Result{
		Allowed:   raw[0] == 1,
		Remaining: raw[1],
	}
	if !res.Allowed {
		res.RetryAfter = pttlToDuration(raw[2], r.cfg.Window)
	}

	return res, nil
}

// Peek reports the state for key without charging it.
func (r *Redis) Peek(ctx context.Context, key string) (*Result, error) {
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, r.key(key))
	ttlCmd := pipe.PTTL(ctx, r.key(key))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("ratelimit: peek %q: %w", key, err)
	}

	consumed, err := getCmd.Int64()
	if err == redis.Nil {
		return &Result{Allowed: true, Remaining: r.cfg.Points}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ratelimit: peek %q: %w", key, err)
	}

	remaining := r.cfg.Points - consumed
	if remaining > 0 {
		return &Result{Allowed: true, Remaining: remaining}, nil
	}

	return &Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: pttlToDuration(ttlCmd.Val().Milliseconds(), r.cfg.Window),
	}, nil
}

// Reset drops all state for key.
func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset %q: %w", key, err)
	}

	return nil
}

func pttlToDuration(ms int64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}

	return time.Duration(ms) * time.Millisecond
}
