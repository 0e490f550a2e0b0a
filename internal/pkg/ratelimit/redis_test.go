package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, cfg Config) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, cfg), mr
}

func TestRedisConsume(t *testing.T) {
	// Arrange
	limiter, _ := newRedisLimiter(t, Config{Prefix: "rl:attempt", Points: 3, Window: 15 * time.Minute})
	ctx := context.Background()

	// Act & Assert
	for i := int64(1); i <= 3; i++ {
		res, err := limiter.Consume(ctx, "user@example.com", 1)
		if err != nil {
			t.Fatalf("consume %d: unexpected error: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("consume %d: expected allowed", i)
		}
		if res.Remaining != 3-i {
			t.Fatalf("consume %d: remaining = %d, want %d", i, res.Remaining, 3-i)
		}
	}

	res, err := limiter.Consume(ctx, "user@example.com", 1)
	if err != nil {
		t.Fatalf("consume over limit: unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("consume over limit: expected rejection")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > 15*time.Minute {
		t.Fatalf("consume over limit: retry after = %v, want within window", res.RetryAfter)
	}
}

func TestRedisConsumeRejectionDoesNotCharge(t *testing.T) {
	limiter, _ := newRedisLimiter(t, Config{Prefix: "rl:req", Points: 5, Window: time.Minute})
	ctx := context.Background()

	if _, err := limiter.Consume(ctx, "k", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := limiter.Consume(ctx, "k", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("expected rejection")
	}

	res, err = limiter.Consume(ctx, "k", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed || res.Remaining != 0 {
		t.Fatalf("expected last point granted, got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}
}

func TestRedisWindowLapse(t *testing.T) {
	limiter, mr := newRedisLimiter(t, Config{Prefix: "rl:req", Points: 1, Window: 10 * time.Minute})
	ctx := context.Background()

	if _, err := limiter.Consume(ctx, "k", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, _ := limiter.Consume(ctx, "k", 1)
	if res.Allowed {
		t.Fatal("expected rejection inside window")
	}

	mr.FastForward(10 * time.Minute)

	res, err := limiter.Consume(ctx, "k", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected fresh window after expiry")
	}
}

func TestRedisPeek(t *testing.T) {
	limiter, _ := newRedisLimiter(t, Config{Prefix: "rl:block", Points: 2, Window: time.Minute})
	ctx := context.Background()

	res, err := limiter.Peek(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed || res.Remaining != 2 {
		t.Fatalf("peek fresh key: got allowed=%v remaining=%d", res.Allowed, res.Remaining)
	}

	if _, err := limiter.Consume(ctx, "k", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err = limiter.Peek(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatal("peek exhausted key: expected rejection")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("peek exhausted key: retry after = %v, want positive", res.RetryAfter)
	}
}

func TestRedisReset(t *testing.T) {
	limiter, _ := newRedisLimiter(t, Config{Prefix: "rl:attempt", Points: 1, Window: time.Minute})
	ctx := context.Background()

	if _, err := limiter.Consume(ctx, "k", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := limiter.Reset(ctx, "k"); err != nil {
		t.Fatalf("reset: unexpected error: %v", err)
	}

	res, err := limiter.Consume(ctx, "k", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected allowance after reset")
	}
}

func TestRedisKeyIsolationByPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	requests := NewRedis(client, Config{Prefix: "rl:req", Points: 1, Window: time.Minute})
	attempts := NewRedis(client, Config{Prefix: "rl:attempt", Points: 1, Window: time.Minute})
	ctx := context.Background()

	if _, err := requests.Consume(ctx, "user@example.com", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := attempts.Consume(ctx, "user@example.com", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected prefixes to isolate keyspaces")
	}
}

func TestFactory(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := Config{Prefix: "rl", Points: 1, Window: time.Minute}

	if _, err := New("memory", nil, cfg); err != nil {
		t.Fatalf("memory driver: unexpected error: %v", err)
	}
	if _, err := New("redis", client, cfg); err != nil {
		t.Fatalf("redis driver: unexpected error: %v", err)
	}
	if _, err := New("redis", nil, cfg); err == nil {
		t.Fatal("redis driver without client: expected error")
	}
	if _, err := New("etcd", nil, cfg); err == nil {
		t.Fatal("unknown driver: expected error")
	}
}
