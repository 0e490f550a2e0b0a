package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestMemoryConsume(t *testing.T) {
	// Arrange
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewMemory(Config{Prefix: "test", Points: 3, Window: 15 * time.Minute}, clk)
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

func TestMemoryConsumeRejectionDoesNotCharge(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewMemory(Config{Prefix: "test", Points: 5, Window: time.Minute}, clk)
	ctx := context.Background()

	if _, err := limiter.Consume(ctx, "k", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A charge that would exceed the allowance must leave the counter
	// untouched so a smaller charge can still pass.
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

func TestMemoryWindowLapse(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewMemory(Config{Prefix: "test", Points: 1, Window: 10 * time.Minute}, clk)
	ctx := context.Background()

	if _, err := limiter.Consume(ctx, "k", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, _ := limiter.Consume(ctx, "k", 1)
	if res.Allowed {
		t.Fatal("expected rejection inside window")
	}

	clk.Advance(10 * time.Minute)

	res, err := limiter.Consume(ctx, "k", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("expected fresh window after lapse")
	}
}

func TestMemoryPeek(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewMemory(Config{Prefix: "test", Points: 2, Window: time.Minute}, clk)
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

	// Peek must never charge.
	res, _ = limiter.Peek(ctx, "k")
	if res.Remaining != 0 {
		t.Fatalf("peek twice: remaining = %d, want 0", res.Remaining)
	}
}

func TestMemoryReset(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewMemory(Config{Prefix: "test", Points: 1, Window: time.Minute}, clk)
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

func TestMemoryConcurrentConsume(t *testing.T) {
	limiter := NewMemory(Config{Prefix: "test", Points: 10, Window: time.Minute}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	granted := make(chan struct{}, 100)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Consume(ctx, "k", 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if res.Allowed {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	if got := len(granted); got != 10 {
		t.Fatalf("granted = %d, want exactly 10", got)
	}
}
