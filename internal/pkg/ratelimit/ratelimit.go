package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a limiter operation.
type Result struct {
	// Allowed reports whether the charge was committed (Consume) or whether
	// headroom remains (Peek). A rejected charge is never committed.
	Allowed bool
	// Remaining is the headroom left in the current window.
	Remaining int64
	// RetryAfter is the time until the current window lapses. It is always set
	// when Allowed is false and derived from the limiter's own clock.
	RetryAfter time.Duration
}

// Limiter is a fixed-window consumption counter.
//
// The window is fixed per key, not sliding: the first consumption after a
// window naturally lapses starts a fresh window. Implementations must provide
// atomic check-and-increment semantics per key so that concurrent consumers
// cannot both be granted the last remaining point.
type Limiter interface {
	// Consume charges points against key within the current window. When the
	// charge would exceed the allowance it is not committed and the returned
	// Result has Allowed false.
	Consume(ctx context.Context, key string, points int64) (*Result, error)

	// Peek reports the current state for key without charging anything.
	Peek(ctx context.Context, key string) (*Result, error)

	// Reset clears all state for key.
	Reset(ctx context.Context, key string) error
}

// Config holds the per-purpose limiter settings.
type Config struct {
	// Prefix namespaces this limiter's keys so purposes never share counters.
	Prefix string
	// Points is the allowance per window.
	Points int64
	// Window is the fixed window duration.
	Window time.Duration
}
