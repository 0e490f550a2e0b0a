package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/regainhq/regain/internal/pkg/clock"
)

type memoryEntry struct {
	consumed  int64
	windowEnd time.Time
}

// Memory is an in-process Limiter.
//
// It is safe for concurrent use but its counters are local to the process, so
// it is only adequate for single-instance deployments. Multi-instance
// deployments must use the Redis implementation behind the same interface.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	cfg     Config
	clock   clock.Clocker
}

// NewMemory creates an in-memory fixed-window limiter.
func NewMemory(cfg Config, clk clock.Clocker) *Memory {
	if clk == nil {
		clk = clock.New()
	}

	return &Memory{
		entries: make(map[string]*memoryEntry),
		cfg:     cfg,
		clock:   clk,
	}
}

// Consume charges points against key, refusing the whole charge when it would
// exceed the allowance.
func (m *Memory) Consume(_ context.Context, key string, points int64) (*Result, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entries[key]
	if entry == nil || !now.Before(entry.windowEnd) {
		entry = &memoryEntry{windowEnd: now.Add(m.cfg.Window)}
		m.entries[key] = entry
	}

	if entry.consumed+points > m.cfg.Points {
		return &Result{
			Allowed:    false,
			Remaining:  m.cfg.Points - entry.consumed,
			RetryAfter: entry.windowEnd.Sub(now),
		}, nil
	}

	entry.consumed += points

	return &Result{Allowed: true, Remaining: m.cfg.Points - entry.consumed}, nil
}

// Peek reports the state for key without charging it.
func (m *Memory) Peek(_ context.Context, key string) (*Result, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.entries[key]
	if entry == nil || !now.Before(entry.windowEnd) {
		return &Result{Allowed: true, Remaining: m.cfg.Points}, nil
	}

	remaining := m.cfg.Points - entry.consumed
	if remaining > 0 {
		return &Result{Allowed: true, Remaining: remaining}, nil
	}

	return &Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: entry.windowEnd.Sub(now),
	}, nil
}

// Reset drops all state for key.
func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()

	return nil
}
