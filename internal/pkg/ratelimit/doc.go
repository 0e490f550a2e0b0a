// Package ratelimit provides fixed-window consumption counters keyed by an
// identity string.
//
// Each purpose (request throttling, attempt budgets, lockouts) instantiates its
// own Limiter with an independent key prefix and window; two instances never
// share counters even when called with the same key. Outcomes are reported as
// an explicit Result value so callers gate on tagged state instead of
// inspecting error shapes; the error return is reserved for infrastructure
// failures of the backing store.
package ratelimit
