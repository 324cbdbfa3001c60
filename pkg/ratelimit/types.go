package ratelimit

import (
	"context"
	"time"
)

// Result contains the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests remaining in the current window.
	Remaining int

	// ResetAt is when the oldest in-window entry expires, i.e. the earliest
	// moment a denied caller can retry.
	ResetAt time.Time
}

// RetryAfter returns how long to wait before the next request is allowed.
// Returns 0 if the current request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Limiter defines the interface for rate limiting implementations.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	// If allowed, it consumes one slot in the window.
	Allow(ctx context.Context, key string) (*Result, error)

	// Status returns the current rate limit status for the given key
	// without consuming any slots.
	Status(ctx context.Context, key string) (*Result, error)

	// Reset resets the rate limit for the given key.
	Reset(ctx context.Context, key string) error
}

// Store defines the storage backend for the sliding window limiter.
// Implementations must expire entries older than the window and provide an
// atomic check-and-record so concurrent callers cannot overshoot the limit.
type Store interface {
	// RecordIfAllowed atomically counts in-window entries for key and, when
	// the count is below limit, records now as a new entry.
	// Returns whether the entry was recorded and the resulting in-window count.
	RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (allowed bool, count int64, err error)

	// CountInWindow returns the number of entries within the trailing window.
	CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	// OldestInWindow returns the timestamp of the oldest entry within the
	// window. The zero time is returned when the window is empty.
	OldestInWindow(ctx context.Context, key string, window time.Duration) (time.Time, error)

	// Delete removes the given key from the store.
	Delete(ctx context.Context, key string) error
}
