package ratelimit

import (
	"context"
	"time"
)

// SlidingWindow implements a sliding window rate limiter that tracks
// individual request timestamps within a moving time window. More accurate
// than fixed-window counting at the cost of storing timestamps.
type SlidingWindow struct {
	store  Store
	limit  int
	window time.Duration
}

// NewSlidingWindow creates a new sliding window rate limiter.
func NewSlidingWindow(store Store, limit int, window time.Duration) (*SlidingWindow, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if window <= 0 {
		return nil, ErrInvalidInterval
	}

	return &SlidingWindow{
		store:  store,
		limit:  limit,
		window: window,
	}, nil
}

// Allow checks if a request is allowed for the given key, consuming one slot
// when it is. On denial, ResetAt points at the expiry of the oldest in-window
// entry, so RetryAfter is exact rather than a whole-window guess.
func (sw *SlidingWindow) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := time.Now()

	allowed, count, err := sw.store.RecordIfAllowed(ctx, key, now, sw.window, sw.limit)
	if err != nil {
		return nil, err
	}

	resetAt := now.Add(sw.window)
	if oldest, err := sw.store.OldestInWindow(ctx, key, sw.window); err == nil && !oldest.IsZero() {
		resetAt = oldest.Add(sw.window)
	}

	return &Result{
		Allowed:   allowed,
		Limit:     sw.limit,
		Remaining: max(0, sw.limit-int(count)),
		ResetAt:   resetAt,
	}, nil
}

// Status returns the current rate limit status without consuming a slot.
func (sw *SlidingWindow) Status(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	count, err := sw.store.CountInWindow(ctx, key, sw.window)
	if err != nil {
		return nil, err
	}

	resetAt := time.Now().Add(sw.window)
	if oldest, err := sw.store.OldestInWindow(ctx, key, sw.window); err == nil && !oldest.IsZero() {
		resetAt = oldest.Add(sw.window)
	}

	return &Result{
		Allowed:   int(count) < sw.limit,
		Limit:     sw.limit,
		Remaining: max(0, sw.limit-int(count)),
		ResetAt:   resetAt,
	}, nil
}

// Reset resets the rate limit for the given key.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}

	return sw.store.Delete(ctx, key)
}
