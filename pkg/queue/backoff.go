package queue

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the interface for calculating retry delays.
// Implementations must be safe for concurrent use and return monotonically
// non-decreasing intervals with the attempt number so that a retried task's
// ScheduledAt never moves backwards.
type BackoffStrategy interface {
	// NextInterval returns the next backoff duration based on the attempt number.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with optional jitter.
// Jitter prevents thundering herd when many failed tasks become eligible at once.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval calculates exponential backoff with jitter.
// Formula: min(InitialInterval * (Multiplier ^ (attempt-1)) * (1 ± JitterFactor), MaxInterval)
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = 30 * time.Second
	}

	max := e.MaxInterval
	if max == 0 {
		max = time.Hour
	}

	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	// Zero jitter is intentionally allowed for deterministic behavior
	jitter := e.JitterFactor

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	if jitter > 0 {
		randomJitter := (rand.Float64()*2 - 1) * jitter
		interval = interval * (1 + randomJitter)
	}

	if interval > float64(max) {
		interval = float64(max)
	}

	return time.Duration(interval)
}

// LinearBackoff implements simple linear backoff without jitter.
// Provides predictable retry intervals that increase linearly.
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

// NextInterval returns linearly increasing delays.
// Formula: min(Interval * attempt, MaxInterval)
func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}

	max := l.MaxInterval
	if max == 0 {
		max = time.Hour
	}

	delay := interval * time.Duration(attempt)
	if delay > max {
		delay = max
	}

	return delay
}

// FixedBackoff implements a constant delay between retries.
type FixedBackoff struct {
	// Interval is the fixed delay between retries
	Interval time.Duration
}

// NextInterval always returns the same interval regardless of attempt number.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy returns the backoff applied to failed tasks when no
// strategy is configured on the storage: exponential growth starting at 30s,
// doubling per attempt, capped at one hour, no jitter.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: 30 * time.Second,
		MaxInterval:     time.Hour,
		Multiplier:      2,
	}
}
