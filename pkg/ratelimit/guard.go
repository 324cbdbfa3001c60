package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default webhook guard limits.
const (
	DefaultIPLimit     = 100
	DefaultClientLimit = 60
	DefaultGuardWindow = time.Minute
	ipKeyPrefix        = "ip:"
	clientKeyPrefix    = "client:"
)

// Verdict is the combined outcome of the per-IP and per-client checks.
type Verdict struct {
	// Allowed is true only when both limits have capacity.
	Allowed bool

	// RetryAfter is how long the caller should wait before retrying.
	// Zero when the request was allowed.
	RetryAfter time.Duration

	// LimitedBy names the limit that tripped ("ip" or "client").
	// Empty when the request was allowed.
	LimitedBy string
}

// WebhookGuard combines a per-IP and a per-client limit over a shared store.
// A request is rejected if either limit trips. Store failures fail open: a
// flood of duplicate events is preferable to dropping legitimate ones while
// the backing store is down.
type WebhookGuard struct {
	ipLimiter     *SlidingWindow
	clientLimiter *SlidingWindow
	log           *slog.Logger
}

// GuardOption configures a WebhookGuard.
type GuardOption func(*guardConfig)

type guardConfig struct {
	ipLimit     int
	clientLimit int
	window      time.Duration
	log         *slog.Logger
}

// WithIPLimit sets the per-IP request limit per window.
func WithIPLimit(limit int) GuardOption {
	return func(c *guardConfig) {
		if limit > 0 {
			c.ipLimit = limit
		}
	}
}

// WithClientLimit sets the per-client request limit per window.
func WithClientLimit(limit int) GuardOption {
	return func(c *guardConfig) {
		if limit > 0 {
			c.clientLimit = limit
		}
	}
}

// WithGuardWindow sets the sliding window for both limits.
func WithGuardWindow(window time.Duration) GuardOption {
	return func(c *guardConfig) {
		if window > 0 {
			c.window = window
		}
	}
}

// WithGuardLogger sets the logger used to report fail-open store errors.
func WithGuardLogger(log *slog.Logger) GuardOption {
	return func(c *guardConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// NewWebhookGuard creates a guard over the given store.
func NewWebhookGuard(store Store, opts ...GuardOption) (*WebhookGuard, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	cfg := guardConfig{
		ipLimit:     DefaultIPLimit,
		clientLimit: DefaultClientLimit,
		window:      DefaultGuardWindow,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ipLimiter, err := NewSlidingWindow(store, cfg.ipLimit, cfg.window)
	if err != nil {
		return nil, fmt.Errorf("ip limiter: %w", err)
	}

	clientLimiter, err := NewSlidingWindow(store, cfg.clientLimit, cfg.window)
	if err != nil {
		return nil, fmt.Errorf("client limiter: %w", err)
	}

	return &WebhookGuard{
		ipLimiter:     ipLimiter,
		clientLimiter: clientLimiter,
		log:           cfg.log,
	}, nil
}

// Check runs both limits for the given request origin. Each check consumes a
// slot in its window. An empty clientID skips the per-client check, an empty
// ip skips the per-IP check.
func (g *WebhookGuard) Check(ctx context.Context, ip, clientID string) Verdict {
	if ip != "" {
		if v, done := g.check(ctx, g.ipLimiter, ipKeyPrefix+ip, "ip"); done {
			return v
		}
	}

	if clientID != "" {
		if v, done := g.check(ctx, g.clientLimiter, clientKeyPrefix+clientID, "client"); done {
			return v
		}
	}

	return Verdict{Allowed: true}
}

func (g *WebhookGuard) check(ctx context.Context, limiter *SlidingWindow, key, name string) (Verdict, bool) {
	res, err := limiter.Allow(ctx, key)
	if err != nil {
		// fail open
		g.log.WarnContext(ctx, "rate limit store unavailable, allowing request",
			slog.String("limit", name),
			slog.Any("error", err))
		return Verdict{}, false
	}

	if !res.Allowed {
		return Verdict{
			Allowed:    false,
			RetryAfter: max(0, res.RetryAfter()),
			LimitedBy:  name,
		}, true
	}

	return Verdict{}, false
}
