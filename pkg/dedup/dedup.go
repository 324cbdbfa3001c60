package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"
)

// DefaultWindow is how long a marker suppresses repeated identities.
// Webhook providers typically retry within minutes, so half an hour covers
// their whole retry schedule.
const DefaultWindow = 30 * time.Minute

// Fingerprint computes a stable identifier for an ordered tuple of identity
// parts (e.g. tenant, phone, channel). SHA-256 truncated to 16 bytes keeps
// keys short while making collisions across unrelated inputs practically
// impossible.
func Fingerprint(parts ...string) string {
	combined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(hash[:16])
}

// Guard suppresses duplicate processing of repeated events within a time
// window. It is a protective control, not a correctness-critical one: when
// the backing store is unavailable the guard fails open and reports
// "not duplicate", because wrongly blocking would silently drop real work
// while a duplicate side effect is merely wasteful.
type Guard struct {
	store  Store
	window time.Duration
	logger *slog.Logger
}

// Option is a functional option for configuring a Guard
type Option func(*Guard)

// WithWindow sets the dedup window during which a repeated identity is
// suppressed as duplicate
func WithWindow(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithLogger sets the logger used for fail-open warnings
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New creates a new dedup guard backed by the given store
func New(store Store, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		window: DefaultWindow,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// CheckAndMark reports whether the identity tuple was already seen within the
// window, atomically marking it as seen on first sighting. The marker is
// created conditionally on absence and expires on its own; it is never
// refreshed by later sightings.
func (g *Guard) CheckAndMark(ctx context.Context, parts ...string) bool {
	fp := Fingerprint(parts...)

	stored, err := g.store.SetIfAbsent(ctx, fp, g.window)
	if err != nil {
		g.logger.Warn("dedup store unavailable, failing open",
			slog.String("fingerprint", fp),
			slog.String("error", err.Error()))
		return false
	}

	return !stored
}
