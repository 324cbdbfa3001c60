package dedup

import (
	"context"
	"time"
)

// Store defines the marker storage backend for the dedup guard.
// Implementations must provide atomic set-if-absent semantics so concurrent
// producers cannot both observe "first sighting" for the same key.
type Store interface {
	// SetIfAbsent atomically creates a marker for key with the given TTL.
	// Returns stored=true when the marker was created (first sighting) and
	// stored=false when it already existed.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (stored bool, err error)
}
