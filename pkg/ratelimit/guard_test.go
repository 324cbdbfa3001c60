package ratelimit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/outreachq/pkg/ratelimit"
)

type brokenStore struct{}

func (brokenStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	return false, 0, errors.New("connection refused")
}

func (brokenStore) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func (brokenStore) OldestInWindow(ctx context.Context, key string, window time.Duration) (time.Time, error) {
	return time.Time{}, errors.New("connection refused")
}

func (brokenStore) Delete(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func TestNewWebhookGuard(t *testing.T) {
	t.Parallel()

	t.Run("successful creation", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		t.Cleanup(store.Close)

		guard, err := ratelimit.NewWebhookGuard(store)
		require.NoError(t, err)
		require.NotNil(t, guard)
	})

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()

		_, err := ratelimit.NewWebhookGuard(nil)
		assert.ErrorIs(t, err, ratelimit.ErrStoreRequired)
	})
}

func TestWebhookGuard_Check(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("allows under both limits", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		t.Cleanup(store.Close)
		guard, err := ratelimit.NewWebhookGuard(store)
		require.NoError(t, err)

		v := guard.Check(ctx, "203.0.113.7", "client-1")
		assert.True(t, v.Allowed)
		assert.Zero(t, v.RetryAfter)
		assert.Empty(t, v.LimitedBy)
	})

	t.Run("per-IP limit trips", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		t.Cleanup(store.Close)
		guard, err := ratelimit.NewWebhookGuard(store,
			ratelimit.WithIPLimit(3),
			ratelimit.WithClientLimit(100),
		)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			v := guard.Check(ctx, "203.0.113.7", "client-1")
			require.True(t, v.Allowed)
		}

		v := guard.Check(ctx, "203.0.113.7", "client-1")
		assert.False(t, v.Allowed)
		assert.Equal(t, "ip", v.LimitedBy)
		assert.Positive(t, v.RetryAfter)
	})

	t.Run("per-client limit trips across IPs", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		t.Cleanup(store.Close)
		guard, err := ratelimit.NewWebhookGuard(store,
			ratelimit.WithIPLimit(100),
			ratelimit.WithClientLimit(2),
		)
		require.NoError(t, err)

		require.True(t, guard.Check(ctx, "203.0.113.1", "client-1").Allowed)
		require.True(t, guard.Check(ctx, "203.0.113.2", "client-1").Allowed)

		v := guard.Check(ctx, "203.0.113.3", "client-1")
		assert.False(t, v.Allowed)
		assert.Equal(t, "client", v.LimitedBy)
	})

	t.Run("separate clients do not interfere", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		t.Cleanup(store.Close)
		guard, err := ratelimit.NewWebhookGuard(store, ratelimit.WithClientLimit(1))
		require.NoError(t, err)

		require.True(t, guard.Check(ctx, "203.0.113.1", "client-1").Allowed)
		require.False(t, guard.Check(ctx, "203.0.113.2", "client-1").Allowed)
		assert.True(t, guard.Check(ctx, "203.0.113.3", "client-2").Allowed)
	})

	t.Run("empty identifiers skip their check", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		t.Cleanup(store.Close)
		guard, err := ratelimit.NewWebhookGuard(store, ratelimit.WithIPLimit(1))
		require.NoError(t, err)

		require.True(t, guard.Check(ctx, "203.0.113.1", "").Allowed)
		require.False(t, guard.Check(ctx, "203.0.113.1", "").Allowed)

		// no IP at all bypasses the IP limit
		assert.True(t, guard.Check(ctx, "", "client-1").Allowed)
	})

	t.Run("fails open when the store is down", func(t *testing.T) {
		t.Parallel()

		guard, err := ratelimit.NewWebhookGuard(brokenStore{},
			ratelimit.WithGuardLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			v := guard.Check(ctx, "203.0.113.7", "client-1")
			assert.True(t, v.Allowed)
		}
	})

	t.Run("window option applies", func(t *testing.T) {
		t.Parallel()

		store := ratelimit.NewMemoryStore()
		t.Cleanup(store.Close)
		guard, err := ratelimit.NewWebhookGuard(store,
			ratelimit.WithIPLimit(1),
			ratelimit.WithGuardWindow(30*time.Millisecond),
		)
		require.NoError(t, err)

		require.True(t, guard.Check(ctx, "203.0.113.7", "").Allowed)
		require.False(t, guard.Check(ctx, "203.0.113.7", "").Allowed)

		time.Sleep(40 * time.Millisecond)

		assert.True(t, guard.Check(ctx, "203.0.113.7", "").Allowed)
	})
}
