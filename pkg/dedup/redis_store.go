package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces dedup markers within a shared Redis instance
const keyPrefix = "dedup:"

// RedisStore implements the marker store on Redis. SET NX with expiry gives
// the atomic set-if-absent semantics the guard requires without any
// application-level locking.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed marker store
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// SetIfAbsent implements Store
func (s *RedisStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	stored, err := s.client.SetNX(ctx, keyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set dedup marker: %w", err)
	}

	return stored, nil
}
