package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// recordScript prunes expired members, checks the count against the limit and
// records the new entry in one atomic step, so concurrent callers cannot
// overshoot the limit.
//
// KEYS[1] = sorted set key
// ARGV[1] = window start (unix micros)
// ARGV[2] = now (unix micros)
// ARGV[3] = limit
// ARGV[4] = member
// ARGV[5] = key TTL (millis)
var recordScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[3]) then
    return {0, count}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, count + 1}
`)

// RedisStore implements Store on a Redis sorted set per key, scored by the
// entry timestamp. Suitable for rate limiting across multiple instances.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a Redis-backed rate limit store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// RecordIfAllowed implements Store.
func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	// uuid suffix keeps members unique when two entries land on the same
	// microsecond
	member := fmt.Sprintf("%d-%s", now.UnixMicro(), uuid.NewString())

	res, err := recordScript.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.Add(-window).UnixMicro(),
		now.UnixMicro(),
		limit,
		member,
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to record rate limit entry: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result: %v", res)
	}

	return res[0] == 1, res[1], nil
}

// CountInWindow implements Store.
func (s *RedisStore) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKeyPrefix+key, "-inf", fmt.Sprintf("%d", now.Add(-window).UnixMicro()))
	card := pipe.ZCard(ctx, redisKeyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count rate limit entries: %w", err)
	}

	return card.Val(), nil
}

// OldestInWindow implements Store.
func (s *RedisStore) OldestInWindow(ctx context.Context, key string, window time.Duration) (time.Time, error) {
	entries, err := s.client.ZRangeWithScores(ctx, redisKeyPrefix+key, 0, 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read oldest rate limit entry: %w", err)
	}
	if len(entries) == 0 {
		return time.Time{}, nil
	}

	oldest := time.UnixMicro(int64(entries[0].Score))
	if oldest.Before(time.Now().Add(-window)) {
		return time.Time{}, nil
	}

	return oldest, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete rate limit key: %w", err)
	}

	return nil
}
