package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for development and
// testing. It keeps per-key timestamp slices and prunes expired entries both
// on access and via a background cleanup loop.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	done    chan struct{}
	closeMu sync.Once
}

// NewMemoryStore creates a new in-memory rate limit store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string][]time.Time),
		done:    make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// RecordIfAllowed implements Store.
func (s *MemoryStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.prune(key, now.Add(-window))
	if len(entries) >= limit {
		return false, int64(len(entries)), nil
	}

	entries = append(entries, now)
	s.entries[key] = entries

	return true, int64(len(entries)), nil
}

// CountInWindow implements Store.
func (s *MemoryStore) CountInWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.prune(key, time.Now().Add(-window)))), nil
}

// OldestInWindow implements Store.
func (s *MemoryStore) OldestInWindow(ctx context.Context, key string, window time.Duration) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.prune(key, time.Now().Add(-window))
	if len(entries) == 0 {
		return time.Time{}, nil
	}

	return entries[0], nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)

	return nil
}

// Close stops the background cleanup loop.
func (s *MemoryStore) Close() {
	s.closeMu.Do(func() { close(s.done) })
}

// prune drops entries older than cutoff and returns the survivors sorted
// oldest first. Caller must hold the lock.
func (s *MemoryStore) prune(key string, cutoff time.Time) []time.Time {
	entries := s.entries[key]

	kept := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 {
		delete(s.entries, key)
		return nil
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Before(kept[j]) })
	s.entries[key] = kept

	return kept
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			// Entries self-prune on access; the loop only reclaims keys that
			// stopped receiving traffic. An hour comfortably exceeds any
			// window this store is used with.
			cutoff := time.Now().Add(-time.Hour)
			for key := range s.entries {
				s.prune(key, cutoff)
			}
			s.mu.Unlock()
		}
	}
}
