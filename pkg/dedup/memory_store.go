package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements an in-memory marker store for testing and local
// development. A background janitor removes expired markers.
type MemoryStore struct {
	mu      sync.Mutex
	markers map[string]time.Time

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewMemoryStore creates a new in-memory store with automatic cleanup
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		markers:     make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// SetIfAbsent implements Store
func (s *MemoryStore) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiresAt, exists := s.markers[key]; exists && expiresAt.After(now) {
		return false, nil
	}

	s.markers[key] = now.Add(ttl)
	return true, nil
}

// cleanupLoop periodically removes expired markers to bound memory usage
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiresAt := range s.markers {
		if expiresAt.Before(now) {
			delete(s.markers, key)
		}
	}
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}
