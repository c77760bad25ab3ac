package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is an in-process Counter for tests and single-node runs.
// Expirations are honored lazily on increment.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	expiry map[string]time.Time
}

// NewMemoryCounter creates an empty in-memory counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		counts: make(map[string]int64),
		expiry: make(map[string]time.Time),
	}
}

// Incr increments and returns the key's value.
func (m *MemoryCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.expiry[key]; ok && time.Now().After(exp) {
		delete(m.counts, key)
		delete(m.expiry, key)
	}

	m.counts[key]++
	return m.counts[key], nil
}

// Expire sets the key's expiration.
func (m *MemoryCounter) Expire(_ context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expiry[key] = time.Now().Add(expiration)
	return nil
}
