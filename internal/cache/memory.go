package cache

import (
	"context"
	"sync"
	"time"

	"github.com/astraljournal/lunarlog/pkg/metrics"
)

type memoryEntry struct {
	value     any
	expiresAt time.Time
}

// Memory is a TTL-bounded in-process cache. There is no eviction policy beyond
// expiry; entries are lazily removed when read past their deadline. Instances
// are constructed explicitly and injected into services so tests can reset
// state between cases.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// MemoryOption customises a Memory cache.
type MemoryOption func(*Memory)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory constructs an empty Memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the live value for key. An entry past its deadline is treated as
// absent and deleted.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if current, still := m.entries[key]; still && !m.now().Before(current.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set stores value under key, overwriting any existing entry and resetting its expiry.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Delete removes a single entry.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Clear drops all entries. Used for test isolation and manual invalidation.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
}

// Wrap returns the cached value for key when present, otherwise invokes
// producer and caches its result for ttl. Producer failures propagate and are
// never cached. Concurrent misses for the same key are not coalesced: two
// racing callers may both invoke producer, which is acceptable for the
// read-mostly idempotent producers this cache fronts. A single-flight layer
// would be the place to tighten that if it ever matters.
func Wrap[T any](ctx context.Context, m *Memory, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	if cached, ok := m.Get(key); ok {
		if value, valid := cached.(T); valid {
			metrics.CacheLookups.WithLabelValues("memory", "hit").Inc()
			return value, nil
		}
		// A type mismatch means the key is being reused across value types;
		// drop the stale entry and fall through to the producer.
		m.Delete(key)
	}
	metrics.CacheLookups.WithLabelValues("memory", "miss").Inc()

	var zero T
	value, err := producer(ctx)
	if err != nil {
		return zero, err
	}

	m.Set(key, value, ttl)
	return value, nil
}
