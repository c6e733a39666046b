package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryStore is an in-process Store bounded by entry count.
// Least recently used entries are evicted when full; expired entries are
// dropped when read.
type MemoryStore struct {
	entries    *lru.Cache[string, memoryEntry]
	defaultTTL time.Duration
	now        func() time.Time
	metrics    *Metrics
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryOption customizes a MemoryStore
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// WithDefaultTTL sets the TTL used when Set is called with ttl <= 0.
// Zero keeps such entries until evicted or cleared.
func WithDefaultTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.defaultTTL = ttl
	}
}

// WithMemoryMetrics shares a metrics instance with the store
func WithMemoryMetrics(m *Metrics) MemoryOption {
	return func(s *MemoryStore) {
		s.metrics = m
	}
}

// NewMemoryStore creates a store holding at most capacity entries
func NewMemoryStore(capacity int, opts ...MemoryOption) (*MemoryStore, error) {
	entries, err := lru.New[string, memoryEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	s := &MemoryStore{
		entries: entries,
		now:     time.Now,
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get returns the value for key, or ErrKeyNotFound when absent or expired
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer func() { s.metrics.RecordGet(time.Since(start)) }()

	entry, ok := s.entries.Get(key)
	if !ok {
		s.metrics.RecordCacheMiss()
		return nil, ErrKeyNotFound
	}

	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		s.entries.Remove(key)
		s.metrics.RecordExpiration()
		s.metrics.RecordCacheMiss()
		return nil, ErrKeyNotFound
	}

	s.metrics.RecordCacheHit()
	return entry.value, nil
}

// Set stores a copy of value under key
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrInvalidKey
	}

	start := time.Now()
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	if evicted := s.entries.Add(key, entry); evicted {
		s.metrics.RecordEviction()
	}
	s.metrics.RecordSet(time.Since(start))
	return nil
}

// Clear removes every key starting with prefix
func (s *MemoryStore) Clear(_ context.Context, prefix string) error {
	start := time.Now()

	removed := 0
	for _, key := range s.entries.Keys() {
		if strings.HasPrefix(key, prefix) && s.entries.Remove(key) {
			removed++
		}
	}

	s.metrics.RecordInvalidation(removed)
	s.metrics.RecordClear(time.Since(start))
	return nil
}

// Len returns the number of entries currently held, expired ones included
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

// Metrics returns the store's metrics
func (s *MemoryStore) Metrics() *Metrics {
	return s.metrics
}
