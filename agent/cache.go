package agent

import (
	"context"
	"sync"
	"time"
)

// Cache is a keyed value store with optional expiry. Store adds namespacing
// and context routing on top of it.
type Cache[S any] interface {
	// Set stores val under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, val S, ttl time.Duration) error
	Get(ctx context.Context, key string) (S, bool, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type memoryEntry[S any] struct {
	val     S
	expires time.Time
}

func (e memoryEntry[S]) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryCache keeps values in process memory. Expired entries are dropped
// lazily on access.
type MemoryCache[S any] struct {
	mu  sync.Mutex
	m   map[string]memoryEntry[S]
	now func() time.Time
}

func NewMemoryCache[S any]() *MemoryCache[S] {
	return &MemoryCache[S]{m: map[string]memoryEntry[S]{}, now: time.Now}
}

func (m *MemoryCache[S]) Set(ctx context.Context, key string, val S, ttl time.Duration) error {
	e := memoryEntry[S]{val: val}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.m[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Get(ctx context.Context, key string) (S, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	return e.val, ok, nil
}

func (m *MemoryCache[S]) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.m, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache[S]) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}

// lookup must be called with mu held.
func (m *MemoryCache[S]) lookup(key string) (memoryEntry[S], bool) {
	e, ok := m.m[key]
	if !ok {
		return e, false
	}
	if e.expired(m.now()) {
		delete(m.m, key)
		return memoryEntry[S]{}, false
	}
	return e, true
}

var _ Cache[int] = (*MemoryCache[int])(nil)
