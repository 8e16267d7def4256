package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process TTL cache backed by go-cache. The TTL bounds how
// stale a display read can get; invalidation keeps writes read-your-own.
type Memory struct {
	store *gocache.Cache
}

// NewMemory builds a Memory cache whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{store: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached value for key, if present and unexpired.
func (m *Memory) Get(key string) (any, bool) {
	return m.store.Get(key)
}

// Set stores value under key with the default TTL.
func (m *Memory) Set(key string, value any) {
	m.store.SetDefault(key, value)
}

// Invalidate evicts the given keys.
func (m *Memory) Invalidate(keys ...string) {
	for _, key := range keys {
		m.store.Delete(key)
	}
}
