package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider with per-entry TTL and a bounded
// capacity. When full it evicts the least recently accessed entry, so hot
// completion responses survive a burst of one-off prompts.
type MemoryProvider struct {
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	capacity int
	now      func() time.Time
}

type memoryEntry struct {
	value      []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// NewMemoryProvider creates a provider holding up to capacity entries.
func NewMemoryProvider(capacity int) *MemoryProvider {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryProvider{
		entries:  make(map[string]*memoryEntry),
		capacity: capacity,
		now:      time.Now,
	}
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent or
// its TTL has lapsed. A hit refreshes the entry's access time.
func (p *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	now := p.now()
	if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
		delete(p.entries, key)
		return nil, ErrCacheMiss
	}

	entry.accessedAt = now
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores bytes with the provided TTL. A zero TTL means no expiry.
func (p *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if _, exists := p.entries[key]; !exists && len(p.entries) >= p.capacity {
		p.evictOldest()
	}

	entry := &memoryEntry{
		value:      append([]byte(nil), value...),
		accessedAt: now,
	}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	p.entries[key] = entry
	return nil
}

// Del removes a key. Deleting an absent key is not an error.
func (p *MemoryProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
	return nil
}

// Close releases all entries.
func (p *MemoryProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[string]*memoryEntry)
	return nil
}

// Len reports the number of live entries. Expired entries still count until
// their next Get.
func (p *MemoryProvider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// evictOldest removes the least recently accessed entry. Caller holds the lock.
func (p *MemoryProvider) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, entry := range p.entries {
		if first || entry.accessedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.accessedAt
			first = false
		}
	}
	if oldestKey != "" {
		delete(p.entries, oldestKey)
	}
}
