package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	cachedAt  time.Time
	expiresAt time.Time
}

// MemoryStore is the in-process Store. Expiry is lazy: entries are checked at
// read time and never proactively swept, matching the access pattern of a
// cache whose keys are hot right after they are written.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryEntry

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryEntry), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, found := s.items[key]
	s.mu.RUnlock()
	if !found {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		// expired entry reads as a miss; drop it on the way out
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := s.now()
	s.mu.Lock()
	s.items[key] = memoryEntry{value: value, cachedAt: now, expiresAt: now.Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
