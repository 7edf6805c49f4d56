package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time
}

func (e *memoryEntry) expired() bool {
	return time.Now().After(e.expireAt)
}

// MemoryStore implements Store with in-process storage and LRU eviction.
// Values are copied on Set and Get so callers cannot alias cache internals.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string]*memoryEntry
	access  map[string]time.Time
	max     int
	sweeper *time.Ticker
	done    chan struct{}
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	cfg := &MemoryConfig{
		MaxEntries:      256,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ms := &MemoryStore{
		data:    make(map[string]*memoryEntry),
		access:  make(map[string]time.Time),
		max:     cfg.MaxEntries,
		sweeper: time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go ms.sweep()
	return ms
}

func (ms *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.data[key]; !ok && len(ms.data) >= ms.max {
		ms.evictLRU()
	}

	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	ms.data[key] = &memoryEntry{
		value:    append([]byte(nil), value...),
		expireAt: time.Now().Add(ttl),
	}
	ms.access[key] = time.Now()
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.data[key]
	if !ok || entry.expired() {
		if ok {
			delete(ms.data, key)
			delete(ms.access, key)
		}
		return nil, ErrCacheMiss
	}
	ms.access[key] = time.Now()
	return append([]byte(nil), entry.value...), nil
}

func (ms *MemoryStore) Delete(_ context.Context, keys ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, key := range keys {
		delete(ms.data, key)
		delete(ms.access, key)
	}
	return nil
}

// Close stops the background sweeper.
func (ms *MemoryStore) Close() error {
	ms.sweeper.Stop()
	close(ms.done)
	return nil
}

func (ms *MemoryStore) evictLRU() {
	var oldestKey string
	oldestTime := time.Now()
	for key, at := range ms.access {
		if at.Before(oldestTime) {
			oldestTime = at
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(ms.data, oldestKey)
		delete(ms.access, oldestKey)
	}
}

func (ms *MemoryStore) sweep() {
	for {
		select {
		case <-ms.done:
			return
		case <-ms.sweeper.C:
			ms.mu.Lock()
			now := time.Now()
			for key, entry := range ms.data {
				if now.After(entry.expireAt) {
					delete(ms.data, key)
					delete(ms.access, key)
				}
			}
			ms.mu.Unlock()
		}
	}
}
