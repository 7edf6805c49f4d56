package cache

import (
	"context"
	"time"
)

// LayeredStore is a two-level store: in-process memory in front of Redis.
// Writes go through to Redis first so the durable layer never trails L1.
type LayeredStore struct {
	mem   *MemoryStore
	redis *RedisStore
}

// NewLayeredStore creates a layered store over an existing Redis store.
func NewLayeredStore(redis *RedisStore, memOpts ...MemoryOption) *LayeredStore {
	return &LayeredStore{
		mem:   NewMemoryStore(memOpts...),
		redis: redis,
	}
}

func (ls *LayeredStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ls.redis.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = ls.mem.Set(ctx, key, value, ttl)
	return nil
}

func (ls *LayeredStore) Get(ctx context.Context, key string) ([]byte, error) {
	if data, err := ls.mem.Get(ctx, key); err == nil {
		return data, nil
	}

	data, err := ls.redis.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = ls.mem.Set(ctx, key, data, 0)
	return data, nil
}

func (ls *LayeredStore) Delete(ctx context.Context, keys ...string) error {
	_ = ls.mem.Delete(ctx, keys...)
	return ls.redis.Delete(ctx, keys...)
}

// Close closes both layers.
func (ls *LayeredStore) Close() error {
	_ = ls.mem.Close()
	return ls.redis.Close()
}
