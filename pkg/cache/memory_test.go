package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.Set(ctx, "k", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := ms.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("Get = %q, want %q", got, "value")
	}
}

func TestMemoryStoreMiss(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	if _, err := ms.Get(context.Background(), "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get of missing key = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := ms.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired key = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	_ = ms.Set(ctx, "a", []byte("1"), time.Minute)
	_ = ms.Set(ctx, "b", []byte("2"), time.Minute)
	if err := ms.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := ms.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Error("deleted key still present")
	}
}

func TestMemoryStoreLRUEviction(t *testing.T) {
	ms := NewMemoryStore(WithMemoryMaxEntries(2))
	defer ms.Close()
	ctx := context.Background()

	_ = ms.Set(ctx, "a", []byte("1"), time.Minute)
	time.Sleep(time.Millisecond)
	_ = ms.Set(ctx, "b", []byte("2"), time.Minute)
	time.Sleep(time.Millisecond)
	// touch "a" so "b" becomes least recently used
	if _, err := ms.Get(ctx, "a"); err != nil {
		t.Fatalf("Get a: %v", err)
	}
	time.Sleep(time.Millisecond)
	_ = ms.Set(ctx, "c", []byte("3"), time.Minute)

	if _, err := ms.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Error("LRU entry survived eviction")
	}
	if _, err := ms.Get(ctx, "a"); err != nil {
		t.Error("recently used entry evicted")
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	src := []byte("original")
	_ = ms.Set(ctx, "k", src, time.Minute)
	src[0] = 'X'

	got, err := ms.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("cached value aliased caller buffer: %q", got)
	}
	got[0] = 'Y'
	again, _ := ms.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("returned value aliased cache internals: %q", again)
	}
}
