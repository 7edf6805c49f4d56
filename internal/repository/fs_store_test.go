package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"StockCast/internal/domain/models"
	"StockCast/pkg/cache"
)

func testMeta(symbol string, stamp int64) *models.ModelMetadata {
	return &models.ModelMetadata{
		Symbol:      symbol,
		LastTrained: time.Now().UTC(),
		Stamp:       stamp,
		Horizons:    map[int]models.HorizonReport{1: {Horizon: 1, OK: true}},
		Schema:      []string{"rsi", "macd"},
	}
}

func testArtifact(t *testing.T, stamp int64) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"stamp": stamp, "symbol": "AAPL"})
	if err != nil {
		t.Fatalf("marshal artifact: %v", err)
	}
	return b
}

func TestFSStoreSaveLoad(t *testing.T) {
	store, err := NewFSStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	ctx := context.Background()

	stamp := int64(1234)
	artifact := testArtifact(t, stamp)
	if err := store.Save(ctx, "AAPL", artifact, testMeta("AAPL", stamp)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, meta, err := store.Load(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != string(artifact) {
		t.Error("artifact bytes differ after round trip")
	}
	if meta.Stamp != stamp || meta.Symbol != "AAPL" {
		t.Errorf("metadata = %+v", meta)
	}

	m2, err := store.Metadata(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if m2.Stamp != stamp {
		t.Errorf("Metadata stamp = %d, want %d", m2.Stamp, stamp)
	}
}

func TestFSStoreNotFound(t *testing.T) {
	store, _ := NewFSStore(t.TempDir(), nil)
	_, _, err := store.Load(context.Background(), "MISSING")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Load of missing symbol = %v, want ErrNotFound", err)
	}
	var pe *models.PersistenceError
	if !errors.As(err, &pe) {
		t.Errorf("error type = %T, want *models.PersistenceError", err)
	}
	if _, err := store.Metadata(context.Background(), "MISSING"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Metadata of missing symbol = %v, want ErrNotFound", err)
	}
}

func TestFSStoreStampMismatch(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewFSStore(dir, nil)
	ctx := context.Background()

	if err := store.Save(ctx, "AAPL", testArtifact(t, 1), testMeta("AAPL", 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// tamper with the metadata stamp
	metaPath := filepath.Join(dir, "AAPL", metaFile)
	b, err := os.ReadFile(metaPath)
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var meta models.ModelMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	meta.Stamp = 999
	b, _ = json.Marshal(&meta)
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	var pe *models.PersistenceError
	if _, _, err := store.Load(ctx, "AAPL"); !errors.As(err, &pe) {
		t.Errorf("stamp mismatch error = %v, want PersistenceError", err)
	}
}

func TestFSStoreOverwriteSupersedes(t *testing.T) {
	store, _ := NewFSStore(t.TempDir(), nil)
	ctx := context.Background()

	if err := store.Save(ctx, "AAPL", testArtifact(t, 1), testMeta("AAPL", 1)); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := store.Save(ctx, "AAPL", testArtifact(t, 2), testMeta("AAPL", 2)); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	_, meta, err := store.Load(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Stamp != 2 {
		t.Errorf("stamp = %d, want 2 (newer pair)", meta.Stamp)
	}
}

func TestCachedStoreServesFromCache(t *testing.T) {
	dir := t.TempDir()
	inner, _ := NewFSStore(dir, nil)
	mem := cache.NewMemoryStore(cache.WithMemoryMaxEntries(16))
	store := NewCachedStore(inner, mem, time.Minute, nil)
	ctx := context.Background()

	stamp := int64(7)
	if err := store.Save(ctx, "MSFT", testArtifact(t, stamp), testMeta("MSFT", stamp)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// remove the backing files; the cache must still serve the pair
	if err := os.RemoveAll(filepath.Join(dir, "MSFT")); err != nil {
		t.Fatalf("remove backing files: %v", err)
	}
	got, meta, err := store.Load(ctx, "MSFT")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Stamp != stamp || len(got) == 0 {
		t.Errorf("cached pair wrong: stamp %d, %d bytes", meta.Stamp, len(got))
	}
}

func TestCachedStoreFallsThrough(t *testing.T) {
	dir := t.TempDir()
	inner, _ := NewFSStore(dir, nil)
	ctx := context.Background()
	stamp := int64(9)
	if err := inner.Save(ctx, "NVDA", testArtifact(t, stamp), testMeta("NVDA", stamp)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// fresh cache, nothing warmed
	store := NewCachedStore(inner, cache.NewMemoryStore(), time.Minute, nil)
	_, meta, err := store.Load(ctx, "NVDA")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Stamp != stamp {
		t.Errorf("stamp = %d, want %d", meta.Stamp, stamp)
	}
}

func TestSanitizeSymbol(t *testing.T) {
	cases := map[string]string{
		"aapl":    "AAPL",
		" brk.b ": "BRK.B",
		"a/b":     "A_B",
	}
	for in, want := range cases {
		if got := sanitizeSymbol(in); got != want {
			t.Errorf("sanitizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}
