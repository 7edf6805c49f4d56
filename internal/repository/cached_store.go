package repository

import (
	"context"
	"encoding/json"
	"time"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/pkg/cache"
	applogger "StockCast/pkg/logger"
)

// CachedStore decorates an ArtifactStore with a byte cache. The artifact
// blob and metadata document are cached under one key each, written through
// on Save so the cache never serves a pair older than the backing store.
// Cache failures degrade to the inner store and are logged only.
type CachedStore struct {
	inner domrepo.ArtifactStore
	cache cache.Store
	ttl   time.Duration
	l     *applogger.Logger
}

// NewCachedStore wraps inner with c. A non-positive ttl falls back to 24h.
func NewCachedStore(inner domrepo.ArtifactStore, c cache.Store, ttl time.Duration, l *applogger.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedStore{inner: inner, cache: c, ttl: ttl, l: l}
}

func (s *CachedStore) Save(ctx context.Context, symbol string, artifact []byte, meta *models.ModelMetadata) error {
	if err := s.inner.Save(ctx, symbol, artifact, meta); err != nil {
		return err
	}

	if err := s.cache.Set(ctx, artifactKey(symbol), artifact, s.ttl); err != nil {
		s.warn("cache artifact set failed", symbol, err)
	}
	if mb, err := json.Marshal(meta); err == nil {
		if err := s.cache.Set(ctx, metaKey(symbol), mb, s.ttl); err != nil {
			s.warn("cache metadata set failed", symbol, err)
		}
	}
	return nil
}

func (s *CachedStore) Load(ctx context.Context, symbol string) ([]byte, *models.ModelMetadata, error) {
	artifact, aerr := s.cache.Get(ctx, artifactKey(symbol))
	mb, merr := s.cache.Get(ctx, metaKey(symbol))
	if aerr == nil && merr == nil {
		var meta models.ModelMetadata
		if err := json.Unmarshal(mb, &meta); err == nil {
			return artifact, &meta, nil
		}
	}

	artifact, meta, err := s.inner.Load(ctx, symbol)
	if err != nil {
		return nil, nil, err
	}
	if err := s.cache.Set(ctx, artifactKey(symbol), artifact, s.ttl); err != nil {
		s.warn("cache artifact set failed", symbol, err)
	}
	if mb, jerr := json.Marshal(meta); jerr == nil {
		if err := s.cache.Set(ctx, metaKey(symbol), mb, s.ttl); err != nil {
			s.warn("cache metadata set failed", symbol, err)
		}
	}
	return artifact, meta, nil
}

func (s *CachedStore) Metadata(ctx context.Context, symbol string) (*models.ModelMetadata, error) {
	if mb, err := s.cache.Get(ctx, metaKey(symbol)); err == nil {
		var meta models.ModelMetadata
		if err := json.Unmarshal(mb, &meta); err == nil {
			return &meta, nil
		}
	}
	return s.inner.Metadata(ctx, symbol)
}

func (s *CachedStore) Close() error {
	_ = s.cache.Close()
	return s.inner.Close()
}

func (s *CachedStore) warn(msg, symbol string, err error) {
	if s.l != nil {
		s.l.Warn(msg, applogger.String("symbol", symbol), applogger.Error(err))
	}
}

func artifactKey(symbol string) string { return "artifact:" + symbol }
func metaKey(symbol string) string     { return "meta:" + symbol }
