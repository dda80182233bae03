package integrity

import (
	"context"

	"collection-engine/core/collection"
	"collection-engine/feature/integrity/checks"
	"collection-engine/feature/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	db     *gorm.DB
	store  *store.Store
	cache  store.Cache
	logger *zap.Logger
}

// NewService creates a new integrity service. cache may be nil.
func NewService(db *gorm.DB, st *store.Store, cache store.Cache, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		store:  st,
		cache:  cache,
		logger: logger,
	}
}

// CheckSchema verifies the collection row table against its model.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db, store.CollectionRow{})
}

// CheckCache compares the cache entry of a collection with its rows.
func (s *Service) CheckCache(ctx context.Context, key collection.Key) (*checks.CacheReport, error) {
	return checks.CheckCacheEntry(ctx, s.store.Registry(), s.store, s.cache, key)
}

// FixCache evicts a stale entry. The next session load repopulates it.
func (s *Service) FixCache(ctx context.Context, key collection.Key) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Evict(ctx, key)
}
