package cmd

import (
	"context"
	"fmt"
	"time"

	"collection-engine/core/config"
	"collection-engine/core/database"
	"collection-engine/core/logger"
	"collection-engine/core/mapping"
	"collection-engine/core/metrics"
	"collection-engine/core/storage"
	"collection-engine/feature/cacheregion"
	"collection-engine/feature/inspect"
	"collection-engine/feature/store"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

// engine holds the components shared by every command.
type engine struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *gorm.DB
	registry *prometheus.Registry
	metrics  *metrics.Recorder
	region   *cacheregion.Region
	store    *store.Store
}

// bootstrap loads configuration and wires the collection store. The cache
// region is only created when enabled.
func bootstrap(ctx context.Context) (*engine, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	roles, err := mapping.BuildRegistry(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("failed to build role registry: %w", err)
	}
	l.Info("Collection roles registered", zap.Int("roles", roles.Roles()))

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	l = l.With(zap.String("driver", cfg.Database.Driver))

	rt := &engine{
		cfg:      cfg,
		log:      l,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	rt.metrics = metrics.New(rt.registry)

	opts := []store.Option{store.WithMetrics(rt.metrics)}
	if cfg.Engine.CacheEnabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		ttl := time.Duration(cfg.Engine.CacheTTLSeconds) * time.Second
		rt.region = cacheregion.New(client, cfg.Storage.Bucket, cfg.Engine.CachePrefix, ttl, l)
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return nil, err
		}
		opts = append(opts, store.WithCache(rt.region))
		l.Info("Cache region enabled", zap.String("bucket", cfg.Storage.Bucket), zap.Duration("ttl", ttl))
	}

	rt.store = store.New(db, roles, l, opts...)
	return rt, nil
}

// purger returns the cache region as an inspect purger, or nil when disabled.
func (rt *engine) purger() inspect.Purger {
	if rt.region == nil {
		return nil
	}
	return rt.region
}

// cache returns the cache region as a store cache, or nil when disabled.
func (rt *engine) cache() store.Cache {
	if rt.region == nil {
		return nil
	}
	return rt.region
}
