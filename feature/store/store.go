package store

import (
	"context"
	"fmt"

	"collection-engine/core/collection"
	"collection-engine/core/database"
	"collection-engine/core/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Cache is the second-level cache consulted by sessions. Tokens are the
// disassembled form produced by PersistentCollection.Disassemble.
type Cache interface {
	Get(ctx context.Context, key collection.Key) ([]any, bool, error)
	Put(ctx context.Context, key collection.Key, tokens []any) error
	Evict(ctx context.Context, key collection.Key) error
}

// Store persists collection rows in one table through gorm.
type Store struct {
	db       *gorm.DB
	registry *collection.Registry
	log      *zap.Logger
	metrics  *metrics.Recorder
	cache    Cache
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records loads, probes and flushed rows.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(s *Store) { s.metrics = rec }
}

// WithCache enables the second-level cache.
func WithCache(c Cache) Option {
	return func(s *Store) { s.cache = c }
}

// New creates a store over db for the roles in registry.
func New(db *gorm.DB, registry *collection.Registry, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{db: db, registry: registry, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the rows table when missing and verifies its columns.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&CollectionRow{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", TableName, err)
	}
	missing, err := database.MissingColumns(s.db.WithContext(ctx), TableName, columns)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s is missing columns %v", TableName, missing)
	}
	return nil
}

// Registry returns the role registry of the store.
func (s *Store) Registry() *collection.Registry {
	return s.registry
}

func (s *Store) persister(key collection.Key) (collection.Persister, error) {
	p, ok := s.registry.Lookup(key.Role)
	if !ok {
		return nil, fmt.Errorf("collection role %s is not registered", key.Role)
	}
	return p, nil
}

func (s *Store) scope(ctx context.Context, db *gorm.DB, key collection.Key) *gorm.DB {
	return db.WithContext(ctx).
		Model(&CollectionRow{}).
		Where("role = ? AND owner_id = ?", key.Role.String(), ownerOf(key))
}

// Rows returns the persisted rows of key in load order.
func (s *Store) Rows(ctx context.Context, key collection.Key) ([]collection.Row, error) {
	p, err := s.persister(key)
	if err != nil {
		return nil, err
	}
	var records []CollectionRow
	if err := s.scope(ctx, s.db, key).Order("position, id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query rows of %s: %w", key, err)
	}
	rows := make([]collection.Row, 0, len(records))
	for _, record := range records {
		row, err := fromRecord(p, record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Count returns the number of persisted rows of key.
func (s *Store) Count(ctx context.Context, key collection.Key) (int, error) {
	var n int64
	if err := s.scope(ctx, s.db, key).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", key, err)
	}
	return int(n), nil
}

// Span returns one past the highest persisted position of key. Lists and
// arrays do not persist nil positions, so this is their loaded size.
func (s *Store) Span(ctx context.Context, key collection.Key) (int, error) {
	var n int64
	if err := s.scope(ctx, s.db, key).Select("COALESCE(MAX(position) + 1, 0)").Row().Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to measure rows of %s: %w", key, err)
	}
	return int(n), nil
}

// OpenSession starts a unit of work bound to this store.
func (s *Store) OpenSession() *Session {
	return &Session{
		store:       s,
		open:        true,
		collections: make(map[collection.Key]collection.PersistentCollection),
	}
}
