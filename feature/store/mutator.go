package store

import (
	"context"
	"errors"
	"fmt"

	"collection-engine/core/collection"
	"collection-engine/core/reconcile"

	"gorm.io/gorm"
)

// ErrRowNotFound is returned when a planned delete or update matches no row.
var ErrRowNotFound = errors.New("collection row not found")

// insertBatchSize bounds a single multi-row INSERT.
const insertBatchSize = 100

// Writer applies reconcile plans to the rows table. It is bound to a gorm
// handle, usually a transaction.
type Writer struct {
	store *Store
	db    *gorm.DB
}

var (
	_ reconcile.Mutator       = (*Writer)(nil)
	_ reconcile.BatchDeleter  = (*Writer)(nil)
	_ reconcile.BatchInserter = (*Writer)(nil)
)

// Writer returns a Writer over db, or over the store connection when db is nil.
func (s *Store) Writer(db *gorm.DB) *Writer {
	if db == nil {
		db = s.db
	}
	return &Writer{store: s, db: db}
}

// locate narrows the collection scope to the row addressed by target.
// Bags and sets are addressed by element; several rows can match.
func (w *Writer) locate(ctx context.Context, p collection.Persister, key collection.Key, target any) (*gorm.DB, error) {
	q := w.store.scope(ctx, w.db, key)
	switch p.Classification() {
	case collection.List, collection.Array:
		pos, ok := target.(int)
		if !ok {
			return nil, fmt.Errorf("positional target of %s must be int, got %T", key, target)
		}
		return q.Where("position = ?", pos), nil
	case collection.OrderedMap:
		text, err := encodeValue(p.IndexType(), target)
		if err != nil {
			return nil, err
		}
		return q.Where("row_key = ?", text), nil
	case collection.IDBag:
		text, err := encodeValue(p.IndexType(), target)
		if err != nil {
			return nil, err
		}
		return q.Where("row_id = ?", text), nil
	default:
		text, err := encodeValue(p.ElementType(), target)
		if err != nil {
			return nil, err
		}
		return q.Where("value = ?", text), nil
	}
}

// DeleteRow removes the row addressed by target. For bags and sets exactly one
// matching row is removed.
func (w *Writer) DeleteRow(ctx context.Context, key collection.Key, target any) error {
	p, err := w.store.persister(key)
	if err != nil {
		return err
	}
	q, err := w.locate(ctx, p, key, target)
	if err != nil {
		return err
	}

	if !p.Classification().IsIndexed() && p.Classification() != collection.IDBag {
		var record CollectionRow
		if err := q.Order("position, id").First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s element %v", ErrRowNotFound, key, target)
			}
			return err
		}
		return w.db.WithContext(ctx).Delete(&CollectionRow{}, record.ID).Error
	}

	result := q.Delete(&CollectionRow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s target %v", ErrRowNotFound, key, target)
	}
	return nil
}

// UpdateRow rewrites the element of the row addressed by target.
func (w *Writer) UpdateRow(ctx context.Context, key collection.Key, target any, row collection.Row) error {
	p, err := w.store.persister(key)
	if err != nil {
		return err
	}
	q, err := w.locate(ctx, p, key, target)
	if err != nil {
		return err
	}
	value, err := encodeValue(p.ElementType(), row.Value)
	if err != nil {
		return err
	}
	result := q.Update("value", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s target %v", ErrRowNotFound, key, target)
	}
	return nil
}

// InsertRow inserts one row.
func (w *Writer) InsertRow(ctx context.Context, key collection.Key, row collection.Row) error {
	return w.InsertRows(ctx, key, []collection.Row{row})
}

// InsertRows inserts rows in batches.
func (w *Writer) InsertRows(ctx context.Context, key collection.Key, rows []collection.Row) error {
	if len(rows) == 0 {
		return nil
	}
	p, err := w.store.persister(key)
	if err != nil {
		return err
	}
	records := make([]CollectionRow, len(rows))
	for i, row := range rows {
		if records[i], err = toRecord(p, key, row); err != nil {
			return err
		}
	}
	return w.db.WithContext(ctx).CreateInBatches(records, insertBatchSize).Error
}

// DeleteRows removes many rows. Keyed and positional targets go in one
// statement; element targets are removed one occurrence at a time.
func (w *Writer) DeleteRows(ctx context.Context, key collection.Key, targets []any) error {
	p, err := w.store.persister(key)
	if err != nil {
		return err
	}

	var column string
	var vt collection.ValueType
	switch p.Classification() {
	case collection.List, collection.Array:
		column = "position"
	case collection.OrderedMap:
		column, vt = "row_key", p.IndexType()
	case collection.IDBag:
		column, vt = "row_id", p.IndexType()
	default:
		for _, target := range targets {
			if err := w.DeleteRow(ctx, key, target); err != nil {
				return err
			}
		}
		return nil
	}

	values := make([]any, len(targets))
	for i, target := range targets {
		if column == "position" {
			values[i] = target
			continue
		}
		text, err := encodeValue(vt, target)
		if err != nil {
			return err
		}
		values[i] = text
	}

	result := w.store.scope(ctx, w.db, key).Where(column+" IN ?", values).Delete(&CollectionRow{})
	if result.Error != nil {
		return result.Error
	}
	if int(result.RowsAffected) != len(targets) {
		return fmt.Errorf("%w: %s deleted %d of %d rows", ErrRowNotFound, key, result.RowsAffected, len(targets))
	}
	return nil
}
