package reconcile

import (
	"context"

	"collection-engine/core/collection"
)

// Mutator writes planned row mutations to a backing store.
type Mutator interface {
	// DeleteRow removes the row identified by target (see Action.Target).
	DeleteRow(ctx context.Context, key collection.Key, target any) error

	// UpdateRow rewrites the element of the row identified by target.
	UpdateRow(ctx context.Context, key collection.Key, target any, row collection.Row) error

	// InsertRow inserts a new row.
	InsertRow(ctx context.Context, key collection.Key, row collection.Row) error
}

// BatchDeleter is implemented by mutators that can delete many rows in one call.
type BatchDeleter interface {
	DeleteRows(ctx context.Context, key collection.Key, targets []any) error
}

// BatchUpdater is implemented by mutators that can update many rows in one call.
type BatchUpdater interface {
	UpdateRows(ctx context.Context, key collection.Key, actions []Action) error
}

// BatchInserter is implemented by mutators that can insert many rows in one call.
type BatchInserter interface {
	InsertRows(ctx context.Context, key collection.Key, rows []collection.Row) error
}
