package collection

import (
	"context"
	"fmt"
)

// PersistentArray wraps a fixed-size array. Its size is set by the backing rows
// (or by the wrapped array) and does not change afterwards.
type PersistentArray struct {
	lifecycle
	raw *RawArray
}

func newArray(p Persister, key Key, raw *RawArray) *PersistentArray {
	a := &PersistentArray{raw: raw}
	if a.raw == nil {
		a.raw = &RawArray{}
	}
	a.init(p, key, a)
	return a
}

func (a *PersistentArray) beginRead() { a.raw = &RawArray{} }
func (a *PersistentArray) endRead()   {}

func (a *PersistentArray) readRow(row Row) error {
	return a.raw.place(row.Index, row.Value)
}

func (a *PersistentArray) capture() Snapshot {
	return captureSequence(a.elementType(), a.raw.items)
}

// Len returns the array length.
func (a *PersistentArray) Len(ctx context.Context) (int, error) {
	if err := a.read(ctx); err != nil {
		return 0, err
	}
	return a.raw.Len(), nil
}

// Get returns the element at index i.
func (a *PersistentArray) Get(ctx context.Context, i int) (any, error) {
	if err := a.read(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, a.raw.Len()); err != nil {
		return nil, err
	}
	return a.raw.items[i], nil
}

// Set replaces the element at index i and returns the previous one.
func (a *PersistentArray) Set(ctx context.Context, i int, v any) (any, error) {
	if err := a.write(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, a.raw.Len()); err != nil {
		return nil, err
	}
	old := a.raw.items[i]
	a.raw.items[i] = v
	return old, nil
}

// Elements returns a copy of the array.
func (a *PersistentArray) Elements(ctx context.Context) ([]any, error) {
	if err := a.read(ctx); err != nil {
		return nil, err
	}
	return a.raw.Items(), nil
}

// EqualsSnapshot compares index by index.
func (a *PersistentArray) EqualsSnapshot() bool {
	return sequenceEqual(a.eq(), a.entry.snapshotValues(), a.raw.items)
}

// GetDeletes returns the indexes of rows to delete.
func (a *PersistentArray) GetDeletes() []any {
	return indexedDeletes(a.entry.snapshotValues(), a.raw.items)
}

// Entries returns every index, including nil ones.
func (a *PersistentArray) Entries() []Row {
	return indexedEntries(a.raw.items)
}

func (a *PersistentArray) NeedsInserting(row Row, i int) bool {
	return indexedNeedsInserting(a.entry.snapshotValues(), row.Value, i)
}

func (a *PersistentArray) NeedsUpdating(row Row, i int) bool {
	return indexedNeedsUpdating(a.eq(), a.entry.snapshotValues(), row.Value, i)
}

// IsRowUpdatePossible is true for arrays.
func (a *PersistentArray) IsRowUpdatePossible() bool { return true }

// GetIndex returns the array index of the row.
func (a *PersistentArray) GetIndex(_ Row, i int) (any, error) { return i, nil }

// Disassemble converts every slot into a cache token; empty slots stay nil.
func (a *PersistentArray) Disassemble(p Persister) ([]any, error) {
	return disassembleAll(p.ElementType(), a.raw.items)
}

// InitializeFromCache rebuilds the array; nil tokens leave their slot empty.
func (a *PersistentArray) InitializeFromCache(p Persister, tokens []any, owner any) error {
	items, err := assembleIndexed(p.ElementType(), tokens)
	if err != nil {
		return fmt.Errorf("failed to assemble %s: %w", a.Key(), err)
	}
	a.raw = &RawArray{items: items}
	a.finishCacheLoad()
	return nil
}
