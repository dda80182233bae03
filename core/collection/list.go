package collection

import (
	"context"
	"fmt"
)

// PersistentList is an ordered collection whose rows are addressed by position.
// Nil elements stand for absent rows.
type PersistentList struct {
	lifecycle
	raw *RawList
}

func newList(p Persister, key Key, raw *RawList) *PersistentList {
	l := &PersistentList{raw: raw}
	if l.raw == nil {
		l.raw = NewRawList(0)
	}
	l.init(p, key, l)
	return l
}

func (l *PersistentList) beginRead()      { l.raw = NewRawList(0) }
func (l *PersistentList) queuedClear()    { l.raw.clear() }
func (l *PersistentList) queuedAdd(v any) { l.raw.append(v) }

// readRow places the row at its index, padding gaps with nil.
func (l *PersistentList) readRow(row Row) error {
	if row.Index < 0 {
		return fmt.Errorf("%w: negative list index %d", ErrIndexOutOfBounds, row.Index)
	}
	for l.raw.Len() <= row.Index {
		l.raw.append(nil)
	}
	l.raw.items[row.Index] = row.Value
	return nil
}

func (l *PersistentList) endRead() {}

func (l *PersistentList) capture() Snapshot {
	return captureSequence(l.elementType(), l.raw.items)
}

// Add appends v, queueing it while extra-lazy and uninitialized.
func (l *PersistentList) Add(ctx context.Context, v any) (bool, error) {
	if l.isOperationQueueEnabled() {
		l.enqueue(addOperation{value: v})
		return true, nil
	}
	if err := l.write(ctx); err != nil {
		return false, err
	}
	l.raw.append(v)
	return true, nil
}

// AddAt inserts v at position i, shifting later elements.
func (l *PersistentList) AddAt(ctx context.Context, i int, v any) error {
	if err := l.write(ctx); err != nil {
		return err
	}
	if i < 0 || i > l.raw.Len() {
		return fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfBounds, i, l.raw.Len())
	}
	l.raw.insert(i, v)
	return nil
}

// Get returns the element at position i.
func (l *PersistentList) Get(ctx context.Context, i int) (any, error) {
	if err := l.read(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, l.raw.Len()); err != nil {
		return nil, err
	}
	return l.raw.items[i], nil
}

// Set replaces the element at position i and returns the previous one.
func (l *PersistentList) Set(ctx context.Context, i int, v any) (any, error) {
	if err := l.write(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, l.raw.Len()); err != nil {
		return nil, err
	}
	old := l.raw.items[i]
	l.raw.items[i] = v
	return old, nil
}

// RemoveAt removes the element at position i and returns it.
func (l *PersistentList) RemoveAt(ctx context.Context, i int) (any, error) {
	if err := l.write(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, l.raw.Len()); err != nil {
		return nil, err
	}
	return l.raw.removeAt(i), nil
}

// Remove deletes the first occurrence of v.
func (l *PersistentList) Remove(ctx context.Context, v any) (bool, error) {
	if err := l.read(ctx); err != nil {
		return false, err
	}
	i := indexOf(l.eq(), l.raw.items, v)
	if i < 0 {
		return false, nil
	}
	if err := l.write(ctx); err != nil {
		return false, err
	}
	l.raw.removeAt(i)
	return true, nil
}

// IndexOf returns the position of the first occurrence of v, or -1.
func (l *PersistentList) IndexOf(ctx context.Context, v any) (int, error) {
	if err := l.read(ctx); err != nil {
		return -1, err
	}
	return indexOf(l.eq(), l.raw.items, v), nil
}

// Clear removes every element, queueing the clear when possible.
func (l *PersistentList) Clear(ctx context.Context) error {
	if l.isOperationQueueEnabled() {
		l.enqueue(clearOperation{})
		return nil
	}
	if err := l.write(ctx); err != nil {
		return err
	}
	l.raw.clear()
	return nil
}

// Size returns the number of positions, probing the store when possible.
func (l *PersistentList) Size(ctx context.Context) (int, error) {
	if n, ok, err := l.probeSize(ctx); err != nil || ok {
		return n, err
	}
	if err := l.read(ctx); err != nil {
		return 0, err
	}
	return l.raw.Len(), nil
}

// Contains reports whether v is present, probing the store when possible.
func (l *PersistentList) Contains(ctx context.Context, v any) (bool, error) {
	if found, ok, err := l.probeContains(ctx, v); err != nil || ok {
		return found, err
	}
	if err := l.read(ctx); err != nil {
		return false, err
	}
	return contains(l.eq(), l.raw.items, v), nil
}

// Elements returns a copy of the current elements.
func (l *PersistentList) Elements(ctx context.Context) ([]any, error) {
	if err := l.read(ctx); err != nil {
		return nil, err
	}
	return l.raw.Items(), nil
}

// EqualsSnapshot compares position by position.
func (l *PersistentList) EqualsSnapshot() bool {
	return sequenceEqual(l.eq(), l.entry.snapshotValues(), l.raw.items)
}

// GetDeletes returns the indexes of rows to delete.
func (l *PersistentList) GetDeletes() []any {
	return indexedDeletes(l.entry.snapshotValues(), l.raw.items)
}

// Entries returns every position, including nil ones.
func (l *PersistentList) Entries() []Row {
	return indexedEntries(l.raw.items)
}

// NeedsInserting reports whether position i holds an element where the snapshot had none.
func (l *PersistentList) NeedsInserting(row Row, i int) bool {
	return indexedNeedsInserting(l.entry.snapshotValues(), row.Value, i)
}

// NeedsUpdating reports whether position i holds a different element than the snapshot.
func (l *PersistentList) NeedsUpdating(row Row, i int) bool {
	return indexedNeedsUpdating(l.eq(), l.entry.snapshotValues(), row.Value, i)
}

// IsRowUpdatePossible is true for lists.
func (l *PersistentList) IsRowUpdatePossible() bool { return true }

// GetIndex returns the position of the row.
func (l *PersistentList) GetIndex(_ Row, i int) (any, error) { return i, nil }

// Disassemble converts every position into a cache token; nil positions stay nil.
func (l *PersistentList) Disassemble(p Persister) ([]any, error) {
	return disassembleAll(p.ElementType(), l.raw.items)
}

// InitializeFromCache rebuilds the list; nil tokens keep their position as nil.
func (l *PersistentList) InitializeFromCache(p Persister, tokens []any, owner any) error {
	items, err := assembleIndexed(p.ElementType(), tokens)
	if err != nil {
		return fmt.Errorf("failed to assemble %s: %w", l.Key(), err)
	}
	l.raw = &RawList{items: items}
	l.finishCacheLoad()
	return nil
}

func indexedDeletes(old, cur []any) []any {
	var deletes []any
	for i := len(cur); i < len(old); i++ {
		if old[i] != nil {
			deletes = append(deletes, i)
		}
	}
	end := min(len(old), len(cur))
	for i := 0; i < end; i++ {
		if cur[i] == nil && old[i] != nil {
			deletes = append(deletes, i)
		}
	}
	return deletes
}

func indexedEntries(items []any) []Row {
	rows := make([]Row, len(items))
	for i, v := range items {
		rows[i] = Row{Index: i, Value: v}
	}
	return rows
}

func indexedNeedsInserting(old []any, v any, i int) bool {
	return v != nil && (i >= len(old) || old[i] == nil)
}

func indexedNeedsUpdating(eq func(a, b any) bool, old []any, v any, i int) bool {
	return i < len(old) && old[i] != nil && v != nil && !eq(v, old[i])
}

func assembleIndexed(vt ValueType, tokens []any) ([]any, error) {
	items := make([]any, len(tokens))
	for i, token := range tokens {
		if token == nil {
			continue
		}
		v, err := assemble(vt, token)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items[i] = v
	}
	return items, nil
}
