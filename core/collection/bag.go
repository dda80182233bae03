package collection

import (
	"context"
	"fmt"
)

// PersistentBag is an unordered collection with duplicates. It exposes positional
// access for convenience, but positions carry no persistent meaning: rows are
// reconciled by occurrence counting. Two bags are only ever equal by identity.
type PersistentBag struct {
	lifecycle
	raw *RawList

	match      bagMatch
	matchMods  int
	matchSnap  *Snapshot
	matchValid bool
}

func newBag(p Persister, key Key, raw *RawList) *PersistentBag {
	b := &PersistentBag{raw: raw}
	if b.raw == nil {
		b.raw = NewRawList(0)
	}
	b.init(p, key, b)
	return b
}

func (b *PersistentBag) beginRead()      { b.raw = NewRawList(0) }
func (b *PersistentBag) endRead()        {}
func (b *PersistentBag) queuedClear()    { b.raw.clear() }
func (b *PersistentBag) queuedAdd(v any) { b.raw.append(v) }

func (b *PersistentBag) readRow(row Row) error {
	b.raw.append(row.Value)
	return nil
}

func (b *PersistentBag) capture() Snapshot {
	return captureSequence(b.elementType(), b.raw.items)
}

// Add appends v. While extra-lazy and uninitialized the add is queued and reported as successful.
func (b *PersistentBag) Add(ctx context.Context, v any) (bool, error) {
	if b.isOperationQueueEnabled() {
		b.enqueue(addOperation{value: v})
		return true, nil
	}
	if err := b.write(ctx); err != nil {
		return false, err
	}
	b.raw.append(v)
	return true, nil
}

// AddAll appends every value, queueing each one when possible.
func (b *PersistentBag) AddAll(ctx context.Context, values ...any) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	for _, v := range values {
		if _, err := b.Add(ctx, v); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Remove deletes one occurrence of v.
func (b *PersistentBag) Remove(ctx context.Context, v any) (bool, error) {
	if err := b.read(ctx); err != nil {
		return false, err
	}
	i := indexOf(b.eq(), b.raw.items, v)
	if i < 0 {
		return false, nil
	}
	if err := b.write(ctx); err != nil {
		return false, err
	}
	b.raw.removeAt(i)
	return true, nil
}

// RemoveAll deletes every occurrence of each given value.
func (b *PersistentBag) RemoveAll(ctx context.Context, values ...any) (bool, error) {
	return b.filter(ctx, func(x any) bool { return !contains(b.eq(), values, x) })
}

// RetainAll keeps only the occurrences of the given values.
func (b *PersistentBag) RetainAll(ctx context.Context, values ...any) (bool, error) {
	return b.filter(ctx, func(x any) bool { return contains(b.eq(), values, x) })
}

func (b *PersistentBag) filter(ctx context.Context, keep func(any) bool) (bool, error) {
	if err := b.read(ctx); err != nil {
		return false, err
	}
	kept := make([]any, 0, len(b.raw.items))
	for _, x := range b.raw.items {
		if keep(x) {
			kept = append(kept, x)
		}
	}
	if len(kept) == len(b.raw.items) {
		return false, nil
	}
	if err := b.write(ctx); err != nil {
		return false, err
	}
	b.raw.items = kept
	return true, nil
}

// Clear removes every element, queueing the clear when possible.
func (b *PersistentBag) Clear(ctx context.Context) error {
	if b.isOperationQueueEnabled() {
		b.enqueue(clearOperation{})
		return nil
	}
	if err := b.read(ctx); err != nil {
		return err
	}
	if b.raw.Len() == 0 {
		return nil
	}
	if err := b.write(ctx); err != nil {
		return err
	}
	b.raw.clear()
	return nil
}

// Size returns the number of elements, probing the store when possible.
func (b *PersistentBag) Size(ctx context.Context) (int, error) {
	if n, ok, err := b.probeSize(ctx); err != nil || ok {
		return n, err
	}
	if err := b.read(ctx); err != nil {
		return 0, err
	}
	return b.raw.Len(), nil
}

// IsEmpty reports whether the bag has no elements.
func (b *PersistentBag) IsEmpty(ctx context.Context) (bool, error) {
	n, err := b.Size(ctx)
	return n == 0, err
}

// Contains reports whether v occurs at least once, probing the store when possible.
func (b *PersistentBag) Contains(ctx context.Context, v any) (bool, error) {
	if found, ok, err := b.probeContains(ctx, v); err != nil || ok {
		return found, err
	}
	if err := b.read(ctx); err != nil {
		return false, err
	}
	return contains(b.eq(), b.raw.items, v), nil
}

// Occurrences counts how many times v occurs.
func (b *PersistentBag) Occurrences(ctx context.Context, v any) (int, error) {
	if err := b.read(ctx); err != nil {
		return 0, err
	}
	return occurrences(b.eq(), b.raw.items, v), nil
}

// Get returns the element at position i.
func (b *PersistentBag) Get(ctx context.Context, i int) (any, error) {
	if err := b.read(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, b.raw.Len()); err != nil {
		return nil, err
	}
	return b.raw.items[i], nil
}

// Set replaces the element at position i and returns the previous one.
func (b *PersistentBag) Set(ctx context.Context, i int, v any) (any, error) {
	if err := b.write(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, b.raw.Len()); err != nil {
		return nil, err
	}
	old := b.raw.items[i]
	b.raw.items[i] = v
	return old, nil
}

// SubList returns a copy of the elements in [from, to).
func (b *PersistentBag) SubList(ctx context.Context, from, to int) ([]any, error) {
	if err := b.read(ctx); err != nil {
		return nil, err
	}
	if from < 0 || to > b.raw.Len() || from > to {
		return nil, fmt.Errorf("%w: range [%d, %d), size %d", ErrIndexOutOfBounds, from, to, b.raw.Len())
	}
	return append([]any(nil), b.raw.items[from:to]...), nil
}

// Elements returns a copy of the current elements.
func (b *PersistentBag) Elements(ctx context.Context) ([]any, error) {
	if err := b.read(ctx); err != nil {
		return nil, err
	}
	return b.raw.Items(), nil
}

// EqualsSnapshot compares the bag with its snapshot by occurrence counting.
func (b *PersistentBag) EqualsSnapshot() bool {
	return multisetEqual(b.eq(), b.entry.snapshotValues(), b.raw.items)
}

// GetDeletes returns the snapshot elements that no longer occur. For one-to-many
// bags the positional-shortcut scan is used, which ignores duplicates.
func (b *PersistentBag) GetDeletes() []any {
	old := b.entry.snapshotValues()
	if b.Persister().IsOneToMany() {
		return oneToManyDeletes(b.eq(), old, b.raw.items)
	}
	m := b.matching()
	var deletes []any
	for i, matched := range m.old {
		if !matched {
			deletes = append(deletes, old[i])
		}
	}
	return deletes
}

// Entries returns the current rows in order.
func (b *PersistentBag) Entries() []Row {
	rows := make([]Row, len(b.raw.items))
	for i, v := range b.raw.items {
		rows[i] = Row{Index: i, Value: v}
	}
	return rows
}

// NeedsInserting reports whether the element at position i has no counterpart in the snapshot.
func (b *PersistentBag) NeedsInserting(row Row, i int) bool {
	if row.Value == nil {
		return false
	}
	if b.Persister().IsOneToMany() {
		return oneToManyNeedsInserting(b.eq(), b.entry.snapshotValues(), row.Value, i)
	}
	m := b.matching()
	return i >= 0 && i < len(m.cur) && !m.cur[i]
}

// NeedsUpdating is always false: bag positions are not stable.
func (b *PersistentBag) NeedsUpdating(Row, int) bool { return false }

// IsRowUpdatePossible is always false for bags.
func (b *PersistentBag) IsRowUpdatePossible() bool { return false }

// GetIndex is unsupported: bags have no indexes.
func (b *PersistentBag) GetIndex(Row, int) (any, error) {
	return nil, fmt.Errorf("%w: bags have no indexes", ErrUnsupportedOperation)
}

func (b *PersistentBag) matching() bagMatch {
	if b.matchValid && b.matchMods == b.mods && b.matchSnap == b.entry.snapshot {
		return b.match
	}
	b.match = matchBag(b.eq(), b.entry.snapshotValues(), b.raw.items)
	b.matchMods, b.matchSnap, b.matchValid = b.mods, b.entry.snapshot, true
	return b.match
}

// Disassemble converts every element into a cache token.
func (b *PersistentBag) Disassemble(p Persister) ([]any, error) {
	return disassembleAll(p.ElementType(), b.raw.items)
}

// InitializeFromCache rebuilds the bag from cache tokens, skipping nil tokens.
func (b *PersistentBag) InitializeFromCache(p Persister, tokens []any, owner any) error {
	raw := NewRawList(len(tokens))
	for i, token := range tokens {
		if token == nil {
			continue
		}
		v, err := assemble(p.ElementType(), token)
		if err != nil {
			return fmt.Errorf("failed to assemble element %d of %s: %w", i, b.Key(), err)
		}
		raw.append(v)
	}
	b.raw = raw
	b.finishCacheLoad()
	return nil
}
