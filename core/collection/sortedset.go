package collection

import (
	"context"
	"fmt"
)

// PersistentSortedSet holds unique elements ordered by the persister's comparator.
type PersistentSortedSet struct {
	lifecycle
	raw *RawSortedSet
}

func newSortedSet(p Persister, key Key, raw *RawSortedSet) *PersistentSortedSet {
	s := &PersistentSortedSet{raw: raw}
	if s.raw == nil {
		s.raw = NewRawSortedSet(0, p.Comparator())
	}
	s.init(p, key, s)
	return s
}

func (s *PersistentSortedSet) comparator() Comparator { return s.Persister().Comparator() }

func (s *PersistentSortedSet) beginRead()      { s.raw = NewRawSortedSet(0, s.comparator()) }
func (s *PersistentSortedSet) endRead()        {}
func (s *PersistentSortedSet) queuedClear()    { s.raw.clear() }
func (s *PersistentSortedSet) queuedAdd(v any) { s.raw.add(v) }

func (s *PersistentSortedSet) readRow(row Row) error {
	if row.Value != nil {
		s.raw.add(row.Value)
	}
	return nil
}

func (s *PersistentSortedSet) capture() Snapshot {
	return captureSequence(s.elementType(), s.raw.items)
}

// Add inserts v in order if absent, queueing it while extra-lazy and uninitialized.
func (s *PersistentSortedSet) Add(ctx context.Context, v any) (bool, error) {
	if s.isOperationQueueEnabled() {
		s.enqueue(addOperation{value: v})
		return true, nil
	}
	if err := s.read(ctx); err != nil {
		return false, err
	}
	if s.raw.contains(v) {
		return false, nil
	}
	if err := s.write(ctx); err != nil {
		return false, err
	}
	return s.raw.add(v), nil
}

// Remove deletes v if present.
func (s *PersistentSortedSet) Remove(ctx context.Context, v any) (bool, error) {
	if err := s.read(ctx); err != nil {
		return false, err
	}
	if !s.raw.contains(v) {
		return false, nil
	}
	if err := s.write(ctx); err != nil {
		return false, err
	}
	return s.raw.remove(v), nil
}

// Clear removes every element, queueing the clear when possible.
func (s *PersistentSortedSet) Clear(ctx context.Context) error {
	if s.isOperationQueueEnabled() {
		s.enqueue(clearOperation{})
		return nil
	}
	if err := s.write(ctx); err != nil {
		return err
	}
	s.raw.clear()
	return nil
}

// Size returns the number of elements, probing the store when possible.
func (s *PersistentSortedSet) Size(ctx context.Context) (int, error) {
	if n, ok, err := s.probeSize(ctx); err != nil || ok {
		return n, err
	}
	if err := s.read(ctx); err != nil {
		return 0, err
	}
	return s.raw.Len(), nil
}

// Contains reports membership, probing the store when possible.
func (s *PersistentSortedSet) Contains(ctx context.Context, v any) (bool, error) {
	if found, ok, err := s.probeContains(ctx, v); err != nil || ok {
		return found, err
	}
	if err := s.read(ctx); err != nil {
		return false, err
	}
	return s.raw.contains(v), nil
}

// Elements returns a copy of the elements in sort order.
func (s *PersistentSortedSet) Elements(ctx context.Context) ([]any, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	return s.raw.Items(), nil
}

// First returns the lowest element. The boolean is false when the set is empty.
func (s *PersistentSortedSet) First(ctx context.Context) (any, bool, error) {
	return s.TailSet(nil).first(ctx)
}

// Last returns the highest element. The boolean is false when the set is empty.
func (s *PersistentSortedSet) Last(ctx context.Context) (any, bool, error) {
	return s.TailSet(nil).last(ctx)
}

// HeadSet returns a view of the elements strictly lower than to.
func (s *PersistentSortedSet) HeadSet(to any) *SubSetView {
	return &SubSetView{parent: s, to: to, hasTo: true}
}

// TailSet returns a view of the elements greater than or equal to from.
// A nil from yields a view of the whole set.
func (s *PersistentSortedSet) TailSet(from any) *SubSetView {
	return &SubSetView{parent: s, from: from, hasFrom: from != nil}
}

// SubSet returns a view of the elements in [from, to).
func (s *PersistentSortedSet) SubSet(from, to any) *SubSetView {
	return &SubSetView{parent: s, from: from, to: to, hasFrom: true, hasTo: true}
}

func (s *PersistentSortedSet) EqualsSnapshot() bool {
	return setEqualsSnapshot(s.eq(), s.entry.snapshotValues(), s.raw.items)
}

// GetDeletes returns the snapshot elements no longer present.
func (s *PersistentSortedSet) GetDeletes() []any {
	return missingFrom(s.eq(), s.raw.items, s.entry.snapshotValues())
}

func (s *PersistentSortedSet) Entries() []Row {
	return indexedEntries(s.raw.items)
}

// NeedsInserting reports whether the element was absent from the snapshot.
func (s *PersistentSortedSet) NeedsInserting(row Row, _ int) bool {
	return row.Value != nil && !contains(s.eq(), s.entry.snapshotValues(), row.Value)
}

func (s *PersistentSortedSet) NeedsUpdating(Row, int) bool { return false }
func (s *PersistentSortedSet) IsRowUpdatePossible() bool   { return false }

// GetIndex is unsupported: sets have no indexes.
func (s *PersistentSortedSet) GetIndex(Row, int) (any, error) {
	return nil, fmt.Errorf("%w: sorted sets have no indexes", ErrUnsupportedOperation)
}

func (s *PersistentSortedSet) Disassemble(p Persister) ([]any, error) {
	return disassembleAll(p.ElementType(), s.raw.items)
}

// InitializeFromCache rebuilds the set in comparator order, skipping nil tokens.
func (s *PersistentSortedSet) InitializeFromCache(p Persister, tokens []any, owner any) error {
	raw := NewRawSortedSet(len(tokens), p.Comparator())
	for i, token := range tokens {
		if token == nil {
			continue
		}
		v, err := assemble(p.ElementType(), token)
		if err != nil {
			return fmt.Errorf("failed to assemble element %d of %s: %w", i, s.Key(), err)
		}
		raw.add(v)
	}
	s.raw = raw
	s.finishCacheLoad()
	return nil
}
