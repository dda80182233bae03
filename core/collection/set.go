package collection

import (
	"context"
	"fmt"
)

// PersistentSet holds unique elements. Rows are reconciled by membership and
// never updated in place.
type PersistentSet struct {
	lifecycle
	raw *RawSet
}

func newSet(p Persister, key Key, raw *RawSet) *PersistentSet {
	s := &PersistentSet{raw: raw}
	if s.raw == nil {
		s.raw = NewRawSet(0, p.ElementType())
	}
	s.init(p, key, s)
	return s
}

func (s *PersistentSet) beginRead()      { s.raw = NewRawSet(0, s.elementType()) }
func (s *PersistentSet) endRead()        {}
func (s *PersistentSet) queuedClear()    { s.raw.clear() }
func (s *PersistentSet) queuedAdd(v any) { s.raw.add(v) }

func (s *PersistentSet) readRow(row Row) error {
	if row.Value != nil {
		s.raw.add(row.Value)
	}
	return nil
}

func (s *PersistentSet) capture() Snapshot {
	return captureSequence(s.elementType(), s.raw.items)
}

// Add inserts v if absent. While extra-lazy and uninitialized the add is queued
// and reported as successful; duplicates are dropped on replay.
func (s *PersistentSet) Add(ctx context.Context, v any) (bool, error) {
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
func (s *PersistentSet) Remove(ctx context.Context, v any) (bool, error) {
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

// RemoveAll deletes every given value.
func (s *PersistentSet) RemoveAll(ctx context.Context, values ...any) (bool, error) {
	if err := s.read(ctx); err != nil {
		return false, err
	}
	changed := false
	for _, v := range values {
		if !s.raw.contains(v) {
			continue
		}
		if err := s.write(ctx); err != nil {
			return changed, err
		}
		changed = s.raw.remove(v) || changed
	}
	return changed, nil
}

// RetainAll keeps only the given values.
func (s *PersistentSet) RetainAll(ctx context.Context, values ...any) (bool, error) {
	if err := s.read(ctx); err != nil {
		return false, err
	}
	kept := make([]any, 0, s.raw.Len())
	for _, x := range s.raw.items {
		if contains(s.raw.eq, values, x) {
			kept = append(kept, x)
		}
	}
	if len(kept) == s.raw.Len() {
		return false, nil
	}
	if err := s.write(ctx); err != nil {
		return false, err
	}
	s.raw.items = kept
	return true, nil
}

// Clear removes every element, queueing the clear when possible.
func (s *PersistentSet) Clear(ctx context.Context) error {
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
func (s *PersistentSet) Size(ctx context.Context) (int, error) {
	if n, ok, err := s.probeSize(ctx); err != nil || ok {
		return n, err
	}
	if err := s.read(ctx); err != nil {
		return 0, err
	}
	return s.raw.Len(), nil
}

// IsEmpty reports whether the set has no elements.
func (s *PersistentSet) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Size(ctx)
	return n == 0, err
}

// Contains reports membership, probing the store when possible.
func (s *PersistentSet) Contains(ctx context.Context, v any) (bool, error) {
	if found, ok, err := s.probeContains(ctx, v); err != nil || ok {
		return found, err
	}
	if err := s.read(ctx); err != nil {
		return false, err
	}
	return s.raw.contains(v), nil
}

// Elements returns a copy of the elements in insertion order.
func (s *PersistentSet) Elements(ctx context.Context) ([]any, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	return s.raw.Items(), nil
}

func (s *PersistentSet) EqualsSnapshot() bool {
	return setEqualsSnapshot(s.eq(), s.entry.snapshotValues(), s.raw.items)
}

// GetDeletes returns the snapshot elements no longer present.
func (s *PersistentSet) GetDeletes() []any {
	return missingFrom(s.eq(), s.raw.items, s.entry.snapshotValues())
}

func (s *PersistentSet) Entries() []Row {
	return indexedEntries(s.raw.items)
}

// NeedsInserting reports whether the element was absent from the snapshot.
func (s *PersistentSet) NeedsInserting(row Row, _ int) bool {
	return row.Value != nil && !contains(s.eq(), s.entry.snapshotValues(), row.Value)
}

func (s *PersistentSet) NeedsUpdating(Row, int) bool { return false }
func (s *PersistentSet) IsRowUpdatePossible() bool   { return false }

// GetIndex is unsupported: sets have no indexes.
func (s *PersistentSet) GetIndex(Row, int) (any, error) {
	return nil, fmt.Errorf("%w: sets have no indexes", ErrUnsupportedOperation)
}

func (s *PersistentSet) Disassemble(p Persister) ([]any, error) {
	return disassembleAll(p.ElementType(), s.raw.items)
}

// InitializeFromCache rebuilds the set, skipping nil tokens.
func (s *PersistentSet) InitializeFromCache(p Persister, tokens []any, owner any) error {
	raw := NewRawSet(len(tokens), p.ElementType())
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

func setEqualsSnapshot(eq func(a, b any) bool, old, cur []any) bool {
	return len(old) == len(cur) && len(missingFrom(eq, cur, old)) == 0
}
