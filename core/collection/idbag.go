package collection

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// PersistentIdentifierBag is a bag whose rows carry a surrogate identifier.
// Rows are deleted and inserted by identifier; a changed element keeps its
// identifier and is written as a delete followed by an insert.
type PersistentIdentifierBag struct {
	lifecycle
	raw   *RawIDBag
	newID func() any
}

func newIDBag(p Persister, key Key, raw *RawIDBag) *PersistentIdentifierBag {
	b := &PersistentIdentifierBag{raw: raw, newID: func() any { return uuid.NewString() }}
	if b.raw == nil {
		b.raw = NewRawIDBag(0)
	}
	b.init(p, key, b)
	return b
}

// SetIdentifierGenerator replaces the generator used by PreInsert.
func (b *PersistentIdentifierBag) SetIdentifierGenerator(gen func() any) {
	if gen != nil {
		b.newID = gen
	}
}

func (b *PersistentIdentifierBag) beginRead()      { b.raw = NewRawIDBag(0) }
func (b *PersistentIdentifierBag) endRead()        {}
func (b *PersistentIdentifierBag) queuedClear()    { b.raw.clear() }
func (b *PersistentIdentifierBag) queuedAdd(v any) { b.raw.append(nil, v) }

func (b *PersistentIdentifierBag) readRow(row Row) error {
	if row.ID == nil {
		return fmt.Errorf("id-bag row without identifier")
	}
	b.raw.append(row.ID, row.Value)
	return nil
}

// capture snapshots only rows that already have an identifier.
func (b *PersistentIdentifierBag) capture() Snapshot {
	var ids, values []any
	for i, id := range b.raw.ids {
		if id == nil {
			continue
		}
		ids = append(ids, id)
		values = append(values, b.raw.values[i])
	}
	return captureKeyed(b.indexType(), b.elementType(), ids, values)
}

func (b *PersistentIdentifierBag) idEq() func(a, b any) bool {
	return equalFunc(b.indexType())
}

// Add appends v; the row identifier is assigned before insert.
func (b *PersistentIdentifierBag) Add(ctx context.Context, v any) (bool, error) {
	if b.isOperationQueueEnabled() {
		b.enqueue(addOperation{value: v})
		return true, nil
	}
	if err := b.write(ctx); err != nil {
		return false, err
	}
	b.raw.append(nil, v)
	return true, nil
}

// Remove deletes one occurrence of v.
func (b *PersistentIdentifierBag) Remove(ctx context.Context, v any) (bool, error) {
	if err := b.read(ctx); err != nil {
		return false, err
	}
	i := indexOf(b.eq(), b.raw.values, v)
	if i < 0 {
		return false, nil
	}
	if err := b.write(ctx); err != nil {
		return false, err
	}
	b.raw.removeAt(i)
	return true, nil
}

// Clear removes every element, queueing the clear when possible.
func (b *PersistentIdentifierBag) Clear(ctx context.Context) error {
	if b.isOperationQueueEnabled() {
		b.enqueue(clearOperation{})
		return nil
	}
	if err := b.write(ctx); err != nil {
		return err
	}
	b.raw.clear()
	return nil
}

// Size returns the number of elements, probing the store when possible.
func (b *PersistentIdentifierBag) Size(ctx context.Context) (int, error) {
	if n, ok, err := b.probeSize(ctx); err != nil || ok {
		return n, err
	}
	if err := b.read(ctx); err != nil {
		return 0, err
	}
	return b.raw.Len(), nil
}

// Contains reports whether v occurs at least once.
func (b *PersistentIdentifierBag) Contains(ctx context.Context, v any) (bool, error) {
	if found, ok, err := b.probeContains(ctx, v); err != nil || ok {
		return found, err
	}
	if err := b.read(ctx); err != nil {
		return false, err
	}
	return contains(b.eq(), b.raw.values, v), nil
}

// Get returns the element at position i.
func (b *PersistentIdentifierBag) Get(ctx context.Context, i int) (any, error) {
	if err := b.read(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, b.raw.Len()); err != nil {
		return nil, err
	}
	return b.raw.values[i], nil
}

// Set replaces the element at position i, keeping its identifier.
func (b *PersistentIdentifierBag) Set(ctx context.Context, i int, v any) (any, error) {
	if err := b.write(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, b.raw.Len()); err != nil {
		return nil, err
	}
	old := b.raw.values[i]
	b.raw.values[i] = v
	return old, nil
}

// Identifier returns the row identifier at position i (nil until PreInsert).
func (b *PersistentIdentifierBag) Identifier(ctx context.Context, i int) (any, error) {
	if err := b.read(ctx); err != nil {
		return nil, err
	}
	if err := checkIndex(i, b.raw.Len()); err != nil {
		return nil, err
	}
	return b.raw.ids[i], nil
}

// Elements returns a copy of the current elements.
func (b *PersistentIdentifierBag) Elements(ctx context.Context) ([]any, error) {
	if err := b.read(ctx); err != nil {
		return nil, err
	}
	return b.raw.Items(), nil
}

// EqualsSnapshot compares elements with the snapshot by occurrence counting.
func (b *PersistentIdentifierBag) EqualsSnapshot() bool {
	return multisetEqual(b.eq(), b.entry.snapshotValues(), b.raw.values)
}

// GetDeletes returns the identifiers of snapshot rows that are gone or changed.
func (b *PersistentIdentifierBag) GetDeletes() []any {
	sn, ok := b.entry.Snapshot()
	if !ok {
		return nil
	}
	idEq, eq := b.idEq(), b.eq()
	var deletes []any
	for i := 0; i < sn.Len(); i++ {
		id := sn.KeyAt(i)
		j := indexOf(idEq, b.raw.ids, id)
		if j < 0 || !eq(b.raw.values[j], sn.At(i)) {
			deletes = append(deletes, id)
		}
	}
	return deletes
}

// Entries returns the current rows with their identifiers.
func (b *PersistentIdentifierBag) Entries() []Row {
	rows := make([]Row, len(b.raw.values))
	for i, v := range b.raw.values {
		rows[i] = Row{Index: i, ID: b.raw.ids[i], Value: v}
	}
	return rows
}

// NeedsInserting reports whether the row at position i is new or changed.
func (b *PersistentIdentifierBag) NeedsInserting(row Row, i int) bool {
	if row.Value == nil || i < 0 || i >= b.raw.Len() {
		return false
	}
	id := b.raw.ids[i]
	if id == nil {
		return true
	}
	sn, ok := b.entry.Snapshot()
	if !ok {
		return true
	}
	old, found := sn.Lookup(id, b.idEq())
	return !found || !b.eq()(old, row.Value)
}

// NeedsUpdating is always false: changed rows are re-inserted.
func (b *PersistentIdentifierBag) NeedsUpdating(Row, int) bool { return false }

// IsRowUpdatePossible is always false for bags.
func (b *PersistentIdentifierBag) IsRowUpdatePossible() bool { return false }

// GetIndex is unsupported: bags have no indexes.
func (b *PersistentIdentifierBag) GetIndex(Row, int) (any, error) {
	return nil, fmt.Errorf("%w: id-bags have no indexes", ErrUnsupportedOperation)
}

// PreInsert assigns identifiers to rows that do not have one yet.
func (b *PersistentIdentifierBag) PreInsert() error {
	for i, id := range b.raw.ids {
		if id != nil {
			continue
		}
		next := b.newID()
		if next == nil {
			return fmt.Errorf("identifier generator returned nil for %s", b.Key())
		}
		b.raw.ids[i] = next
	}
	return nil
}

// Disassemble produces alternating identifier and element tokens.
func (b *PersistentIdentifierBag) Disassemble(p Persister) ([]any, error) {
	ids, err := disassembleAll(p.IndexType(), b.raw.ids)
	if err != nil {
		return nil, err
	}
	values, err := disassembleAll(p.ElementType(), b.raw.values)
	if err != nil {
		return nil, err
	}
	tokens := make([]any, 0, 2*len(values))
	for i := range values {
		tokens = append(tokens, ids[i], values[i])
	}
	return tokens, nil
}

// InitializeFromCache rebuilds the bag from identifier/element token pairs.
// Pairs with a nil element token are skipped.
func (b *PersistentIdentifierBag) InitializeFromCache(p Persister, tokens []any, owner any) error {
	if len(tokens)%2 != 0 {
		return fmt.Errorf("id-bag cache entry for %s has odd token count %d", b.Key(), len(tokens))
	}
	raw := NewRawIDBag(len(tokens) / 2)
	for i := 0; i < len(tokens); i += 2 {
		if tokens[i+1] == nil {
			continue
		}
		id, err := assemble(p.IndexType(), tokens[i])
		if err != nil {
			return fmt.Errorf("failed to assemble identifier of %s: %w", b.Key(), err)
		}
		v, err := assemble(p.ElementType(), tokens[i+1])
		if err != nil {
			return fmt.Errorf("failed to assemble element of %s: %w", b.Key(), err)
		}
		raw.append(id, v)
	}
	b.raw = raw
	b.finishCacheLoad()
	return nil
}
