package collection

import (
	"context"
	"fmt"
)

// PersistentMap is an insertion-ordered map whose rows are addressed by key.
// A nil value stands for an absent row.
type PersistentMap struct {
	lifecycle
	raw *RawMap
}

func newMap(p Persister, key Key, raw *RawMap) *PersistentMap {
	m := &PersistentMap{raw: raw}
	if m.raw == nil {
		m.raw = NewRawMap(0, p.IndexType())
	}
	m.init(p, key, m)
	return m
}

func (m *PersistentMap) beginRead()   { m.raw = NewRawMap(0, m.indexType()) }
func (m *PersistentMap) endRead()     {}
func (m *PersistentMap) queuedClear() { m.raw.clear() }

func (m *PersistentMap) readRow(row Row) error {
	if row.Key == nil {
		return fmt.Errorf("map row without key")
	}
	m.raw.put(row.Key, row.Value)
	return nil
}

func (m *PersistentMap) capture() Snapshot {
	return captureKeyed(m.indexType(), m.elementType(), m.raw.keys, m.raw.values)
}

func (m *PersistentMap) keyEq() func(a, b any) bool {
	return equalFunc(m.indexType())
}

// Put stores v under k and returns the previous value, if any.
func (m *PersistentMap) Put(ctx context.Context, k, v any) (any, bool, error) {
	if err := m.write(ctx); err != nil {
		return nil, false, err
	}
	old, existed := m.raw.put(k, v)
	return old, existed, nil
}

// Get returns the value stored under k.
func (m *PersistentMap) Get(ctx context.Context, k any) (any, bool, error) {
	if err := m.read(ctx); err != nil {
		return nil, false, err
	}
	v, ok := m.raw.get(k)
	return v, ok, nil
}

// RemoveKey deletes k and returns the value it held.
func (m *PersistentMap) RemoveKey(ctx context.Context, k any) (any, bool, error) {
	if err := m.read(ctx); err != nil {
		return nil, false, err
	}
	if m.raw.find(k) < 0 {
		return nil, false, nil
	}
	if err := m.write(ctx); err != nil {
		return nil, false, err
	}
	old, existed := m.raw.remove(k)
	return old, existed, nil
}

// ContainsKey reports whether k is present.
func (m *PersistentMap) ContainsKey(ctx context.Context, k any) (bool, error) {
	if err := m.read(ctx); err != nil {
		return false, err
	}
	return m.raw.find(k) >= 0, nil
}

// Keys returns the keys in insertion order.
func (m *PersistentMap) Keys(ctx context.Context) ([]any, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	return m.raw.Keys(), nil
}

// Values returns the values in key insertion order.
func (m *PersistentMap) Values(ctx context.Context) ([]any, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	return m.raw.Values(), nil
}

// Size returns the number of entries, probing the store when possible.
func (m *PersistentMap) Size(ctx context.Context) (int, error) {
	if n, ok, err := m.probeSize(ctx); err != nil || ok {
		return n, err
	}
	if err := m.read(ctx); err != nil {
		return 0, err
	}
	return m.raw.Len(), nil
}

// Clear removes every entry, queueing the clear when possible.
func (m *PersistentMap) Clear(ctx context.Context) error {
	if m.isOperationQueueEnabled() {
		m.enqueue(clearOperation{})
		return nil
	}
	if err := m.write(ctx); err != nil {
		return err
	}
	m.raw.clear()
	return nil
}

// EqualsSnapshot compares key by key.
func (m *PersistentMap) EqualsSnapshot() bool {
	sn, ok := m.entry.Snapshot()
	if !ok {
		return m.raw.Len() == 0
	}
	if sn.Len() != m.raw.Len() {
		return false
	}
	eq := m.eq()
	for i, k := range m.raw.keys {
		old, found := sn.Lookup(k, m.keyEq())
		if !found || !eq(old, m.raw.values[i]) {
			return false
		}
	}
	return true
}

// GetDeletes returns the snapshot keys whose entry is gone or now nil.
func (m *PersistentMap) GetDeletes() []any {
	sn, ok := m.entry.Snapshot()
	if !ok {
		return nil
	}
	var deletes []any
	for i := 0; i < sn.Len(); i++ {
		if sn.At(i) == nil {
			continue
		}
		k := sn.KeyAt(i)
		if v, found := m.raw.get(k); !found || v == nil {
			deletes = append(deletes, k)
		}
	}
	return deletes
}

// Entries returns the current entries in insertion order.
func (m *PersistentMap) Entries() []Row {
	rows := make([]Row, len(m.raw.keys))
	for i, k := range m.raw.keys {
		rows[i] = Row{Index: i, Key: k, Value: m.raw.values[i]}
	}
	return rows
}

func (m *PersistentMap) snapshotValue(k any) any {
	sn, ok := m.entry.Snapshot()
	if !ok {
		return nil
	}
	v, _ := sn.Lookup(k, m.keyEq())
	return v
}

// NeedsInserting reports whether the key holds a value where the snapshot had none.
func (m *PersistentMap) NeedsInserting(row Row, _ int) bool {
	return row.Value != nil && m.snapshotValue(row.Key) == nil
}

// NeedsUpdating reports whether the key holds a different value than the snapshot.
func (m *PersistentMap) NeedsUpdating(row Row, _ int) bool {
	old := m.snapshotValue(row.Key)
	return row.Value != nil && old != nil && !m.eq()(row.Value, old)
}

// IsRowUpdatePossible is true for maps.
func (m *PersistentMap) IsRowUpdatePossible() bool { return true }

// GetIndex returns the map key of the row.
func (m *PersistentMap) GetIndex(row Row, _ int) (any, error) { return row.Key, nil }

// Disassemble produces alternating key and value tokens.
func (m *PersistentMap) Disassemble(p Persister) ([]any, error) {
	keys, err := disassembleAll(p.IndexType(), m.raw.keys)
	if err != nil {
		return nil, err
	}
	values, err := disassembleAll(p.ElementType(), m.raw.values)
	if err != nil {
		return nil, err
	}
	tokens := make([]any, 0, 2*len(keys))
	for i := range keys {
		tokens = append(tokens, keys[i], values[i])
	}
	return tokens, nil
}

// InitializeFromCache rebuilds the map from key/value token pairs. Pairs with a
// nil key token are skipped; a nil value token keeps the key with a nil value.
func (m *PersistentMap) InitializeFromCache(p Persister, tokens []any, owner any) error {
	if len(tokens)%2 != 0 {
		return fmt.Errorf("map cache entry for %s has odd token count %d", m.Key(), len(tokens))
	}
	raw := NewRawMap(len(tokens)/2, p.IndexType())
	for i := 0; i < len(tokens); i += 2 {
		if tokens[i] == nil {
			continue
		}
		k, err := assemble(p.IndexType(), tokens[i])
		if err != nil {
			return fmt.Errorf("failed to assemble key of %s: %w", m.Key(), err)
		}
		v, err := assemble(p.ElementType(), tokens[i+1])
		if err != nil {
			return fmt.Errorf("failed to assemble value of %s: %w", m.Key(), err)
		}
		raw.put(k, v)
	}
	m.raw = raw
	m.finishCacheLoad()
	return nil
}
