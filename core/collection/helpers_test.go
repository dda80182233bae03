package collection_test

import (
	"cmp"
	"context"
	"fmt"
	"testing"

	"collection-engine/core/collection"

	"github.com/stretchr/testify/require"
)

// token is the cache form produced by countingType.
type token struct {
	V any
}

// countingType is a ValueType that counts the calls made on it.
type countingType struct {
	copies   int
	compares int
}

func (c *countingType) DeepCopy(v any) any {
	c.copies++
	return v
}

func (c *countingType) IsEqual(a, b any) bool {
	c.compares++
	return a == b
}

func (c *countingType) Disassemble(v any) (any, error) {
	return token{V: v}, nil
}

func (c *countingType) Assemble(t any) (any, error) {
	tk, ok := t.(token)
	if !ok {
		return nil, fmt.Errorf("unexpected token %T", t)
	}
	return tk.V, nil
}

// fakeSession serves a fixed row set and counts loads.
type fakeSession struct {
	open   bool
	rows   []collection.Row
	err    error
	loads  int
	onLoad func()
}

func newSession(rows ...collection.Row) *fakeSession {
	return &fakeSession{open: true, rows: rows}
}

func (s *fakeSession) IsOpen() bool { return s.open }

func (s *fakeSession) LoadCollection(_ context.Context, _ collection.Key) ([]collection.Row, error) {
	s.loads++
	if s.onLoad != nil {
		s.onLoad()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

// probeSession adds size and containment probes to fakeSession.
type probeSession struct {
	*fakeSession
	size   int
	found  bool
	probes int
}

func (s *probeSession) ProbeSize(_ context.Context, _ collection.Key) (int, bool, error) {
	s.probes++
	return s.size, true, nil
}

func (s *probeSession) ProbeContains(_ context.Context, _ collection.Key, _ any) (bool, bool, error) {
	s.probes++
	return s.found, true, nil
}

func rowsOf(values ...any) []collection.Row {
	rows := make([]collection.Row, len(values))
	for i, v := range values {
		rows[i] = collection.Row{Index: i, Value: v}
	}
	return rows
}

func intCompare(a, b any) int {
	return cmp.Compare(a.(int), b.(int))
}

var itemsRole = collection.Role{Owner: "Order", Property: "items"}

func descriptor(kind collection.Classification) *collection.Descriptor {
	d := &collection.Descriptor{CollectionRole: itemsRole, Kind: kind}
	if kind == collection.SortedSet {
		d.Order = intCompare
	}
	return d
}

// newCollection instantiates an uninitialized wrapper for d, bound to s when s is not nil.
func newCollection(t *testing.T, d *collection.Descriptor, s collection.Session) collection.PersistentCollection {
	t.Helper()
	reg := collection.NewRegistry()
	require.NoError(t, reg.Register(d))
	pc, err := reg.Instantiate(collection.Key{OwnerID: 1, Role: d.CollectionRole})
	require.NoError(t, err)
	if s != nil {
		require.NoError(t, pc.SetCurrentSession(s))
	}
	return pc
}
