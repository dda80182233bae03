package collection

import (
	"fmt"
	"slices"
)

// Raw is a bare in-memory container owned by exactly one wrapper.
type Raw interface {
	Len() int
}

// RawList is an ordered sequence; it backs bags and lists.
type RawList struct {
	items []any
}

// NewRawList allocates an empty list. A size below one uses the default allocation.
func NewRawList(anticipatedSize int) *RawList {
	if anticipatedSize < 1 {
		return &RawList{}
	}
	return &RawList{items: make([]any, 0, anticipatedSize)}
}

// RawListOf wraps a copy of items.
func RawListOf(items ...any) *RawList {
	return &RawList{items: append([]any(nil), items...)}
}

func (l *RawList) Len() int     { return len(l.items) }
func (l *RawList) Cap() int     { return cap(l.items) }
func (l *RawList) Items() []any { return append([]any(nil), l.items...) }

func (l *RawList) append(v any) { l.items = append(l.items, v) }
func (l *RawList) clear()       { l.items = l.items[:0:0] }

func (l *RawList) insert(i int, v any) {
	l.items = slices.Insert(l.items, i, v)
}

func (l *RawList) removeAt(i int) any {
	v := l.items[i]
	l.items = slices.Delete(l.items, i, i+1)
	return v
}

// RawSet holds unique elements in insertion order. Uniqueness is decided by
// the element type equality.
type RawSet struct {
	items []any
	eq    func(a, b any) bool
}

// NewRawSet allocates an empty set using the element type for equality.
func NewRawSet(anticipatedSize int, elementType ValueType) *RawSet {
	s := &RawSet{eq: equalFunc(elementType)}
	if anticipatedSize >= 1 {
		s.items = make([]any, 0, anticipatedSize)
	}
	return s
}

func (s *RawSet) Len() int     { return len(s.items) }
func (s *RawSet) Items() []any { return append([]any(nil), s.items...) }

func (s *RawSet) contains(v any) bool { return contains(s.eq, s.items, v) }

func (s *RawSet) add(v any) bool {
	if s.contains(v) {
		return false
	}
	s.items = append(s.items, v)
	return true
}

func (s *RawSet) remove(v any) bool {
	i := indexOf(s.eq, s.items, v)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

func (s *RawSet) clear() { s.items = nil }

// RawSortedSet keeps unique elements ordered by a comparator. Elements that
// compare as zero are considered duplicates.
type RawSortedSet struct {
	items []any
	cmp   Comparator
}

// NewRawSortedSet allocates an empty sorted set.
func NewRawSortedSet(anticipatedSize int, cmp Comparator) *RawSortedSet {
	s := &RawSortedSet{cmp: cmp}
	if anticipatedSize >= 1 {
		s.items = make([]any, 0, anticipatedSize)
	}
	return s
}

func (s *RawSortedSet) Len() int     { return len(s.items) }
func (s *RawSortedSet) Items() []any { return append([]any(nil), s.items...) }

func (s *RawSortedSet) search(v any) (int, bool) {
	return slices.BinarySearchFunc(s.items, v, func(e, target any) int { return s.cmp(e, target) })
}

func (s *RawSortedSet) contains(v any) bool {
	_, found := s.search(v)
	return found
}

func (s *RawSortedSet) add(v any) bool {
	i, found := s.search(v)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, v)
	return true
}

func (s *RawSortedSet) remove(v any) bool {
	i, found := s.search(v)
	if !found {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

func (s *RawSortedSet) clear() { s.items = nil }

// bounds returns the half-open index range [lo, hi) of elements within the given limits.
func (s *RawSortedSet) bounds(from, to any, hasFrom, hasTo bool) (int, int) {
	lo, hi := 0, len(s.items)
	if hasFrom {
		lo, _ = s.search(from)
	}
	if hasTo {
		hi, _ = s.search(to)
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// RawMap is an insertion-ordered map. Keys are compared with the index type.
type RawMap struct {
	keys   []any
	values []any
	eq     func(a, b any) bool
}

// NewRawMap allocates an empty ordered map.
func NewRawMap(anticipatedSize int, indexType ValueType) *RawMap {
	m := &RawMap{eq: equalFunc(indexType)}
	if anticipatedSize >= 1 {
		m.keys = make([]any, 0, anticipatedSize)
		m.values = make([]any, 0, anticipatedSize)
	}
	return m
}

func (m *RawMap) Len() int      { return len(m.keys) }
func (m *RawMap) Keys() []any   { return append([]any(nil), m.keys...) }
func (m *RawMap) Values() []any { return append([]any(nil), m.values...) }

func (m *RawMap) find(k any) int { return indexOf(m.eq, m.keys, k) }

func (m *RawMap) get(k any) (any, bool) {
	if i := m.find(k); i >= 0 {
		return m.values[i], true
	}
	return nil, false
}

func (m *RawMap) put(k, v any) (any, bool) {
	if i := m.find(k); i >= 0 {
		old := m.values[i]
		m.values[i] = v
		return old, true
	}
	m.keys = append(m.keys, k)
	m.values = append(m.values, v)
	return nil, false
}

func (m *RawMap) remove(k any) (any, bool) {
	i := m.find(k)
	if i < 0 {
		return nil, false
	}
	old := m.values[i]
	m.keys = slices.Delete(m.keys, i, i+1)
	m.values = slices.Delete(m.values, i, i+1)
	return old, true
}

func (m *RawMap) clear() {
	m.keys = nil
	m.values = nil
}

// RawArray is a fixed-size array. It is populated directly from backing rows
// and cannot be instantiated empty through Semantics.
type RawArray struct {
	items []any
}

// RawArrayOf wraps a copy of items.
func RawArrayOf(items ...any) *RawArray {
	return &RawArray{items: append([]any(nil), items...)}
}

func (a *RawArray) Len() int     { return len(a.items) }
func (a *RawArray) Items() []any { return append([]any(nil), a.items...) }

// place stores v at index i, growing the array while it is being loaded.
func (a *RawArray) place(i int, v any) error {
	if i < 0 {
		return fmt.Errorf("%w: negative array index %d", ErrIndexOutOfBounds, i)
	}
	for len(a.items) <= i {
		a.items = append(a.items, nil)
	}
	a.items[i] = v
	return nil
}

// RawIDBag is a bag whose rows carry surrogate identifiers, kept parallel to the values.
type RawIDBag struct {
	values []any
	ids    []any
}

// NewRawIDBag allocates an empty id-bag.
func NewRawIDBag(anticipatedSize int) *RawIDBag {
	if anticipatedSize < 1 {
		return &RawIDBag{}
	}
	return &RawIDBag{
		values: make([]any, 0, anticipatedSize),
		ids:    make([]any, 0, anticipatedSize),
	}
}

func (b *RawIDBag) Len() int           { return len(b.values) }
func (b *RawIDBag) Items() []any       { return append([]any(nil), b.values...) }
func (b *RawIDBag) Identifiers() []any { return append([]any(nil), b.ids...) }

func (b *RawIDBag) append(id, v any) {
	b.ids = append(b.ids, id)
	b.values = append(b.values, v)
}

func (b *RawIDBag) removeAt(i int) any {
	v := b.values[i]
	b.values = slices.Delete(b.values, i, i+1)
	b.ids = slices.Delete(b.ids, i, i+1)
	return v
}

func (b *RawIDBag) clear() {
	b.values = nil
	b.ids = nil
}
