package collection

import "fmt"

// Semantics governs one classification: it allocates raw containers, traverses
// them and produces wrappers. The set of implementations is closed.
type Semantics interface {
	Classification() Classification

	// InstantiateRaw allocates an empty raw container sized for anticipatedSize
	// elements. A size below one uses the default allocation.
	InstantiateRaw(anticipatedSize int, p Persister) (Raw, error)

	// Elements returns the elements of raw in traversal order. A nil raw yields
	// an empty result.
	Elements(raw Raw) []any

	// VisitElements calls fn for each element of raw.
	VisitElements(raw Raw, fn func(v any))

	// Wrap adopts a transient raw container as a new persistent collection.
	Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error)

	// Instantiate creates an uninitialized wrapper awaiting lazy load.
	Instantiate(p Persister, key Key) PersistentCollection
}

var (
	bagSemantics        = bagStrategy{}
	idBagSemantics      = idBagStrategy{}
	setSemantics        = setStrategy{}
	sortedSetSemantics  = sortedSetStrategy{}
	orderedMapSemantics = mapStrategy{}
	arraySemantics      = arrayStrategy{}
	listSemantics       = listStrategy{}
)

// SemanticsFor returns the strategy of classification c.
func SemanticsFor(c Classification) (Semantics, error) {
	switch c {
	case Bag:
		return bagSemantics, nil
	case IDBag:
		return idBagSemantics, nil
	case Set:
		return setSemantics, nil
	case SortedSet:
		return sortedSetSemantics, nil
	case OrderedMap:
		return orderedMapSemantics, nil
	case Array:
		return arraySemantics, nil
	case List:
		return listSemantics, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownClassification, int(c))
	}
}

func visit(values []any, fn func(v any)) {
	for _, v := range values {
		fn(v)
	}
}

func wrongRaw(c Classification, raw Raw) error {
	return fmt.Errorf("%w: %T cannot back a %s", ErrUnsupportedOperation, raw, c)
}

type bagStrategy struct{}

func (bagStrategy) Classification() Classification { return Bag }

func (bagStrategy) InstantiateRaw(n int, _ Persister) (Raw, error) { return NewRawList(n), nil }

func (bagStrategy) Elements(raw Raw) []any {
	if l, ok := raw.(*RawList); ok && l != nil {
		return l.Items()
	}
	return nil
}

func (s bagStrategy) VisitElements(raw Raw, fn func(v any)) { visit(s.Elements(raw), fn) }

func (bagStrategy) Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error) {
	l, ok := raw.(*RawList)
	if !ok {
		return nil, wrongRaw(Bag, raw)
	}
	b := newBag(p, key, l)
	b.markWrapped()
	return b, nil
}

func (bagStrategy) Instantiate(p Persister, key Key) PersistentCollection {
	return newBag(p, key, nil)
}

type idBagStrategy struct{}

func (idBagStrategy) Classification() Classification { return IDBag }

func (idBagStrategy) InstantiateRaw(n int, _ Persister) (Raw, error) { return NewRawIDBag(n), nil }

func (idBagStrategy) Elements(raw Raw) []any {
	if b, ok := raw.(*RawIDBag); ok && b != nil {
		return b.Items()
	}
	return nil
}

func (s idBagStrategy) VisitElements(raw Raw, fn func(v any)) { visit(s.Elements(raw), fn) }

// Wrap accepts either an id-bag or a plain list whose elements get fresh identifiers on insert.
func (idBagStrategy) Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error) {
	var ib *RawIDBag
	switch r := raw.(type) {
	case *RawIDBag:
		ib = r
	case *RawList:
		ib = NewRawIDBag(r.Len())
		for _, v := range r.items {
			ib.append(nil, v)
		}
	default:
		return nil, wrongRaw(IDBag, raw)
	}
	b := newIDBag(p, key, ib)
	b.markWrapped()
	return b, nil
}

func (idBagStrategy) Instantiate(p Persister, key Key) PersistentCollection {
	return newIDBag(p, key, nil)
}

type setStrategy struct{}

func (setStrategy) Classification() Classification { return Set }

func (setStrategy) InstantiateRaw(n int, p Persister) (Raw, error) {
	return NewRawSet(n, p.ElementType()), nil
}

func (setStrategy) Elements(raw Raw) []any {
	if s, ok := raw.(*RawSet); ok && s != nil {
		return s.Items()
	}
	return []any{}
}

func (s setStrategy) VisitElements(raw Raw, fn func(v any)) { visit(s.Elements(raw), fn) }

func (setStrategy) Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error) {
	r, ok := raw.(*RawSet)
	if !ok {
		return nil, wrongRaw(Set, raw)
	}
	s := newSet(p, key, r)
	s.markWrapped()
	return s, nil
}

func (setStrategy) Instantiate(p Persister, key Key) PersistentCollection {
	return newSet(p, key, nil)
}

type sortedSetStrategy struct{}

func (sortedSetStrategy) Classification() Classification { return SortedSet }

func (sortedSetStrategy) InstantiateRaw(n int, p Persister) (Raw, error) {
	if p.Comparator() == nil {
		return nil, fmt.Errorf("%w: sorted set %s has no comparator", ErrUnsupportedOperation, p.Role())
	}
	return NewRawSortedSet(n, p.Comparator()), nil
}

func (sortedSetStrategy) Elements(raw Raw) []any {
	if s, ok := raw.(*RawSortedSet); ok && s != nil {
		return s.Items()
	}
	return []any{}
}

func (s sortedSetStrategy) VisitElements(raw Raw, fn func(v any)) { visit(s.Elements(raw), fn) }

func (sortedSetStrategy) Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error) {
	r, ok := raw.(*RawSortedSet)
	if !ok {
		return nil, wrongRaw(SortedSet, raw)
	}
	s := newSortedSet(p, key, r)
	s.markWrapped()
	return s, nil
}

func (sortedSetStrategy) Instantiate(p Persister, key Key) PersistentCollection {
	return newSortedSet(p, key, nil)
}

type mapStrategy struct{}

func (mapStrategy) Classification() Classification { return OrderedMap }

func (mapStrategy) InstantiateRaw(n int, p Persister) (Raw, error) {
	return NewRawMap(n, p.IndexType()), nil
}

// Elements returns the map values in key insertion order.
func (mapStrategy) Elements(raw Raw) []any {
	if m, ok := raw.(*RawMap); ok && m != nil {
		return m.Values()
	}
	return nil
}

func (s mapStrategy) VisitElements(raw Raw, fn func(v any)) { visit(s.Elements(raw), fn) }

func (mapStrategy) Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error) {
	r, ok := raw.(*RawMap)
	if !ok {
		return nil, wrongRaw(OrderedMap, raw)
	}
	m := newMap(p, key, r)
	m.markWrapped()
	return m, nil
}

func (mapStrategy) Instantiate(p Persister, key Key) PersistentCollection {
	return newMap(p, key, nil)
}

type arrayStrategy struct{}

func (arrayStrategy) Classification() Classification { return Array }

// InstantiateRaw is unsupported: arrays are sized by their backing rows.
func (arrayStrategy) InstantiateRaw(int, Persister) (Raw, error) {
	return nil, fmt.Errorf("%w: arrays cannot be instantiated empty", ErrUnsupportedOperation)
}

func (arrayStrategy) Elements(raw Raw) []any {
	if a, ok := raw.(*RawArray); ok && a != nil {
		return a.Items()
	}
	return nil
}

func (s arrayStrategy) VisitElements(raw Raw, fn func(v any)) { visit(s.Elements(raw), fn) }

func (arrayStrategy) Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error) {
	r, ok := raw.(*RawArray)
	if !ok {
		return nil, wrongRaw(Array, raw)
	}
	a := newArray(p, key, r)
	a.markWrapped()
	return a, nil
}

func (arrayStrategy) Instantiate(p Persister, key Key) PersistentCollection {
	return newArray(p, key, nil)
}

type listStrategy struct{}

func (listStrategy) Classification() Classification { return List }

func (listStrategy) InstantiateRaw(n int, _ Persister) (Raw, error) { return NewRawList(n), nil }

func (listStrategy) Elements(raw Raw) []any {
	if l, ok := raw.(*RawList); ok && l != nil {
		return l.Items()
	}
	return nil
}

func (s listStrategy) VisitElements(raw Raw, fn func(v any)) { visit(s.Elements(raw), fn) }

func (listStrategy) Wrap(p Persister, key Key, raw Raw) (PersistentCollection, error) {
	r, ok := raw.(*RawList)
	if !ok {
		return nil, wrongRaw(List, raw)
	}
	l := newList(p, key, r)
	l.markWrapped()
	return l, nil
}

func (listStrategy) Instantiate(p Persister, key Key) PersistentCollection {
	return newList(p, key, nil)
}
