package collection

import "reflect"

// Snapshot is an immutable copy of a collection's elements captured at load or
// flush time. It is either a plain sequence or a keyed sequence of key/value
// pairs (ordered maps, id-bags). The zero value is an empty sequence.
type Snapshot struct {
	keys   []any
	values []any
	keyed  bool
}

// NewSnapshot builds a sequence snapshot. The slice is copied; elements are not.
func NewSnapshot(values []any) Snapshot {
	return Snapshot{values: append([]any(nil), values...)}
}

// NewKeyedSnapshot builds a keyed snapshot from parallel key and value slices.
func NewKeyedSnapshot(keys, values []any) Snapshot {
	n := min(len(keys), len(values))
	return Snapshot{
		keys:   append([]any(nil), keys[:n]...),
		values: append([]any(nil), values[:n]...),
		keyed:  true,
	}
}

// captureSequence deep-copies values through the element type.
func captureSequence(elementType ValueType, values []any) Snapshot {
	copied := make([]any, len(values))
	for i, v := range values {
		copied[i] = deepCopy(elementType, v)
	}
	return Snapshot{values: copied}
}

// captureKeyed deep-copies keys and values through their value types.
func captureKeyed(indexType, elementType ValueType, keys, values []any) Snapshot {
	s := Snapshot{
		keys:   make([]any, len(keys)),
		values: make([]any, len(values)),
		keyed:  true,
	}
	for i := range keys {
		s.keys[i] = deepCopy(indexType, keys[i])
		s.values[i] = deepCopy(elementType, values[i])
	}
	return s
}

// Len returns the number of elements or pairs.
func (s Snapshot) Len() int {
	return len(s.values)
}

// IsKeyed reports whether the snapshot holds key/value pairs.
func (s Snapshot) IsKeyed() bool {
	return s.keyed
}

// At returns the value at position i.
func (s Snapshot) At(i int) any {
	return s.values[i]
}

// KeyAt returns the key at position i, or nil for sequence snapshots.
func (s Snapshot) KeyAt(i int) any {
	if !s.keyed {
		return nil
	}
	return s.keys[i]
}

// Values returns a copy of the captured values in order.
func (s Snapshot) Values() []any {
	return append([]any(nil), s.values...)
}

// Keys returns a copy of the captured keys in order.
func (s Snapshot) Keys() []any {
	return append([]any(nil), s.keys...)
}

// Lookup finds the value stored under key using eq for key comparison.
func (s Snapshot) Lookup(key any, eq func(a, b any) bool) (any, bool) {
	for i, k := range s.keys {
		if eq(k, key) {
			return s.values[i], true
		}
	}
	return nil, false
}

// Equivalent compares two snapshots under the equality rule of the classification:
// occurrence counting for bags, position by position for lists and arrays,
// key by key for ordered maps and membership for sets. Map keys are compared
// through indexType, as PersistentMap does.
func Equivalent(c Classification, elementType, indexType ValueType, a, b Snapshot) bool {
	eq := equalFunc(elementType)
	switch c {
	case Bag, IDBag:
		return multisetEqual(eq, a.values, b.values)
	case List, Array:
		return sequenceEqual(eq, a.values, b.values)
	case OrderedMap:
		if a.Len() != b.Len() {
			return false
		}
		for i, k := range b.keys {
			v, ok := a.Lookup(k, equalFunc(indexType))
			if !ok || !eq(v, b.values[i]) {
				return false
			}
		}
		return true
	case Set, SortedSet:
		return a.Len() == b.Len() && len(missingFrom(eq, a.values, b.values)) == 0
	default:
		return false
	}
}

func deepCopy(vt ValueType, v any) any {
	if vt == nil || v == nil {
		return v
	}
	return vt.DeepCopy(v)
}

func equalFunc(vt ValueType) func(a, b any) bool {
	if vt == nil {
		return sameKey
	}
	return func(a, b any) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return vt.IsEqual(a, b)
	}
}

// sameKey compares values with == when their dynamic type allows it and
// falls back to a deep comparison otherwise.
func sameKey(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb && ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func contains(eq func(a, b any) bool, values []any, v any) bool {
	return indexOf(eq, values, v) >= 0
}

func indexOf(eq func(a, b any) bool, values []any, v any) int {
	for i, x := range values {
		if eq(x, v) {
			return i
		}
	}
	return -1
}

func occurrences(eq func(a, b any) bool, values []any, v any) int {
	n := 0
	for _, x := range values {
		if eq(x, v) {
			n++
		}
	}
	return n
}

func sequenceEqual(eq func(a, b any) bool, a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}

// multisetEqual reports whether a and b have the same size and every distinct
// value occurs the same number of times in both.
func multisetEqual(eq func(a, b any) bool, a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range b {
		if occurrences(eq, b, v) != occurrences(eq, a, v) {
			return false
		}
	}
	return true
}

// missingFrom returns the elements of old that have no equal element in current.
func missingFrom(eq func(a, b any) bool, current, old []any) []any {
	var missing []any
	for _, v := range old {
		if !contains(eq, current, v) {
			missing = append(missing, v)
		}
	}
	return missing
}

// bagMatch pairs snapshot elements with current elements. Positions holding
// equal elements are paired first; the remaining elements are paired by a
// linear scan that consumes each current element at most once, so duplicates
// are accounted for.
type bagMatch struct {
	old []bool
	cur []bool
}

func matchBag(eq func(a, b any) bool, old, cur []any) bagMatch {
	m := bagMatch{old: make([]bool, len(old)), cur: make([]bool, len(cur))}
	pending := false
	for i := range old {
		if i < len(cur) && eq(old[i], cur[i]) {
			m.old[i], m.cur[i] = true, true
		} else {
			pending = true
		}
	}
	if !pending {
		return m
	}
	for i, v := range old {
		if m.old[i] {
			continue
		}
		for j := range cur {
			if !m.cur[j] && eq(v, cur[j]) {
				m.old[i], m.cur[j] = true, true
				break
			}
		}
	}
	return m
}

// oneToManyDeletes is the delete computation for one-to-many bags: positional
// shortcut, then a linear scan of the current elements. It does not account for
// duplicates and is only correct when the owning foreign key cannot repeat.
func oneToManyDeletes(eq func(a, b any) bool, old, cur []any) []any {
	var deletes []any
	for i, v := range old {
		if i < len(cur) && eq(v, cur[i]) {
			continue
		}
		if !contains(eq, cur, v) {
			deletes = append(deletes, v)
		}
	}
	return deletes
}

// oneToManyNeedsInserting mirrors oneToManyDeletes against the snapshot.
func oneToManyNeedsInserting(eq func(a, b any) bool, old []any, v any, i int) bool {
	if i < len(old) && eq(old[i], v) {
		return false
	}
	return !contains(eq, old, v)
}
