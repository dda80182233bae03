package collection

import (
	"context"
	"fmt"
	"slices"
)

// SubSetView is a range view over a PersistentSortedSet. It keeps no elements
// of its own: reads go through the parent's read barrier and every mutating
// call forces the parent's write barrier first.
type SubSetView struct {
	parent  *PersistentSortedSet
	from    any
	to      any
	hasFrom bool
	hasTo   bool
}

func (v *SubSetView) cmp(a, b any) int { return v.parent.comparator()(a, b) }

func (v *SubSetView) inRange(x any) bool {
	if v.hasFrom && v.cmp(x, v.from) < 0 {
		return false
	}
	if v.hasTo && v.cmp(x, v.to) >= 0 {
		return false
	}
	return true
}

func (v *SubSetView) window() []any {
	lo, hi := v.parent.raw.bounds(v.from, v.to, v.hasFrom, v.hasTo)
	return v.parent.raw.items[lo:hi]
}

// Size returns the number of elements inside the range.
func (v *SubSetView) Size(ctx context.Context) (int, error) {
	if err := v.parent.read(ctx); err != nil {
		return 0, err
	}
	return len(v.window()), nil
}

// Contains reports whether x is in range and present in the parent.
func (v *SubSetView) Contains(ctx context.Context, x any) (bool, error) {
	if err := v.parent.read(ctx); err != nil {
		return false, err
	}
	return v.inRange(x) && v.parent.raw.contains(x), nil
}

// Elements returns a copy of the elements inside the range, in order.
func (v *SubSetView) Elements(ctx context.Context) ([]any, error) {
	if err := v.parent.read(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(v.window()), nil
}

// First returns the lowest element in range.
func (v *SubSetView) First(ctx context.Context) (any, bool, error) {
	return v.first(ctx)
}

// Last returns the highest element in range.
func (v *SubSetView) Last(ctx context.Context) (any, bool, error) {
	return v.last(ctx)
}

func (v *SubSetView) first(ctx context.Context) (any, bool, error) {
	if err := v.parent.read(ctx); err != nil {
		return nil, false, err
	}
	w := v.window()
	if len(w) == 0 {
		return nil, false, nil
	}
	return w[0], true, nil
}

func (v *SubSetView) last(ctx context.Context) (any, bool, error) {
	if err := v.parent.read(ctx); err != nil {
		return nil, false, err
	}
	w := v.window()
	if len(w) == 0 {
		return nil, false, nil
	}
	return w[len(w)-1], true, nil
}

// Add inserts x into the parent. Elements outside the range are rejected with ErrOutOfRange.
func (v *SubSetView) Add(ctx context.Context, x any) (bool, error) {
	if !v.inRange(x) {
		return false, fmt.Errorf("%w: %v", ErrOutOfRange, x)
	}
	if err := v.parent.write(ctx); err != nil {
		return false, err
	}
	return v.parent.raw.add(x), nil
}

// Remove deletes x from the parent if it lies inside the range.
func (v *SubSetView) Remove(ctx context.Context, x any) (bool, error) {
	if err := v.parent.write(ctx); err != nil {
		return false, err
	}
	if !v.inRange(x) {
		return false, nil
	}
	return v.parent.raw.remove(x), nil
}

// Clear removes every element inside the range from the parent.
func (v *SubSetView) Clear(ctx context.Context) error {
	if err := v.parent.write(ctx); err != nil {
		return err
	}
	lo, hi := v.parent.raw.bounds(v.from, v.to, v.hasFrom, v.hasTo)
	v.parent.raw.items = slices.Delete(v.parent.raw.items, lo, hi)
	return nil
}

// HeadSet narrows the view to elements strictly lower than to.
func (v *SubSetView) HeadSet(to any) *SubSetView {
	n := *v
	if !n.hasTo || n.cmp(to, n.to) < 0 {
		n.to, n.hasTo = to, true
	}
	return &n
}

// TailSet narrows the view to elements greater than or equal to from.
func (v *SubSetView) TailSet(from any) *SubSetView {
	n := *v
	if !n.hasFrom || n.cmp(from, n.from) > 0 {
		n.from, n.hasFrom = from, true
	}
	return &n
}

// SubSet narrows the view to [from, to).
func (v *SubSetView) SubSet(from, to any) *SubSetView {
	return v.TailSet(from).HeadSet(to)
}
