package collection_test

import (
	"context"
	"testing"

	"collection-engine/core/collection"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, d *collection.Descriptor, rows ...collection.Row) collection.PersistentCollection {
	t.Helper()
	pc := newCollection(t, d, newSession(rows...))
	require.NoError(t, pc.ForceInitialization(context.Background()))
	return pc
}

func TestList_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("UpdateAndAppend", func(t *testing.T) {
		list := load(t, descriptor(collection.List), rowsOf("a", "b", "c")...).(*collection.PersistentList)
		_, err := list.Set(ctx, 1, "x")
		require.NoError(t, err)
		_, err = list.Add(ctx, "d")
		require.NoError(t, err)

		assert.Empty(t, list.GetDeletes())
		rows := list.Entries()
		require.Len(t, rows, 4)

		var inserts, updates []int
		for i, row := range rows {
			if list.NeedsInserting(row, i) {
				inserts = append(inserts, i)
			}
			if list.NeedsUpdating(row, i) {
				updates = append(updates, i)
			}
		}
		assert.Equal(t, []int{3}, inserts)
		assert.Equal(t, []int{1}, updates)
		assert.True(t, list.IsRowUpdatePossible())

		idx, err := list.GetIndex(rows[3], 3)
		require.NoError(t, err)
		assert.Equal(t, 3, idx)
	})

	t.Run("Truncate", func(t *testing.T) {
		list := load(t, descriptor(collection.List), rowsOf("a", "b", "c")...).(*collection.PersistentList)
		_, err := list.RemoveAt(ctx, 2)
		require.NoError(t, err)
		_, err = list.Set(ctx, 0, nil)
		require.NoError(t, err)

		assert.ElementsMatch(t, []any{0, 2}, list.GetDeletes())
	})

	t.Run("SparseRows", func(t *testing.T) {
		list := load(t, descriptor(collection.List),
			collection.Row{Index: 0, Value: "a"},
			collection.Row{Index: 3, Value: "d"},
		).(*collection.PersistentList)

		elems, err := list.Elements(ctx)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", nil, nil, "d"}, elems)
	})

	t.Run("IndexErrors", func(t *testing.T) {
		list := load(t, descriptor(collection.List), rowsOf("a")...).(*collection.PersistentList)
		_, err := list.Get(ctx, 5)
		assert.ErrorIs(t, err, collection.ErrIndexOutOfBounds)
		assert.ErrorIs(t, list.AddAt(ctx, 3, "z"), collection.ErrIndexOutOfBounds)

		require.NoError(t, list.AddAt(ctx, 0, "z"))
		i, err := list.IndexOf(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1, i)
	})
}

func TestArray_Reconcile(t *testing.T) {
	ctx := context.Background()
	arr := load(t, descriptor(collection.Array), rowsOf(1, 2, 3)...).(*collection.PersistentArray)

	n, err := arr.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = arr.Set(ctx, 0, 9)
	require.NoError(t, err)
	_, err = arr.Set(ctx, 2, nil)
	require.NoError(t, err)
	_, err = arr.Set(ctx, 3, 4)
	assert.ErrorIs(t, err, collection.ErrIndexOutOfBounds)

	assert.Equal(t, []any{2}, arr.GetDeletes())
	rows := arr.Entries()
	assert.True(t, arr.NeedsUpdating(rows[0], 0))
	assert.False(t, arr.NeedsUpdating(rows[1], 1))
	assert.False(t, arr.NeedsInserting(rows[2], 2))
}

func TestMap_Reconcile(t *testing.T) {
	ctx := context.Background()
	m := load(t, descriptor(collection.OrderedMap),
		collection.Row{Key: "k1", Value: "a"},
		collection.Row{Key: "k2", Value: "b"},
		collection.Row{Key: "k3", Value: "c"},
	).(*collection.PersistentMap)

	old, existed, err := m.Put(ctx, "k2", "x")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, "b", old)

	_, removed, err := m.RemoveKey(ctx, "k3")
	require.NoError(t, err)
	assert.True(t, removed)

	_, _, err = m.Put(ctx, "k4", "d")
	require.NoError(t, err)

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"k1", "k2", "k4"}, keys)

	assert.Equal(t, []any{"k3"}, m.GetDeletes())
	assert.False(t, m.EqualsSnapshot())

	for i, row := range m.Entries() {
		idx, err := m.GetIndex(row, i)
		require.NoError(t, err)
		switch idx {
		case "k1":
			assert.False(t, m.NeedsInserting(row, i))
			assert.False(t, m.NeedsUpdating(row, i))
		case "k2":
			assert.False(t, m.NeedsInserting(row, i))
			assert.True(t, m.NeedsUpdating(row, i))
		case "k4":
			assert.True(t, m.NeedsInserting(row, i))
			assert.False(t, m.NeedsUpdating(row, i))
		}
	}

	m.PostFlush()
	assert.True(t, m.EqualsSnapshot())
	assert.Empty(t, m.GetDeletes())
}

func TestMap_QueuedClear(t *testing.T) {
	ctx := context.Background()
	d := descriptor(collection.OrderedMap)
	d.ExtraLazy = true
	s := newSession(collection.Row{Key: "k1", Value: "a"})
	m := newCollection(t, d, s).(*collection.PersistentMap)

	require.NoError(t, m.Clear(ctx))
	assert.Equal(t, 0, s.loads)

	n, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []any{"k1"}, m.GetDeletes())
}

func TestSet_Reconcile(t *testing.T) {
	ctx := context.Background()
	set := load(t, descriptor(collection.Set), rowsOf("a", "b", "c")...).(*collection.PersistentSet)

	added, err := set.Add(ctx, "a")
	require.NoError(t, err)
	assert.False(t, added)
	assert.False(t, set.IsDirty())

	_, err = set.Remove(ctx, "b")
	require.NoError(t, err)
	_, err = set.Add(ctx, "d")
	require.NoError(t, err)

	assert.Equal(t, []any{"b"}, set.GetDeletes())
	var inserted []any
	for i, row := range set.Entries() {
		if set.NeedsInserting(row, i) {
			inserted = append(inserted, row.Value)
		}
		assert.False(t, set.NeedsUpdating(row, i))
	}
	assert.Equal(t, []any{"d"}, inserted)

	_, err = set.GetIndex(collection.Row{}, 0)
	assert.ErrorIs(t, err, collection.ErrUnsupportedOperation)
}

func TestSortedSet_Views(t *testing.T) {
	ctx := context.Background()
	set := load(t, descriptor(collection.SortedSet), rowsOf(5, 1, 3)...).(*collection.PersistentSortedSet)

	elems, err := set.Elements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 3, 5}, elems)

	first, ok, err := set.First(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, first)

	last, ok, err := set.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, last)

	head, err := set.HeadSet(3).Elements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{1}, head)

	tail, err := set.TailSet(3).Elements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{3, 5}, tail)

	narrowed, err := set.SubSet(2, 6).HeadSet(5).Elements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{3}, narrowed)

	view := set.SubSet(2, 6)
	_, err = view.Add(ctx, 7)
	assert.ErrorIs(t, err, collection.ErrOutOfRange)
	assert.False(t, set.IsDirty())

	added, err := view.Add(ctx, 4)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, set.IsDirty())

	require.NoError(t, set.HeadSet(4).Clear(ctx))
	elems, _ = set.Elements(ctx)
	assert.Equal(t, []any{4, 5}, elems)
	assert.Equal(t, []any{1, 3}, set.GetDeletes())

	n, err := view.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSortedSet_ViewForcesParentLoad(t *testing.T) {
	ctx := context.Background()
	s := newSession(rowsOf(8, 4)...)
	set := newCollection(t, descriptor(collection.SortedSet), s).(*collection.PersistentSortedSet)

	view := set.HeadSet(10)
	assert.Equal(t, 0, s.loads)

	_, err := view.Add(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, s.loads)

	elems, _ := set.Elements(ctx)
	assert.Equal(t, []any{2, 4, 8}, elems)
}

func TestIDBag_Reconcile(t *testing.T) {
	ctx := context.Background()
	bag := load(t, descriptor(collection.IDBag),
		collection.Row{ID: "r1", Value: "a"},
		collection.Row{ID: "r2", Value: "b"},
	).(*collection.PersistentIdentifierBag)

	_, err := bag.Set(ctx, 1, "x")
	require.NoError(t, err)
	_, err = bag.Add(ctx, "c")
	require.NoError(t, err)

	assert.Equal(t, []any{"r2"}, bag.GetDeletes())

	rows := bag.Entries()
	require.Len(t, rows, 3)
	assert.False(t, bag.NeedsInserting(rows[0], 0))
	assert.True(t, bag.NeedsInserting(rows[1], 1))
	assert.True(t, bag.NeedsInserting(rows[2], 2))
	for i, row := range rows {
		assert.False(t, bag.NeedsUpdating(row, i))
	}
	assert.False(t, bag.IsRowUpdatePossible())

	require.NoError(t, bag.PreInsert())
	id, err := bag.Identifier(ctx, 2)
	require.NoError(t, err)
	_, err = uuid.Parse(id.(string))
	assert.NoError(t, err)

	kept, err := bag.Identifier(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "r2", kept)

	bag.PostFlush()
	assert.True(t, bag.EqualsSnapshot())
	assert.Empty(t, bag.GetDeletes())
}

func TestIDBag_CustomGenerator(t *testing.T) {
	ctx := context.Background()
	bag := load(t, descriptor(collection.IDBag)).(*collection.PersistentIdentifierBag)
	next := 0
	bag.SetIdentifierGenerator(func() any {
		next++
		return next
	})

	_, err := bag.Add(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, bag.PreInsert())

	id, err := bag.Identifier(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
}

func TestIDBag_RowWithoutIdentifier(t *testing.T) {
	pc := newCollection(t, descriptor(collection.IDBag), newSession(collection.Row{Value: "a"}))
	err := pc.ForceInitialization(context.Background())
	require.Error(t, err)
	assert.Equal(t, collection.Uninitialized, pc.State())
}
