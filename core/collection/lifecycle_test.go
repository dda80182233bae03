package collection_test

import (
	"context"
	"errors"
	"testing"

	"collection-engine/core/collection"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_LoadsOnce(t *testing.T) {
	ctx := context.Background()
	s := newSession(rowsOf("a", "b")...)
	bag := newCollection(t, descriptor(collection.Bag), s).(*collection.PersistentBag)

	assert.Equal(t, collection.Uninitialized, bag.State())

	n, err := bag.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = bag.Elements(ctx)
	require.NoError(t, err)
	require.NoError(t, bag.ForceInitialization(ctx))

	assert.Equal(t, 1, s.loads)
	assert.Equal(t, collection.Initialized, bag.State())
	assert.True(t, bag.WasInitialized())
	assert.False(t, bag.IsDirty())

	sn, ok := bag.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, sn.Values())
}

func TestRead_WithoutOpenSession(t *testing.T) {
	ctx := context.Background()

	t.Run("NoSession", func(t *testing.T) {
		list := newCollection(t, descriptor(collection.List), nil).(*collection.PersistentList)
		_, err := list.Get(ctx, 0)
		assert.ErrorIs(t, err, collection.ErrLazyInitialization)
	})

	t.Run("ClosedSession", func(t *testing.T) {
		s := newSession(rowsOf("a")...)
		list := newCollection(t, descriptor(collection.List), s).(*collection.PersistentList)
		s.open = false

		_, err := list.Add(ctx, "b")
		assert.ErrorIs(t, err, collection.ErrLazyInitialization)
		assert.Equal(t, 0, s.loads)
	})
}

func TestRead_FailureKeepsQueue(t *testing.T) {
	ctx := context.Background()
	s := newSession()
	d := descriptor(collection.Bag)
	d.ExtraLazy = true
	bag := newCollection(t, d, s).(*collection.PersistentBag)

	added, err := bag.Add(ctx, "x")
	require.NoError(t, err)
	assert.True(t, added)

	s.err = errors.New("connection reset")
	_, err = bag.Elements(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, collection.Uninitialized, bag.State())
	assert.True(t, bag.HasQueuedOperations())

	s.err = nil
	elems, err := bag.Elements(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, elems)
	assert.False(t, bag.HasQueuedOperations())
	assert.Equal(t, 2, s.loads)
}

func TestRead_Reentrant(t *testing.T) {
	ctx := context.Background()
	s := newSession(rowsOf("a")...)
	bag := newCollection(t, descriptor(collection.Bag), s).(*collection.PersistentBag)

	var inner error
	s.onLoad = func() {
		_, inner = bag.Size(ctx)
	}

	require.NoError(t, bag.ForceInitialization(ctx))
	assert.ErrorIs(t, inner, collection.ErrReentrantLoad)
	assert.Equal(t, 1, s.loads)
}

func TestSetCurrentSession(t *testing.T) {
	first := newSession()
	second := newSession()
	set := newCollection(t, descriptor(collection.Set), first)

	assert.NoError(t, set.SetCurrentSession(first))
	assert.ErrorIs(t, set.SetCurrentSession(second), collection.ErrSharedCollection)

	first.open = false
	assert.NoError(t, set.SetCurrentSession(second))

	assert.False(t, set.UnsetSession(first))
	assert.True(t, set.UnsetSession(second))
}

func TestDetach(t *testing.T) {
	ctx := context.Background()

	t.Run("Materialized", func(t *testing.T) {
		s := newSession(rowsOf("a")...)
		list := newCollection(t, descriptor(collection.List), s).(*collection.PersistentList)
		require.NoError(t, list.ForceInitialization(ctx))

		list.Detach()
		assert.Equal(t, collection.Detached, list.State())

		v, err := list.Get(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, "a", v)

		require.NoError(t, list.SetCurrentSession(s))
		assert.Equal(t, collection.Initialized, list.State())
	})

	t.Run("NeverLoaded", func(t *testing.T) {
		s := newSession(rowsOf("a")...)
		list := newCollection(t, descriptor(collection.List), s).(*collection.PersistentList)

		list.Detach()
		_, err := list.Elements(ctx)
		assert.ErrorIs(t, err, collection.ErrLazyInitialization)

		require.NoError(t, list.SetCurrentSession(s))
		assert.Equal(t, collection.Uninitialized, list.State())

		elems, err := list.Elements(ctx)
		require.NoError(t, err)
		assert.Equal(t, []any{"a"}, elems)
	})
}

func TestPostFlush_ReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newSession(rowsOf(1, 2)...)
	list := newCollection(t, descriptor(collection.List), s).(*collection.PersistentList)

	_, err := list.Add(ctx, 3)
	require.NoError(t, err)

	before, ok := list.Snapshot()
	require.True(t, ok)
	assert.False(t, list.EqualsSnapshot())
	assert.True(t, list.IsDirty())

	list.PostFlush()

	after, ok := list.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, before.Values())
	assert.Equal(t, []any{1, 2, 3}, after.Values())
	assert.True(t, list.EqualsSnapshot())
	assert.False(t, list.IsDirty())
}

func TestSnapshot_DeepCopiesThroughValueType(t *testing.T) {
	ctx := context.Background()
	vt := &countingType{}
	d := descriptor(collection.Bag)
	d.Elements = vt
	bag := newCollection(t, d, newSession(rowsOf(1, 2, 3)...)).(*collection.PersistentBag)

	require.NoError(t, bag.ForceInitialization(ctx))
	assert.Equal(t, 3, vt.copies)
}
