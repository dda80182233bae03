package collection_test

import (
	"context"
	"testing"

	"collection-engine/core/collection"
	"collection-engine/core/valuetype"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allClassifications = []collection.Classification{
	collection.Bag,
	collection.IDBag,
	collection.Set,
	collection.SortedSet,
	collection.OrderedMap,
	collection.Array,
	collection.List,
}

func TestSemanticsFor(t *testing.T) {
	for _, c := range allClassifications {
		sem, err := collection.SemanticsFor(c)
		require.NoError(t, err, c.String())
		assert.Equal(t, c, sem.Classification())
	}

	_, err := collection.SemanticsFor(collection.Classification(99))
	assert.ErrorIs(t, err, collection.ErrUnknownClassification)
}

func TestInstantiateRaw(t *testing.T) {
	t.Run("ArrayIsUnsupported", func(t *testing.T) {
		sem, _ := collection.SemanticsFor(collection.Array)
		for _, size := range []int{-1, 0, 1, 64} {
			_, err := sem.InstantiateRaw(size, descriptor(collection.Array))
			assert.ErrorIs(t, err, collection.ErrUnsupportedOperation, "size %d", size)
		}
	})

	t.Run("Presized", func(t *testing.T) {
		sem, _ := collection.SemanticsFor(collection.List)
		raw, err := sem.InstantiateRaw(16, descriptor(collection.List))
		require.NoError(t, err)
		assert.Equal(t, 16, raw.(*collection.RawList).Cap())
		assert.Equal(t, 0, raw.Len())

		raw, err = sem.InstantiateRaw(0, descriptor(collection.List))
		require.NoError(t, err)
		assert.Equal(t, 0, raw.(*collection.RawList).Cap())
	})

	t.Run("SortedSetNeedsComparator", func(t *testing.T) {
		sem, _ := collection.SemanticsFor(collection.SortedSet)
		_, err := sem.InstantiateRaw(0, &collection.Descriptor{CollectionRole: itemsRole, Kind: collection.SortedSet})
		assert.ErrorIs(t, err, collection.ErrUnsupportedOperation)

		raw, err := sem.InstantiateRaw(0, descriptor(collection.SortedSet))
		require.NoError(t, err)
		assert.IsType(t, &collection.RawSortedSet{}, raw)
	})

	t.Run("OrderedMap", func(t *testing.T) {
		sem, _ := collection.SemanticsFor(collection.OrderedMap)
		raw, err := sem.InstantiateRaw(4, descriptor(collection.OrderedMap))
		require.NoError(t, err)
		assert.IsType(t, &collection.RawMap{}, raw)
	})
}

func TestElements_NilRaw(t *testing.T) {
	for _, c := range allClassifications {
		sem, _ := collection.SemanticsFor(c)
		elems := sem.Elements(nil)
		assert.Empty(t, elems, c.String())
		if c.IsSetLike() {
			assert.NotNil(t, elems, c.String())
		}
	}
}

func TestVisitElements(t *testing.T) {
	sem, _ := collection.SemanticsFor(collection.Bag)
	var seen []any
	sem.VisitElements(collection.RawListOf("a", "b", "a"), func(v any) { seen = append(seen, v) })
	assert.Equal(t, []any{"a", "b", "a"}, seen)
}

func TestWrap(t *testing.T) {
	ctx := context.Background()

	t.Run("AdoptsRawContainer", func(t *testing.T) {
		sem, _ := collection.SemanticsFor(collection.List)
		pc, err := sem.Wrap(descriptor(collection.List), collection.Key{OwnerID: 7, Role: itemsRole}, collection.RawListOf("a", "b"))
		require.NoError(t, err)

		assert.Equal(t, collection.Initialized, pc.State())
		assert.True(t, pc.IsDirty())
		_, ok := pc.Snapshot()
		assert.False(t, ok)

		rows := pc.Entries()
		require.Len(t, rows, 2)
		assert.True(t, pc.NeedsInserting(rows[0], 0))
		assert.True(t, pc.NeedsInserting(rows[1], 1))

		elems, err := pc.(*collection.PersistentList).Elements(ctx)
		require.NoError(t, err)
		assert.Equal(t, []any{"a", "b"}, elems)
	})

	t.Run("RejectsWrongRaw", func(t *testing.T) {
		sem, _ := collection.SemanticsFor(collection.Set)
		_, err := sem.Wrap(descriptor(collection.Set), collection.Key{Role: itemsRole}, collection.RawListOf("a"))
		assert.ErrorIs(t, err, collection.ErrUnsupportedOperation)
	})

	t.Run("IDBagFromList", func(t *testing.T) {
		sem, _ := collection.SemanticsFor(collection.IDBag)
		pc, err := sem.Wrap(descriptor(collection.IDBag), collection.Key{Role: itemsRole}, collection.RawListOf("a"))
		require.NoError(t, err)

		require.NoError(t, pc.PreInsert())
		id, err := pc.(*collection.PersistentIdentifierBag).Identifier(ctx, 0)
		require.NoError(t, err)
		assert.NotNil(t, id)
	})
}

func TestRegistry(t *testing.T) {
	reg := collection.NewRegistry()
	require.NoError(t, reg.Register(descriptor(collection.Bag)))
	assert.Error(t, reg.Register(descriptor(collection.Bag)))
	assert.Error(t, reg.Register(&collection.Descriptor{
		CollectionRole: collection.Role{Owner: "Order", Property: "tags"},
		Kind:           collection.SortedSet,
	}))
	assert.Equal(t, 1, reg.Roles())

	p, ok := reg.Lookup(itemsRole)
	require.True(t, ok)
	assert.Equal(t, collection.Bag, p.Classification())

	_, err := reg.Instantiate(collection.Key{Role: collection.Role{Owner: "Order", Property: "missing"}})
	assert.Error(t, err)

	t.Run("SyntheticRolesAreScoped", func(t *testing.T) {
		a, b := collection.NewRegistry(), collection.NewRegistry()
		assert.Equal(t, "Order._collection1", a.SyntheticRole("Order").String())
		assert.Equal(t, "Order._collection2", a.SyntheticRole("Order").String())
		assert.Equal(t, "Order._collection1", b.SyntheticRole("Order").String())
	})
}

func TestParseClassification(t *testing.T) {
	for _, c := range allClassifications {
		parsed, err := collection.ParseClassification(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	parsed, err := collection.ParseClassification(" Sorted-Set ")
	require.NoError(t, err)
	assert.Equal(t, collection.SortedSet, parsed)

	_, err = collection.ParseClassification("deque")
	assert.ErrorIs(t, err, collection.ErrUnknownClassification)
}

func TestEquivalent(t *testing.T) {
	a := collection.NewSnapshot([]any{"a", "a", "b"})
	b := collection.NewSnapshot([]any{"a", "b", "b"})
	c := collection.NewSnapshot([]any{"b", "a", "a"})

	assert.False(t, collection.Equivalent(collection.Bag, nil, nil, a, b))
	assert.True(t, collection.Equivalent(collection.Bag, nil, nil, a, c))
	assert.False(t, collection.Equivalent(collection.List, nil, nil, a, c))
	assert.True(t, collection.Equivalent(collection.Set, nil, nil,
		collection.NewSnapshot([]any{"a", "b"}), collection.NewSnapshot([]any{"b", "a"})))

	m1 := collection.NewKeyedSnapshot([]any{"k1", "k2"}, []any{1, 2})
	m2 := collection.NewKeyedSnapshot([]any{"k2", "k1"}, []any{2, 1})
	assert.True(t, collection.Equivalent(collection.OrderedMap, nil, nil, m1, m2))

	// Keys decoded from JSON come back as float64.
	decoded := collection.NewKeyedSnapshot([]any{float64(1), float64(2)}, []any{"a", "b"})
	native := collection.NewKeyedSnapshot([]any{2, 1}, []any{"b", "a"})
	assert.True(t, collection.Equivalent(collection.OrderedMap, nil, valuetype.Int{}, decoded, native))
	assert.False(t, collection.Equivalent(collection.OrderedMap, nil, nil, decoded, native))
}
