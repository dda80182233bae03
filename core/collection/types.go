package collection

import (
	"context"
	"fmt"
)

// Role identifies a mapped collection attribute: the owning entity type plus the property name.
type Role struct {
	// Owner is the owning entity type name (e.g. "Order").
	Owner string `json:"owner"`

	// Property is the collection property name on the owner (e.g. "items").
	Property string `json:"property"`
}

// String returns the qualified role name, e.g. "Order.items".
func (r Role) String() string {
	return r.Owner + "." + r.Property
}

// Key uniquely identifies one persistent collection instance within a session.
type Key struct {
	// OwnerID is the identifier of the owning entity.
	OwnerID any `json:"owner_id"`

	// Role is the collection role.
	Role Role `json:"role"`
}

// String returns a printable form of the key, e.g. "Order.items#42".
func (k Key) String() string {
	return fmt.Sprintf("%s#%v", k.Role, k.OwnerID)
}

// Row is a single backing-store row of a collection.
// Which fields are meaningful depends on the classification.
type Row struct {
	// Index is the element position for lists and arrays.
	Index int `json:"index"`

	// Key is the map key for ordered maps.
	Key any `json:"key,omitempty"`

	// ID is the surrogate row identifier for id-bags.
	ID any `json:"id,omitempty"`

	// Value is the element itself.
	Value any `json:"value"`
}

// ValueType is the external value-type adapter used for individual elements,
// map keys and id-bag identifiers.
type ValueType interface {
	// DeepCopy returns an independent copy of v suitable for a snapshot.
	DeepCopy(v any) any

	// IsEqual reports whether a and b represent the same persistent state.
	IsEqual(a, b any) bool

	// Disassemble converts v into a cache-safe token.
	Disassemble(v any) (any, error)

	// Assemble rebuilds a value from a token produced by Disassemble.
	Assemble(token any) (any, error)
}

// Comparator orders elements of a sorted set. It returns a negative number when
// a sorts before b, zero when they are equivalent and a positive number otherwise.
type Comparator func(a, b any) int

// Persister is the collection descriptor supplied by the mapping layer.
type Persister interface {
	Role() Role
	Classification() Classification
	ElementType() ValueType
	// IndexType handles map keys and id-bag identifiers. It may be nil for
	// classifications without keys.
	IndexType() ValueType
	// Comparator is required for sorted sets and ignored otherwise.
	Comparator() Comparator
	// IsOneToMany reports whether the owning foreign key cannot repeat.
	IsOneToMany() bool
	// IsExtraLazy enables the delayed operation queue for this role.
	IsExtraLazy() bool
	// HasOrphanDelete reports whether removed elements are deleted as orphans.
	HasOrphanDelete() bool
}

// Descriptor is a plain Persister handed over by the mapping layer.
type Descriptor struct {
	CollectionRole Role
	Kind           Classification
	Elements       ValueType
	Index          ValueType
	Order          Comparator
	OneToMany      bool
	ExtraLazy      bool
	OrphanDelete   bool
}

func (d *Descriptor) Role() Role                     { return d.CollectionRole }
func (d *Descriptor) Classification() Classification { return d.Kind }
func (d *Descriptor) ElementType() ValueType         { return d.Elements }
func (d *Descriptor) IndexType() ValueType           { return d.Index }
func (d *Descriptor) Comparator() Comparator         { return d.Order }
func (d *Descriptor) IsOneToMany() bool              { return d.OneToMany }
func (d *Descriptor) IsExtraLazy() bool              { return d.ExtraLazy }
func (d *Descriptor) HasOrphanDelete() bool          { return d.OrphanDelete }

// Session is the contract the engine needs from the owning persistence context.
type Session interface {
	// IsOpen reports whether the session can still load data.
	IsOpen() bool

	// LoadCollection returns the backing-store rows for the collection.
	// It is invoked synchronously by the read barrier.
	LoadCollection(ctx context.Context, key Key) ([]Row, error)
}

// SizeProbe is an optional Session fast path returning the row count without loading.
// The boolean result is false when the probe is unavailable for the key.
type SizeProbe interface {
	ProbeSize(ctx context.Context, key Key) (int, bool, error)
}

// ContainsProbe is an optional Session fast path checking element existence without loading.
// The second boolean result is false when the probe is unavailable for the key.
type ContainsProbe interface {
	ProbeContains(ctx context.Context, key Key, element any) (bool, bool, error)
}
