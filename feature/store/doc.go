// Package store persists collections in a single gorm table, collection_rows.
//
// Every row carries the qualified role and the owner identifier of its
// collection, its position and, depending on the classification, a map key or
// an id-bag row identifier. Elements, keys and identifiers are stored as the
// JSON text of the token their value type disassembles them into.
//
// # Session
//
// A Session is the unit of work the collection engine talks to. It loads rows
// when a collection hits its read barrier, answers size and containment probes
// for extra-lazy collections, and tracks every collection it bound:
//
//	sess := st.OpenSession()
//	defer sess.Close()
//
//	pc, err := sess.Collection(ctx, role, orderID)
//	...
//	plans, rows, err := sess.Flush(ctx)
//
// Flush builds a reconcile plan per collection and applies all of them through
// a Writer inside one transaction. Snapshots are refreshed only after commit.
//
// # Rows addressing
//
// Lists and arrays address rows by position, ordered maps by key and id-bags by
// row identifier. Bags and sets address rows by element; a delete removes one
// matching row, so a bag that dropped one of two equal elements keeps the other.
//
// # Cache
//
// With WithCache, Collection consults the cache before the first load and a
// successful Flush writes the disassembled state back.
package store
