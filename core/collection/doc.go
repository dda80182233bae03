// Package collection implements persistent collections: in-memory containers
// attached to an owning entity that are loaded lazily from a backing store,
// track their own mutations and can be reconciled against the snapshot taken
// when they were loaded.
//
// # Lifecycle
//
// Every wrapper moves through four states:
//
//	Uninitialized -> Initializing -> Initialized
//	      \_____________________________/
//	                 Detached
//
// The first read loads the rows of the collection through the bound Session,
// captures a Snapshot and then replays any operations queued while the
// collection was uninitialized. Reads after the owning session closed fail
// with ErrLazyInitialization.
//
// # Extra-lazy roles
//
// For roles whose Persister reports IsExtraLazy, Add and Clear are recorded in
// a FIFO queue instead of forcing a load, and Size and Contains are answered by
// the session when it implements SizeProbe or ContainsProbe.
//
// # Reconciliation
//
// The session computes the rows to write through GetDeletes, Entries,
// NeedsInserting and NeedsUpdating. Each classification has its own rules:
//   - Bags count occurrences, so [1,2,2,3] -> [1,2,3] deletes exactly one 2.
//   - Lists and arrays diff position by position and support row updates.
//   - Ordered maps diff key by key and support row updates.
//   - Sets and sorted sets diff by membership.
//   - Id-bags diff by row identifier.
//
// # Usage
//
//	reg := collection.NewRegistry()
//	_ = reg.Register(&collection.Descriptor{
//	    CollectionRole: collection.Role{Owner: "Order", Property: "lines"},
//	    Kind:           collection.Bag,
//	    ExtraLazy:      true,
//	})
//
//	pc, _ := reg.Instantiate(collection.Key{OwnerID: 42, Role: role})
//	_ = pc.SetCurrentSession(session)
//	bag := pc.(*collection.PersistentBag)
//	_, _ = bag.Add(ctx, "widget") // queued, no load
package collection
