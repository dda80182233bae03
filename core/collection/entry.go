package collection

// State is the lazy-initialization state of a persistent collection.
type State int

const (
	Uninitialized State = iota
	Initializing
	Initialized
	// Detached is entered when the owning session ends or evicts the collection.
	Detached
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	case Detached:
		return "detached"
	default:
		return "unknown"
	}
}

// Entry is the per-instance bookkeeping record of a persistent collection.
// It is owned and mutated by exactly one wrapper.
type Entry struct {
	key          Key
	persister    Persister
	state        State
	snapshot     *Snapshot
	dirty        bool
	queueEnabled bool
}

func newEntry(p Persister, key Key) *Entry {
	return &Entry{
		key:          key,
		persister:    p,
		queueEnabled: p.IsExtraLazy(),
	}
}

// Key returns the collection key.
func (e *Entry) Key() Key { return e.key }

// Persister returns the collection descriptor.
func (e *Entry) Persister() Persister { return e.persister }

// State returns the current lifecycle state.
func (e *Entry) State() State { return e.state }

// IsDirty reports whether the collection was mutated since the last snapshot.
func (e *Entry) IsDirty() bool { return e.dirty }

// OperationQueueEnabled reports whether queueable mutations are deferred while uninitialized.
func (e *Entry) OperationQueueEnabled() bool { return e.queueEnabled }

// Snapshot returns the captured baseline. The boolean is false when no
// snapshot was captured yet (a new collection or one never loaded).
func (e *Entry) Snapshot() (Snapshot, bool) {
	if e.snapshot == nil {
		return Snapshot{}, false
	}
	return *e.snapshot, true
}

func (e *Entry) replaceSnapshot(s Snapshot) {
	e.snapshot = &s
}

func (e *Entry) snapshotValues() []any {
	if e.snapshot == nil {
		return nil
	}
	return e.snapshot.values
}
