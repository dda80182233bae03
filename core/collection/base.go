package collection

import (
	"context"
	"fmt"
)

// PersistentCollection is the surface shared by every wrapper. The session uses it
// to bind, load and flush collections; element access is on the concrete types.
type PersistentCollection interface {
	Key() Key
	Entry() *Entry
	Persister() Persister
	State() State
	WasInitialized() bool
	IsDirty() bool
	Dirty()
	ClearDirty()

	SetCurrentSession(s Session) error
	UnsetSession(s Session) bool
	Detach()
	ForceInitialization(ctx context.Context) error

	HasQueuedOperations() bool
	QueuedOperations() []DelayedOperation
	QueuedAdditions() []any
	QueuedOrphans() ([]any, error)

	Snapshot() (Snapshot, bool)
	EqualsSnapshot() bool
	GetDeletes() []any
	Entries() []Row
	NeedsInserting(row Row, i int) bool
	NeedsUpdating(row Row, i int) bool
	IsRowUpdatePossible() bool
	GetIndex(row Row, i int) (any, error)
	PreInsert() error
	PostFlush()

	Disassemble(p Persister) ([]any, error)
	InitializeFromCache(p Persister, tokens []any, owner any) error
}

// materializer is implemented by every wrapper to let the lifecycle populate
// and snapshot its raw container.
type materializer interface {
	beginRead()
	readRow(row Row) error
	endRead()
	capture() Snapshot
}

// lifecycle holds the state machine, the session binding and the queue of one
// wrapper. Every public wrapper operation goes through read or write.
type lifecycle struct {
	entry        *Entry
	session      Session
	queue        operationQueue
	materialized bool
	mods         int
	self         materializer
}

func (l *lifecycle) init(p Persister, key Key, self materializer) {
	l.entry = newEntry(p, key)
	l.self = self
}

// markWrapped marks a freshly associated collection: materialized, without snapshot, dirty.
func (l *lifecycle) markWrapped() {
	l.entry.state = Initialized
	l.entry.dirty = true
	l.materialized = true
}

func (l *lifecycle) Key() Key             { return l.entry.key }
func (l *lifecycle) Entry() *Entry        { return l.entry }
func (l *lifecycle) Persister() Persister { return l.entry.persister }
func (l *lifecycle) State() State         { return l.entry.state }
func (l *lifecycle) IsDirty() bool        { return l.entry.dirty }
func (l *lifecycle) Dirty()               { l.entry.dirty = true }
func (l *lifecycle) ClearDirty()          { l.entry.dirty = false }

// WasInitialized reports whether the raw container holds materialized data.
func (l *lifecycle) WasInitialized() bool { return l.materialized }

// Snapshot returns the captured baseline, if any.
func (l *lifecycle) Snapshot() (Snapshot, bool) { return l.entry.Snapshot() }

// SetCurrentSession binds the collection to s. Binding to a second open session is refused.
func (l *lifecycle) SetCurrentSession(s Session) error {
	if s == l.session {
		return nil
	}
	if l.session != nil && l.session.IsOpen() {
		return fmt.Errorf("%w: %s", ErrSharedCollection, l.entry.key)
	}
	l.session = s
	if l.entry.state == Detached {
		if l.materialized {
			l.entry.state = Initialized
		} else {
			l.entry.state = Uninitialized
		}
	}
	return nil
}

// UnsetSession removes the binding if s is the current session.
func (l *lifecycle) UnsetSession(s Session) bool {
	if s != l.session {
		return false
	}
	l.session = nil
	return true
}

// Detach ends the association with the owning session.
func (l *lifecycle) Detach() {
	l.session = nil
	l.entry.state = Detached
}

func (l *lifecycle) isConnected() bool {
	return l.session != nil && l.session.IsOpen()
}

// ForceInitialization runs the read barrier.
func (l *lifecycle) ForceInitialization(ctx context.Context) error {
	return l.read(ctx)
}

// read is the read barrier. It loads the collection once and replays the queue.
func (l *lifecycle) read(ctx context.Context) error {
	switch l.entry.state {
	case Initialized:
		return nil
	case Initializing:
		return fmt.Errorf("%w: %s", ErrReentrantLoad, l.entry.key)
	case Detached:
		if l.materialized {
			return nil
		}
		return fmt.Errorf("%w: role %s", ErrLazyInitialization, l.entry.key)
	}

	if !l.isConnected() {
		return fmt.Errorf("%w: role %s", ErrLazyInitialization, l.entry.key)
	}

	l.entry.state = Initializing
	rows, err := l.session.LoadCollection(ctx, l.entry.key)
	if err != nil {
		l.entry.state = Uninitialized
		return fmt.Errorf("failed to load collection %s: %w", l.entry.key, err)
	}

	l.self.beginRead()
	for _, row := range rows {
		if err := l.self.readRow(row); err != nil {
			l.entry.state = Uninitialized
			return fmt.Errorf("failed to read row of collection %s: %w", l.entry.key, err)
		}
	}
	l.self.endRead()
	l.afterInitialize()
	return nil
}

// afterInitialize captures the loaded baseline and then replays queued operations
// in insertion order, so replayed mutations show up as differences from the store.
func (l *lifecycle) afterInitialize() {
	l.entry.state = Initialized
	l.materialized = true
	l.entry.replaceSnapshot(l.self.capture())

	ops := l.queue.drain()
	for _, op := range ops {
		op.operate(l.self)
	}
	if len(ops) > 0 {
		l.entry.dirty = true
	}
	l.mods++
}

// write is the write barrier for mutations that cannot be queued.
func (l *lifecycle) write(ctx context.Context) error {
	if err := l.read(ctx); err != nil {
		return err
	}
	l.entry.dirty = true
	l.mods++
	return nil
}

// isOperationQueueEnabled reports whether a queueable mutation should be deferred.
func (l *lifecycle) isOperationQueueEnabled() bool {
	return l.entry.state == Uninitialized && l.entry.queueEnabled && l.isConnected()
}

func (l *lifecycle) enqueue(op DelayedOperation) {
	l.queue.push(op)
	l.entry.dirty = true
}

func (l *lifecycle) HasQueuedOperations() bool            { return l.queue.len() > 0 }
func (l *lifecycle) QueuedOperations() []DelayedOperation { return l.queue.snapshot() }
func (l *lifecycle) QueuedAdditions() []any               { return l.queue.additions() }

// QueuedOrphans returns the orphans of the queued operations. A queued clear
// makes the orphans unknowable and yields ErrUnsupportedOperation.
func (l *lifecycle) QueuedOrphans() ([]any, error) {
	return l.queue.orphans()
}

// canProbe reports whether a size or containment probe may answer instead of a load.
func (l *lifecycle) canProbe() bool {
	return l.entry.state == Uninitialized && l.entry.queueEnabled && l.isConnected() && l.queue.len() == 0
}

func (l *lifecycle) probeSize(ctx context.Context) (int, bool, error) {
	if !l.canProbe() {
		return 0, false, nil
	}
	probe, ok := l.session.(SizeProbe)
	if !ok {
		return 0, false, nil
	}
	return probe.ProbeSize(ctx, l.entry.key)
}

func (l *lifecycle) probeContains(ctx context.Context, v any) (bool, bool, error) {
	if !l.canProbe() {
		return false, false, nil
	}
	probe, ok := l.session.(ContainsProbe)
	if !ok {
		return false, false, nil
	}
	return probe.ProbeContains(ctx, l.entry.key, v)
}

// PreInsert is a no-op for classifications without generated row identifiers.
func (l *lifecycle) PreInsert() error { return nil }

// PostFlush replaces the snapshot with the current state and clears the dirty flag.
func (l *lifecycle) PostFlush() {
	if l.materialized {
		l.entry.replaceSnapshot(l.self.capture())
	}
	l.entry.dirty = false
	l.mods++
}

// finishCacheLoad completes InitializeFromCache the way a load completes.
func (l *lifecycle) finishCacheLoad() {
	l.afterInitialize()
}

func (l *lifecycle) elementType() ValueType {
	return l.entry.persister.ElementType()
}

func (l *lifecycle) indexType() ValueType {
	return l.entry.persister.IndexType()
}

func (l *lifecycle) eq() func(a, b any) bool {
	return equalFunc(l.elementType())
}

func disassembleAll(vt ValueType, values []any) ([]any, error) {
	tokens := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if vt == nil {
			tokens[i] = v
			continue
		}
		token, err := vt.Disassemble(v)
		if err != nil {
			return nil, fmt.Errorf("failed to disassemble element %d: %w", i, err)
		}
		tokens[i] = token
	}
	return tokens, nil
}

func assemble(vt ValueType, token any) (any, error) {
	if token == nil || vt == nil {
		return token, nil
	}
	return vt.Assemble(token)
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: index %d, size %d", ErrIndexOutOfBounds, i, n)
	}
	return nil
}
