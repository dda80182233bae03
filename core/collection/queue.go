package collection

import "fmt"

// OperationKind tags a delayed operation.
type OperationKind int

const (
	OpAdd OperationKind = iota
	OpClear
)

func (k OperationKind) String() string {
	if k == OpClear {
		return "clear"
	}
	return "add"
}

// DelayedOperation is a mutation recorded while an extra-lazy collection is
// uninitialized, replayed once the collection is materialized.
type DelayedOperation interface {
	Kind() OperationKind

	// AddedInstance returns the element added by the operation, or nil.
	AddedInstance() any

	// Orphan returns the element orphaned by the operation, or nil.
	// A queued clear has not observed what it removes and returns ErrUnsupportedOperation.
	Orphan() (any, error)

	operate(target any)
}

type addTarget interface {
	queuedAdd(v any)
}

type clearTarget interface {
	queuedClear()
}

type addOperation struct {
	value any
}

func (o addOperation) Kind() OperationKind  { return OpAdd }
func (o addOperation) AddedInstance() any   { return o.value }
func (o addOperation) Orphan() (any, error) { return nil, nil }
func (o addOperation) operate(target any) {
	if t, ok := target.(addTarget); ok {
		t.queuedAdd(o.value)
	}
}

type clearOperation struct{}

func (clearOperation) Kind() OperationKind { return OpClear }
func (clearOperation) AddedInstance() any  { return nil }
func (clearOperation) Orphan() (any, error) {
	return nil, fmt.Errorf("%w: orphan of a queued clear is unknown", ErrUnsupportedOperation)
}
func (clearOperation) operate(target any) {
	if t, ok := target.(clearTarget); ok {
		t.queuedClear()
	}
}

// operationQueue is the FIFO log of delayed operations.
type operationQueue struct {
	ops []DelayedOperation
}

func (q *operationQueue) push(op DelayedOperation) {
	q.ops = append(q.ops, op)
}

func (q *operationQueue) len() int {
	return len(q.ops)
}

func (q *operationQueue) snapshot() []DelayedOperation {
	return append([]DelayedOperation(nil), q.ops...)
}

// drain returns the queued operations in insertion order and empties the queue.
func (q *operationQueue) drain() []DelayedOperation {
	ops := q.ops
	q.ops = nil
	return ops
}

func (q *operationQueue) additions() []any {
	var added []any
	for _, op := range q.ops {
		if v := op.AddedInstance(); v != nil {
			added = append(added, v)
		}
	}
	return added
}

func (q *operationQueue) orphans() ([]any, error) {
	var orphans []any
	for _, op := range q.ops {
		orphan, err := op.Orphan()
		if err != nil {
			return nil, err
		}
		if orphan != nil {
			orphans = append(orphans, orphan)
		}
	}
	return orphans, nil
}
