package collection

import "errors"

var (
	// ErrLazyInitialization is returned when an uninitialized collection is accessed
	// after its owning session has ended (or was never attached).
	ErrLazyInitialization = errors.New("failed to lazily initialize collection: no open session")

	// ErrUnsupportedOperation is returned for operations a classification cannot perform.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrReentrantLoad is returned when the read barrier is hit while the collection is loading.
	ErrReentrantLoad = errors.New("collection is already initializing")

	// ErrSharedCollection is returned when a collection is attached to a second open session.
	ErrSharedCollection = errors.New("illegal attempt to associate a collection with two open sessions")

	// ErrOutOfRange is returned when a sorted sub-view receives an element outside its bounds.
	ErrOutOfRange = errors.New("element out of range")

	// ErrIndexOutOfBounds is returned for positional access past the end of a container.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrUnknownClassification is returned when a classification has no semantics.
	ErrUnknownClassification = errors.New("unknown collection classification")
)
