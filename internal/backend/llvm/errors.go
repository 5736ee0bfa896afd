package llvm

import (
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// InvariantKind classifies a broken lowering invariant. Every kind is fatal
// for the class being lowered.
type InvariantKind uint8

const (
	ErrOffsetNotPlaceable InvariantKind = iota + 1
	ErrOffsetMismatch
	ErrMissingMethod
	ErrMissingDescriptor
	ErrMissingInitializer
	ErrBadInitializer
	ErrBadCtorArgs
	ErrOffsetNotFound
	ErrNoContext
	ErrNotVirtual
	ErrInvalidCast
	ErrPhaseReentry
	ErrUnknownType
	ErrOverflow
)

func (k InvariantKind) String() string {
	switch k {
	case ErrOffsetNotPlaceable:
		return "offset not placeable"
	case ErrOffsetMismatch:
		return "offset mismatch"
	case ErrMissingMethod:
		return "missing method"
	case ErrMissingDescriptor:
		return "missing descriptor"
	case ErrMissingInitializer:
		return "missing initializer"
	case ErrBadInitializer:
		return "bad initializer"
	case ErrBadCtorArgs:
		return "bad constructor arguments"
	case ErrOffsetNotFound:
		return "offset not found"
	case ErrNoContext:
		return "no outer context"
	case ErrNotVirtual:
		return "not virtual"
	case ErrInvalidCast:
		return "invalid cast"
	case ErrPhaseReentry:
		return "phase re-entered"
	case ErrUnknownType:
		return "unknown type"
	case ErrOverflow:
		return "value out of range"
	default:
		return fmt.Sprintf("InvariantKind(%d)", k)
	}
}

// InvariantError reports a violated precondition of the class lowering.
type InvariantError struct {
	Kind   InvariantKind
	Class  string
	Detail string
}

func (e *InvariantError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Class, e.Kind, e.Detail)
}

// IsInvariant reports whether err carries an InvariantError of kind k.
func IsInvariant(err error, k InvariantKind) bool {
	var ie *InvariantError
	return errors.As(err, &ie) && ie.Kind == k
}

func invariantf(kind InvariantKind, class, format string, args ...any) error {
	return &InvariantError{Kind: kind, Class: class, Detail: fmt.Sprintf(format, args...)}
}

// narrow converts v for the IR field described by what, failing with
// ErrOverflow when it does not fit.
func narrow[T, F safecast.Integer](class, what string, v F) (T, error) {
	n, err := safecast.Conv[T](v)
	if err != nil {
		return 0, invariantf(ErrOverflow, class, "%s %d: %v", what, v, err)
	}
	return n, nil
}
