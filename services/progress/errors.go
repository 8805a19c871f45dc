package progress

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so the HTTP layer can map them to status codes.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindValidation
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindInvalidState:
		return "invalid state"
	}
	return "unknown"
}

// Error is returned for every violated precondition of an engine operation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("progress.%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func newError(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind carried by err, or 0 when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsKind reports whether err is an engine error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Store errors. Implementations of Store must return (or wrap) these.
var (
	ErrVersionConflict = errors.New("progress document was modified concurrently")
	ErrDuplicate       = errors.New("progress document already exists")
)
