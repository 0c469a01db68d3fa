package orders

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindNotFound Kind = iota + 1
	KindPermissionDenied
	KindValidationFailed
	KindInsufficientStock
	KindConcurrencyConflict
	KindStoreUnavailable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindValidationFailed:
		return "validation_failed"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindInternal:
		return "internal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the only error type returned by Service. Shortfalls is set only
// for KindInsufficientStock, and is never empty for that kind.
type Error struct {
	Kind       Kind
	Message    string
	Shortfalls []string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if len(e.Shortfalls) > 0 {
		msg += " (" + strings.Join(e.Shortfalls, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a Service error, or 0 for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func notFound(msg string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func denied(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func invalid(msg string, err error) *Error {
	return &Error{Kind: KindValidationFailed, Message: msg, Err: err}
}

func insufficientStock(shortfalls []string) *Error {
	return &Error{Kind: KindInsufficientStock, Message: "insufficient stock", Shortfalls: shortfalls}
}

func conflict(msg string, err error) *Error {
	return &Error{Kind: KindConcurrencyConflict, Message: msg, Err: err}
}

func unavailable(msg string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: msg, Err: err}
}

// internal covers permanent failures that fit no other kind.
func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}
