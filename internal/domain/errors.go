package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every rejection the ledger can produce
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindEscrowMismatch    ErrorKind = "ESCROW_MISMATCH"
	KindInvalidItem       ErrorKind = "INVALID_ITEM"
	KindAlreadyConsumed   ErrorKind = "ALREADY_CONSUMED"
	KindNotActive         ErrorKind = "NOT_ACTIVE"
	KindTransportFailure  ErrorKind = "TRANSPORT_FAILURE"
)

// Error is a classified ledger error. Reason names the invariant that blocked the call.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " "))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrUnauthorized) works
// for any unauthorized error regardless of its reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Reason == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrEscrowMismatch    = &Error{Kind: KindEscrowMismatch}
	ErrInvalidItem       = &Error{Kind: KindInvalidItem}
	ErrAlreadyConsumed   = &Error{Kind: KindAlreadyConsumed}
	ErrNotActive         = &Error{Kind: KindNotActive}
	ErrTransportFailure  = &Error{Kind: KindTransportFailure}
)

var (
	// ErrEmptyInput marks an InvalidInput caused by a blank serial or list
	ErrEmptyInput = errors.New("empty input")

	// ErrStaleWrite is returned by a store when a compare-and-set lost to a concurrent writer
	ErrStaleWrite = errors.New("stale write")

	// ErrOutcomeUnknown marks a TransportFailure where a write may or may not have been applied
	ErrOutcomeUnknown = errors.New("outcome unknown")
)

// NewError builds a classified error with a formatted reason
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// WrapError builds a classified error around a cause
func WrapError(kind ErrorKind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of a classified error, or "" when err is not one
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsTransportFailure reports whether a read may be retried
func IsTransportFailure(err error) bool {
	return KindOf(err) == KindTransportFailure
}
