package interfaces

import (
	"errors"
	"fmt"
)

// Sentinel errors for store-level conditions. Backends wrap these so that
// callers can classify failures with errors.Is regardless of which backend
// produced them.
var (
	// ErrDocumentNotFound is returned when the requested document does not
	// exist in the store.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrRevisionConflict is returned when a write supplies a revision token
	// that no longer matches the store's current revision.
	ErrRevisionConflict = errors.New("revision conflict")

	// ErrStoreUnavailable is returned when the store cannot be reached or
	// returns a malformed response.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// ErrorKind is the closed set of failure categories surfaced to callers of
// the agreement service. The route layer maps these 1:1 to transport status
// codes.
type ErrorKind int

const (
	// KindNotFound covers absent agreements and inputs as well as
	// unauthorized access. The two are intentionally conflated so that the
	// existence of an agreement is never leaked to an unauthorized party.
	KindNotFound ErrorKind = iota

	// KindForbidden covers ownership violations and already-signed
	// agreements.
	KindForbidden

	// KindBadRequest covers missing preconditions and malformed payloads.
	KindBadRequest

	// KindConflict covers revision mismatches that persist past the retry
	// budget.
	KindConflict

	// KindUnauthorized covers failed identity resolution.
	KindUnauthorized

	// KindUnavailable covers upstream store and transport failures, and is
	// the fallback classification for any unrecognized error.
	KindUnavailable
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the single error type carried through every fallible service
// operation. It pairs a Kind with a caller-safe message and an optional
// wrapped cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error returns the caller-safe message.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, which lets
// callers match on kind sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && (other.Message == "" || other.Message == e.Message)
}

// NotFoundError builds a KindNotFound error.
func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError builds a KindForbidden error.
func ForbiddenError(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// BadRequestError builds a KindBadRequest error.
func BadRequestError(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// ConflictError builds a KindConflict error wrapping cause.
func ConflictError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: cause}
}

// UnauthorizedError builds a KindUnauthorized error.
func UnauthorizedError(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// UnavailableError builds a KindUnavailable error wrapping cause.
func UnavailableError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf classifies any error into one of the six kinds. Typed *Error values
// report their own kind; store sentinels map to their service-level
// equivalents; everything else is treated as Unavailable so internal detail
// never reaches a caller.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return KindNotFound
	case errors.Is(err, ErrRevisionConflict):
		return KindConflict
	default:
		return KindUnavailable
	}
}
