package domain

import "errors"

// ErrorKind classifies an engine failure. The boundary layer maps kinds to
// transport status codes; the engine only guarantees the (kind, message)
// pair is stable.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindInvalidRequest
	KindConflict
	KindInternal
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConflict:
		return "conflict"
	case KindInternal:
		return "internal"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is a failure as pure data: a kind plus a fixed human-readable
// message. Messages are part of the contract, callers may match on them.
type Error struct {
	Kind    ErrorKind
	Message string

	cause error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func InvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: cause}
}

func Timeout(message string, cause error) *Error {
	return &Error{Kind: KindTimeout, Message: message, cause: cause}
}

// KindOf extracts the kind from err, or KindInternal if err is not a
// domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
