// Package apperr carries the error taxonomy shared by the fleet manager and
// the geolocation tracker. Controllers map kinds to HTTP statuses; services
// never return partial effects alongside one of these errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	// KindUnknown is the zero kind; anything untagged maps to it.
	KindUnknown Kind = iota
	// KindNotFound: the referenced id does not exist or is not owned by the
	// caller's office.
	KindNotFound
	// KindInvalid: a precondition was violated (wrong role, inactive route,
	// cross-office reference, malformed input).
	KindInvalid
	// KindConflict: applying the request would break an invariant, e.g. the
	// vehicle is already assigned to another active route.
	KindConflict
	// KindBadCoordinate: tracker input outside |lat|<=90 / |lon|<=180.
	KindBadCoordinate
	// KindUnavailable: transient store failure that survived bounded retry.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid_operation"
	case KindConflict:
		return "conflict"
	case KindBadCoordinate:
		return "invalid_coordinate"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error is a kind-tagged error. Wrapped causes stay reachable via errors.Is.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func BadCoordinate(format string, args ...any) error {
	return &Error{Kind: KindBadCoordinate, Msg: fmt.Sprintf(format, args...)}
}

func Unavailable(msg string, cause error) error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: cause}
}

// Wrap tags an existing error with a kind without losing the cause.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf extracts the kind from err, walking the wrap chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps an error to the HTTP status the API layer should answer with.
func Status(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid, KindBadCoordinate:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
