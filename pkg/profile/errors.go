package profile

import (
	"errors"
	"fmt"
)

// Kind classifies a failed profile lookup.
type Kind string

const (
	// KindNotFound represents an upstream 404 or a response without a user object.
	KindNotFound Kind = "not_found"

	// KindPrivate represents a user object flagged private.
	KindPrivate Kind = "private"

	// KindUpstreamUnavailable represents non-404 non-2xx statuses and transport failures.
	KindUpstreamUnavailable Kind = "upstream_unavailable"

	// KindMalformedResponse represents a 2xx body that does not parse as the expected document.
	KindMalformedResponse Kind = "malformed_response"

	// KindInternal represents any unclassified fault.
	KindInternal Kind = "internal"
)

// Sentinel errors, one per Kind. A *Error matches its sentinel with errors.Is.
var (
	ErrNotFound            = errors.New("user not found")
	ErrProfilePrivate      = errors.New("profile is private")
	ErrUpstreamUnavailable = errors.New("error fetching upstream data")
	ErrMalformedResponse   = errors.New("error parsing upstream data")
	ErrInternal            = errors.New("internal error")
)

// Error is a classified lookup failure.
type Error struct {
	Kind       Kind
	Username   string
	StatusCode int // upstream HTTP status, 0 if no response was received
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.Message()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Username != "" {
		msg = fmt.Sprintf("%s: %s", e.Username, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Message returns the caller-visible description of the kind.
// It never contains diagnostic detail.
func (k Kind) Message() string {
	return k.sentinel().Error()
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindPrivate:
		return ErrProfilePrivate
	case KindUpstreamUnavailable:
		return ErrUpstreamUnavailable
	case KindMalformedResponse:
		return ErrMalformedResponse
	default:
		return ErrInternal
	}
}

// KindOf returns the classification of err.
// Unclassified errors report KindInternal; nil reports "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// NewError creates a classified error.
func NewError(kind Kind, username string, statusCode int, err error) *Error {
	return &Error{
		Kind:       kind,
		Username:   username,
		StatusCode: statusCode,
		Err:        err,
	}
}
