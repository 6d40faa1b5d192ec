package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, client-visible classification of a failure
type Kind string

const (
	InvalidPitch        Kind = "InvalidPitch"
	InvalidNote         Kind = "InvalidNote"
	EmptyAiResponse     Kind = "EmptyAiResponse"
	MalformedAiJSON     Kind = "MalformedAiJson"
	UnexpectedAiShape   Kind = "UnexpectedAiShape"
	AiFailure           Kind = "AiFailure"
	AiTimeout           Kind = "AiTimeout"
	MalformedMidi       Kind = "MalformedMidi"
	StorageWriteFailure Kind = "StorageWriteFailure"
	StorageReadFailure  Kind = "StorageReadFailure"
	Unauthorized        Kind = "Unauthorized"
	NotFound            Kind = "NotFound"
	InvalidInput        Kind = "InvalidInput"
	Conflict            Kind = "Conflict"
	Internal            Kind = "Internal"
)

// maxRawLength caps the diagnostic payload attached to AI failures
const maxRawLength = 2048

// Error carries a Kind, a human readable message, and optionally the raw
// collaborator output that caused it.
type Error struct {
	Kind    Kind
	Message string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, apperr.NotFound) match on kind alone
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// Error makes Kind usable as an errors.Is target
func (k Kind) Error() string {
	return string(k)
}

// New creates an Error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an Error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithRaw attaches the raw collaborator output, truncated for transport
func (e *Error) WithRaw(raw string) *Error {
	if len(raw) > maxRawLength {
		raw = raw[:maxRawLength]
	}
	e.Raw = raw
	return e
}

// KindOf extracts the kind from any error chain, defaulting to Internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var kind Kind
	if errors.As(err, &kind) {
		return kind
	}
	return Internal
}

// As returns the *Error in err's chain, if any
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// IsAiFailure reports whether the kind means "nothing generated, please retry"
func IsAiFailure(kind Kind) bool {
	switch kind {
	case EmptyAiResponse, MalformedAiJSON, UnexpectedAiShape, AiFailure, AiTimeout:
		return true
	}
	return false
}

// HTTPStatus maps a kind onto the HTTP status code returned at the boundary
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidPitch, InvalidNote, InvalidInput:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case MalformedMidi:
		return http.StatusUnprocessableEntity
	case AiTimeout:
		return http.StatusGatewayTimeout
	case EmptyAiResponse, MalformedAiJSON, UnexpectedAiShape, AiFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
