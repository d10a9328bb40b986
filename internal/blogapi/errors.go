package blogapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a client error so callers can react without string matching.
type Kind string

const (
	// KindValidation is raised client-side before any request is issued.
	KindValidation Kind = "validation"
	// KindAuth covers missing or rejected credentials.
	KindAuth Kind = "auth"
	// KindNotFound means the backend answered 404 for the resource.
	KindNotFound Kind = "not_found"
	// KindNetwork means the backend could not be reached.
	KindNetwork Kind = "network"
	// KindTimeout means the backend did not answer within the client timeout.
	KindTimeout Kind = "timeout"
	// KindServer covers backend failures that carried an HTTP status.
	KindServer Kind = "server"
)

// Error is the tagged failure returned by every client operation.
// Nothing throws past the client boundary: callers always get one of these.
type Error struct {
	Kind    Kind
	Status  int // HTTP status when the backend answered, 0 otherwise
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d)", http.StatusText(e.Status), e.Status)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// NewValidationError builds a client-side validation failure.
func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// KindOf extracts the kind from an error returned by this package.
// It returns the empty Kind for foreign errors.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsNotFound reports whether err represents a backend 404.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	default:
		return KindServer
	}
}
