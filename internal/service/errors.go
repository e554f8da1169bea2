package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call.
type Kind int

const (
	KindUnclassified Kind = iota
	KindNetwork
	KindUnauthorized
	KindValidation
	KindNotFound
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unclassified"
	}
}

// Error is a classified backend failure.
type Error struct {
	Kind Kind

	// Status is the HTTP status, or 0 when no response was received.
	Status int

	// Message is the server-provided message, if any.
	Message string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Status != 0:
		return fmt.Sprintf("%s error (status %d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return e.Kind.String() + " error"
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindForStatus maps an HTTP status code to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindUnclassified
	}
}

// StatusError builds an *Error for an unsuccessful HTTP response.
func StatusError(status int, message string, cause error) *Error {
	return &Error{Kind: KindForStatus(status), Status: status, Message: message, Err: cause}
}

// NetworkError wraps a failure where no response was received.
func NetworkError(cause error) *Error {
	return &Error{Kind: KindNetwork, Err: cause}
}

// KindOf returns the Kind of err, or KindUnclassified if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// IsUnauthorized reports whether err means the session is invalid.
func IsUnauthorized(err error) bool {
	return err != nil && KindOf(err) == KindUnauthorized
}

// UserMessage returns the server-provided message in err, or fallback.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
