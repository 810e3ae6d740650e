package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an error with its wire-level classification. The string value is
// what travels in the "code" field of JSON error bodies, so renaming a kind is
// a breaking change for deployed clients.
type Kind string

const (
	KindBadRequest          Kind = "bad_request"
	KindRateLimited         Kind = "rate_limited"
	KindServerMisconfigured Kind = "server_misconfigured"
	KindEndpointMissing     Kind = "endpoint_missing"
	KindNetworkUnreachable  Kind = "network_unreachable"
	KindUpstream            Kind = "upstream_error"
)

// AppError is the one error shape that crosses package boundaries: a kind for
// classification, a message safe to show, an HTTP status for transport layers,
// and the wrapped cause for logs.
type AppError struct {
	Kind       Kind
	Message    string
	StatusCode int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, StatusCode: defaultStatus(kind)}
}

func Wrap(kind Kind, message string, cause error) *AppError {
	return &AppError{Kind: kind, Message: message, StatusCode: defaultStatus(kind), Cause: cause}
}

func defaultStatus(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindEndpointMissing:
		return http.StatusNotFound
	case KindNetworkUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindOf extracts the classification of err, unwrapping as needed.
// Unclassified errors report KindUpstream.
func KindOf(err error) Kind {
	var app *AppError
	if errors.As(err, &app) {
		return app.Kind
	}
	return KindUpstream
}

// StatusOf maps err to the HTTP status a handler should answer with.
func StatusOf(err error) int {
	var app *AppError
	if errors.As(err, &app) {
		return app.StatusCode
	}
	return http.StatusInternalServerError
}

// MessageOf returns the display message of err without the kind prefix.
func MessageOf(err error) string {
	var app *AppError
	if errors.As(err, &app) {
		return app.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
