package steam

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an import failure
type Kind string

// Failure kinds surfaced to clients.
const (
	KindMissingCredential        Kind = "MISSING_CREDENTIAL"
	KindInvalidOrExpiredToken    Kind = "INVALID_OR_EXPIRED_TOKEN"
	KindRateLimited              Kind = "RATE_LIMITED"
	KindProfilePrivateOrNotFound Kind = "PROFILE_PRIVATE_OR_NOT_FOUND"
	KindUpstreamError            Kind = "UPSTREAM_ERROR"
)

// Sentinels for errors.Is.
var (
	ErrMissingCredential        = &Error{Kind: KindMissingCredential}
	ErrInvalidOrExpiredToken    = &Error{Kind: KindInvalidOrExpiredToken}
	ErrRateLimited              = &Error{Kind: KindRateLimited}
	ErrProfilePrivateOrNotFound = &Error{Kind: KindProfilePrivateOrNotFound}
	ErrUpstream                 = &Error{Kind: KindUpstreamError}
)

// Error is a tagged import failure
type Error struct {
	Kind       Kind
	Message    string
	Status     int           // upstream HTTP status, 0 for transport failures
	RetryAfter time.Duration // set for KindRateLimited when Steam says so
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus returns the status the proxy answers with
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingCredential:
		return http.StatusBadRequest
	case KindInvalidOrExpiredToken:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindProfilePrivateOrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// Temporary reports whether retrying the same request may succeed
func (e *Error) Temporary() bool {
	return e.Kind == KindUpstreamError && (e.Status == 0 || e.Status >= 500)
}

func missingCredential(msg string) *Error {
	return &Error{Kind: KindMissingCredential, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Kind: KindProfilePrivateOrNotFound, Message: msg}
}

func upstream(status int, msg string, cause error) *Error {
	return &Error{Kind: KindUpstreamError, Status: status, Message: msg, cause: cause}
}

// isTemporary is the retry predicate for the client
func isTemporary(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Temporary()
}
