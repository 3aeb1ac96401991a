package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Common error types for the gateway
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")

	// Authorization flow errors
	ErrInvalidState       = errors.New("invalid state")
	ErrStateSession       = errors.New("state was issued to another session")
	ErrStateExpired       = errors.New("state expired")
	ErrMissingIDToken     = errors.New("no id_token in token response")
	ErrInvalidNonce       = errors.New("invalid nonce")
	ErrUnverifiedIDToken  = errors.New("id token has not been verified")
	ErrMissingUserClaims  = errors.New("unable to obtain user information")
	ErrSubjectMismatch    = errors.New("userinfo subject does not match id_token")
	ErrUnsupportedService = errors.New("unsupported downstream service")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Kind classifies errors reported to HTTP callers.
type Kind string

const (
	KindNotAuthenticated Kind = "not_authenticated"
	KindValidation       Kind = "validation"
	KindConfiguration    Kind = "configuration"
	KindDownstream       Kind = "downstream"
	KindTimeout          Kind = "timeout"
	KindUnexpected       Kind = "unexpected"
)

// Error is an error that carries enough information to be rendered as a JSON
// error envelope.
type Error struct {
	Kind    Kind
	Message string
	// Status is only meaningful for KindDownstream, where it carries the
	// status code returned by the third party.
	Status int
	// Detail is the downstream response body, when one was available.
	Detail string
	Err    error
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

// HTTPStatus returns the status code the error maps to.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindDownstream:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func NotAuthenticated(message string) *Error {
	return &Error{Kind: KindNotAuthenticated, Message: message, Err: ErrNotAuthenticated}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func Configuration(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

func Downstream(message string, status int, detail string) *Error {
	return &Error{Kind: KindDownstream, Message: message, Status: status, Detail: detail}
}

func Timeout(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Err: err}
}

func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// Classify turns any error into an *Error. Typed errors are returned as is,
// timeouts become KindTimeout and everything else KindUnexpected.
func Classify(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return NotAuthenticated(message)
	}
	if IsTimeout(err) {
		return Timeout(message, err)
	}
	return Unexpected(message, err)
}

// KindOf returns the kind of err, or KindUnexpected for untyped errors.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnexpected
}

// IsTimeout reports whether err was caused by an exceeded deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
