// Package errors defines the structured error taxonomy surfaced by the API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service error.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindStore        Kind = "store"
)

// ServiceError is a caller-facing structured failure.
type ServiceError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.cause }

// Is matches service errors by kind so errors.Is works on wrapped values.
func (e *ServiceError) Is(target error) bool {
	var se *ServiceError
	if errors.As(target, &se) {
		return se.Kind == e.Kind
	}
	return false
}

// NotFound reports an absent resource.
func NotFound(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusNotFound}
}

// Unauthorized reports a missing or invalid credential, or a caller that
// does not own the resource.
func Unauthorized(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusUnauthorized}
}

// Conflict reports a uniqueness violation such as a duplicate username.
func Conflict(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindConflict, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusConflict}
}

// Validation reports a missing or malformed required field.
func Validation(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...), HTTPStatus: http.StatusBadRequest}
}

// Store wraps a transaction or commit failure. The cause is kept for logs
// but the caller only sees a generic failure.
func Store(err error) *ServiceError {
	return &ServiceError{Kind: KindStore, Message: "storage failure", HTTPStatus: http.StatusInternalServerError, cause: err}
}

// Sentinels for errors.Is checks against any wrapped ServiceError.
var (
	ErrNotFound     = &ServiceError{Kind: KindNotFound}
	ErrUnauthorized = &ServiceError{Kind: KindUnauthorized}
	ErrConflict     = &ServiceError{Kind: KindConflict}
	ErrValidation   = &ServiceError{Kind: KindValidation}
	ErrStore        = &ServiceError{Kind: KindStore}
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain matching target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// HTTPStatus returns the status code for an error, defaulting to 500.
func HTTPStatus(err error) int {
	var se *ServiceError
	if errors.As(err, &se) && se.HTTPStatus != 0 {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
