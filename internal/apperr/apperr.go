// Package apperr defines the error kinds shared by the HealthSense services.
//
// Every service failure is one of a small set of kinds. Callers branch on the kind
// with errors.Is and show the message to the user:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrPersistence  = errors.New("persistence failure")
	ErrValidation   = errors.New("validation failed")
	ErrDecoding     = errors.New("invalid stored value")
)

// Error is a kinded error with a user-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the kind of e, so errors.Is(err, ErrNotFound) holds
// for any *Error of that kind.
func (e *Error) Is(target error) bool { return e.Kind == target }

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func DuplicateKey(format string, args ...interface{}) error {
	return &Error{Kind: ErrDuplicateKey, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Decoding(format string, args ...interface{}) error {
	return &Error{Kind: ErrDecoding, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure. A nil cause returns nil so it can wrap the
// result of a store call directly.
func Persistence(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: ErrPersistence, Message: msg + ": " + err.Error(), Err: err}
}

// KindOf returns the kind of err, or ErrPersistence for errors that carry none.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrDuplicateKey, ErrValidation, ErrDecoding, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrPersistence
}

// HTTPStatus maps err to the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrDuplicateKey:
		return http.StatusConflict
	case ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
