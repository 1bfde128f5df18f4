// Package apperr defines the typed error taxonomy shared by all services.
// Handlers map kinds to HTTP status codes: NotFound → 404, Validation → 400,
// Conflict → 409; anything else surfaces as 500.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
)

// Error is a service-level error with a classification kind.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Kind() Kind { return e.kind }

// Code returns the machine-readable code used in error response bodies.
func (e *Error) Code() string {
	switch e.kind {
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindConflict:
		return "CONFLICT"
	}
	return "INTERNAL"
}

func NotFound(msg string) *Error   { return &Error{kind: KindNotFound, msg: msg} }
func Validation(msg string) *Error { return &Error{kind: KindValidation, msg: msg} }
func Conflict(msg string) *Error   { return &Error{kind: KindConflict, msg: msg} }

func NotFoundf(format string, args ...any) *Error {
	return NotFound(fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return Conflict(fmt.Sprintf(format, args...))
}

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
