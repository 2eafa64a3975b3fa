package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a service error for the HTTP layer
type Kind string

const (
	KindValidation   Kind = "validation"
	KindState        Kind = "state"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal"
)

// Error is a client-facing failure. Field and Code are set for field-scoped validation errors.
type Error struct {
	Kind    Kind
	Field   string
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Validation returns a field-scoped validation error
func Validation(field, code, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Code: code, Message: message}
}

// State reports a redundant or impossible transition, e.g. liking twice
func State(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation, e.g. rating twice
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error, looking through %w wrapping
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// notFoundOr maps a missing row to a NotFound error and wraps anything else
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("%s not found", what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
