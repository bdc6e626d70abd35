package domain

import (
	"errors"
	"fmt"
)

// Error is a typed domain error carrying a stable code for user-facing replies.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so callers can use errors.Is with the predefined values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error instance.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code to an existing error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Error codes.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	CodePersistence         = "PERSISTENCE_ERROR"
	CodeGateClosed          = "GATE_CLOSED"
	CodeInternal            = "INTERNAL_ERROR"
)

// Predefined errors.
var (
	ErrValidation          = NewError(CodeValidation, "validation failed")
	ErrNotFound            = NewError(CodeNotFound, "that event ID does not exist")
	ErrUnsupportedLanguage = NewError(CodeUnsupportedLanguage, "that language is not supported")
	ErrPersistence         = NewError(CodePersistence, "saving the change failed")
	ErrGateClosed          = NewError(CodeGateClosed, "this action was already handled")
	ErrInternal            = NewError(CodeInternal, "something went wrong")
)

// Validation returns a validation error with a user-facing message.
func Validation(message string) *Error {
	return NewError(CodeValidation, message)
}

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, CodeInternal, ErrInternal.Message)
}
