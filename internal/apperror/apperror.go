package apperror

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Code classifies a failure so callers can decide how to present or retry it.
type Code string

const (
	CodeInvalidInput  Code = "INVALID_INPUT"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeInvalidState  Code = "INVALID_STATE"
	CodeNotFound      Code = "NOT_FOUND"
	CodeDatabaseError Code = "DATABASE_ERROR"
)

// Error is the typed failure returned by the approval engine and services.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, apperror.ErrInvalidState) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidInput = &Error{Code: CodeInvalidInput}
	ErrUnauthorized = &Error{Code: CodeUnauthorized}
	ErrInvalidState = &Error{Code: CodeInvalidState}
	ErrNotFound     = &Error{Code: CodeNotFound}
	ErrDatabase     = &Error{Code: CodeDatabaseError}
)

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func InvalidInput(field, reason string) *Error {
	return Newf(CodeInvalidInput, "%s: %s", field, reason)
}

func NotFound(entity string, id interface{}) *Error {
	return Newf(CodeNotFound, "%s %v not found", entity, id)
}

// CodeOf returns the code carried by err, or DATABASE_ERROR for untyped errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeDatabaseError
}

// FromDB converts a persistence error into a typed error. Typed errors pass through.
func FromDB(err error, entity string, id interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(entity, id)
	}
	return Wrap(err, CodeDatabaseError, fmt.Sprintf("failed to access %s", entity))
}

// IsRetryable reports whether retrying the same call could change the outcome.
func IsRetryable(err error) bool {
	return err != nil && CodeOf(err) == CodeDatabaseError
}
