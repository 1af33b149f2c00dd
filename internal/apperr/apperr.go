// Package apperr defines the error taxonomy shared by handlers and services.
package apperr

import "errors"

type Code string

const (
	CodeValidation   Code = "validation"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"
)

// Error is an error whose message is safe to show to API callers.
// Fields carries per-field validation messages.
type Error struct {
	Code    Code
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	return e.Message
}

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Validation(message string) error {
	return New(CodeValidation, message)
}

// ValidationFields reports a validation failure with per-field detail.
func ValidationFields(fields map[string][]string) error {
	return &Error{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

func Unauthorized(message string) error {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) error {
	return New(CodeForbidden, message)
}

func NotFound(message string) error {
	return New(CodeNotFound, message)
}

func Internal(message string) error {
	return New(CodeInternal, message)
}

func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
