// Package domainerrors defines coded errors shared by all services.
//
// Stores report infrastructure facts via pkg/platform/sentinel; services
// translate those facts (and their own invariant checks) into coded errors
// from this package. The HTTP layer maps codes to statuses in
// pkg/platform/httputil without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and tests.
type Code string

const (
	// CodeValidation marks field-level input problems. Errors with this
	// code usually carry a FieldErrors list.
	CodeValidation Code = "validation"

	// CodeNotFound marks a lookup miss by id or exact name.
	CodeNotFound Code = "not_found"

	// CodeConflict marks a uniqueness or state conflict.
	CodeConflict Code = "conflict"

	// CodeIntegrity marks a data-integrity fault, such as a cycle found
	// while walking the organization hierarchy. Fatal to the traversal.
	CodeIntegrity Code = "integrity"

	// CodeExternalSource marks an unreachable or unparseable upstream feed.
	CodeExternalSource Code = "external_source"

	// CodeImport marks a structurally unusable import document, rejected
	// before any per-row processing.
	CodeImport Code = "import"

	// CodeTimeout marks a context deadline or cancellation.
	CodeTimeout Code = "timeout"

	// CodeInternal marks everything else; details stay out of responses.
	CodeInternal Code = "internal"
)

// FieldError describes one offending field. Line is zero outside of
// row-oriented input (CSV import sets it).
type FieldError struct {
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("line %d, field %s: %s", f.Line, f.Field, f.Message)
	}
	return fmt.Sprintf("field %s: %s", f.Field, f.Message)
}

// Error is a coded domain error with an optional wrapped cause and an
// optional list of field errors.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, preserving the cause chain.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NewValidation constructs a validation error carrying field details.
func NewValidation(message string, fields ...FieldError) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// HasCode reports whether err (or anything it wraps) carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// FieldsOf returns the field errors attached to err, if any.
func FieldsOf(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
