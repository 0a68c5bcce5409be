// Package errors provides the unified error system used across all layers of
// the curriculum graph engine. Every error carries a category for handling
// decisions, a machine-readable code for programmatic checks, and an optional
// underlying cause for errors.Is/errors.As chains.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines the category of error for proper handling and response.
type ErrorType string

const (
	// Domain-level rejections
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeConflict      ErrorType = "CONFLICT"
	ErrorTypeDepthExceeded ErrorType = "DEPTH_EXCEEDED"

	// Infrastructure failures
	ErrorTypeStorage  ErrorType = "STORAGE"
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// GraphError is the single error type shared by the domain, service, and
// repository layers.
type GraphError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	// Context
	Operation string `json:"operation,omitempty"`
	Resource  string `json:"resource,omitempty"`

	// Retryable signals transient infrastructure failure to callers.
	Retryable bool  `json:"retryable"`
	Cause     error `json:"-"`
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with the underlying cause.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Builder provides a fluent interface for constructing GraphError instances.
type Builder struct {
	err *GraphError
}

// NewError creates a new error builder with the specified type, code, and message.
func NewError(errType ErrorType, code, message string) *Builder {
	return &Builder{
		err: &GraphError{
			Type:    errType,
			Code:    code,
			Message: message,
		},
	}
}

// WithDetails adds additional context to the error message.
func (b *Builder) WithDetails(format string, args ...any) *Builder {
	b.err.Details = fmt.Sprintf(format, args...)
	return b
}

// WithOperation records the operation that failed.
func (b *Builder) WithOperation(operation string) *Builder {
	b.err.Operation = operation
	return b
}

// WithResource records the resource being operated on.
func (b *Builder) WithResource(resource string) *Builder {
	b.err.Resource = resource
	return b
}

// WithCause attaches the underlying error.
func (b *Builder) WithCause(cause error) *Builder {
	b.err.Cause = cause
	return b
}

// WithRetryable marks the error as retryable.
func (b *Builder) WithRetryable() *Builder {
	b.err.Retryable = true
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *GraphError {
	return b.err
}

// Convenience constructors for each category.

func Validation(code, message string) *Builder {
	return NewError(ErrorTypeValidation, code, message)
}

func NotFound(code, message string) *Builder {
	return NewError(ErrorTypeNotFound, code, message)
}

func Conflict(code, message string) *Builder {
	return NewError(ErrorTypeConflict, code, message)
}

func DepthExceeded(code, message string) *Builder {
	return NewError(ErrorTypeDepthExceeded, code, message)
}

func Storage(code, message string) *Builder {
	return NewError(ErrorTypeStorage, code, message).WithRetryable()
}

func Internal(code, message string) *Builder {
	return NewError(ErrorTypeInternal, code, message)
}

// Wrap wraps an error with additional message context, preserving the
// category and code of an existing GraphError. Non-graph errors become
// internal errors.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var ge *GraphError
	if errors.As(err, &ge) {
		return &GraphError{
			Type:      ge.Type,
			Code:      ge.Code,
			Message:   fmt.Sprintf("%s: %s", message, ge.Message),
			Details:   ge.Details,
			Operation: ge.Operation,
			Resource:  ge.Resource,
			Retryable: ge.Retryable,
			Cause:     err,
		}
	}

	return &GraphError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// As and Is re-export the standard helpers so callers importing this
// package do not also need the stdlib errors package.
func As(err error, target any) bool { return errors.As(err, target) }
func Is(err, target error) bool     { return errors.Is(err, target) }

// TypeOf returns the category of an error, or ErrorTypeInternal for errors
// outside the unified system.
func TypeOf(err error) ErrorType {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Type
	}
	return ErrorTypeInternal
}

// Classification helpers.

func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

func IsNotFound(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

func IsConflict(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}

func IsDepthExceeded(err error) bool {
	return TypeOf(err) == ErrorTypeDepthExceeded
}

func IsStorage(err error) bool {
	return TypeOf(err) == ErrorTypeStorage
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code string) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsRetryable reports whether the operation that produced err can be retried.
func IsRetryable(err error) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}
