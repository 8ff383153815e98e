package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryUsage     Category = "usage"
	CategoryRuntime   Category = "runtime"
	CategoryScheduler Category = "scheduler"
	CategoryHost      Category = "host"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// SpaceError is a structured error with a code, category and fix suggestion.
type SpaceError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (usage, scheduler, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Op is the operation that raised the error (e.g., "Provide").
	Op string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *SpaceError) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *SpaceError) Unwrap() error {
	return e.Wrapped
}

// WithOp records the operation that raised the error.
func (e *SpaceError) WithOp(op string) *SpaceError {
	e.Op = op
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *SpaceError) WithSuggestion(s string) *SpaceError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *SpaceError) WithDetail(d string) *SpaceError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *SpaceError) Wrap(err error) *SpaceError {
	e.Wrapped = err
	return e
}

// IsUsage reports whether e is a usage error.
func (e *SpaceError) IsUsage() bool {
	return e != nil && e.Category == CategoryUsage
}

// New creates a SpaceError from a registered error code.
func New(code string) *SpaceError {
	template, ok := registry[code]
	if !ok {
		return &SpaceError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &SpaceError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new SpaceError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *SpaceError {
	return &SpaceError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a SpaceError.
func FromError(err error, code string) *SpaceError {
	if err == nil {
		return nil
	}
	var se *SpaceError
	if stderrors.As(err, &se) {
		return se
	}
	return New(code).Wrap(err)
}

// IsUsage reports whether v (an error or a recovered panic value) is a
// usage error.
func IsUsage(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var se *SpaceError
	return stderrors.As(err, &se) && se.IsUsage()
}

// Code returns the code of the first SpaceError in err's chain, or "".
func Code(err error) string {
	var se *SpaceError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}
