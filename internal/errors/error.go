package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime   Category = "runtime"
	CategoryConfig    Category = "config"
	CategoryInspector Category = "inspector"
	CategoryCLI       Category = "cli"
)

// HeartError is a structured error with a stable code, explanation and hint.
type HeartError struct {
	// Code is a unique error identifier (e.g., "H001").
	Code string

	// Category is the error type (runtime, config, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Fatal marks invariant violations the engine cannot continue past.
	Fatal bool

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *HeartError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *HeartError) Unwrap() error {
	return e.Wrapped
}

// Is matches another HeartError by code.
func (e *HeartError) Is(target error) bool {
	t, ok := target.(*HeartError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *HeartError) WithSuggestion(s string) *HeartError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *HeartError) WithDetail(d string) *HeartError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detailed explanation to the error.
func (e *HeartError) WithDetailf(format string, args ...any) *HeartError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *HeartError) Wrap(err error) *HeartError {
	e.Wrapped = err
	return e
}

// New creates a HeartError from a registered error code.
func New(code string) *HeartError {
	template, ok := registry[code]
	if !ok {
		return &HeartError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &HeartError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
		Fatal:      template.Fatal,
	}
}

// Newf creates a new HeartError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *HeartError {
	return &HeartError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a HeartError.
func FromError(err error, code string) *HeartError {
	if err == nil {
		return nil
	}
	var he *HeartError
	if stderrors.As(err, &he) {
		return he
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first HeartError in err's chain, or "".
func Code(err error) string {
	var he *HeartError
	if stderrors.As(err, &he) {
		return he.Code
	}
	return ""
}

// Fail panics with the registered error for code. It is reserved for
// invariant violations; the detail describes the offending state.
func Fail(code string, format string, args ...any) {
	e := New(code)
	e.Fatal = true
	if format != "" {
		e.Detail = fmt.Sprintf(format, args...)
	}
	panic(e)
}

// Recovered converts a value returned by recover() into a HeartError.
// It returns nil when v is not a HeartError, so unrelated panics can be
// re-raised by the caller.
func Recovered(v any) *HeartError {
	err, ok := v.(error)
	if !ok {
		return nil
	}
	var he *HeartError
	if stderrors.As(err, &he) {
		return he
	}
	return nil
}
