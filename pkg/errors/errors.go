// Package errors provides structured error handling for the data platform
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeConfig represents configuration or credential errors; these
	// abort a run before any item work begins
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFormat represents unsupported file format errors
	ErrorTypeFormat ErrorType = "format"
	// ErrorTypeMethod represents unsupported HTTP method errors
	ErrorTypeMethod ErrorType = "method"
	// ErrorTypeRequest represents failed HTTP requests
	ErrorTypeRequest ErrorType = "request"
	// ErrorTypeDecode represents malformed response payload errors
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeRemote represents object store failures
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeNotFound represents missing keys or files; an expected,
	// non-exceptional outcome for stat and get
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTimeout represents timed-out operations
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeQuery represents analytical store query errors
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeFile represents local file operation errors
	ErrorTypeFile ErrorType = "file"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsFatal returns true if the error must abort the run before any
// per-item work. Everything else is counted at the item boundary.
func IsFatal(err error) bool {
	return IsType(err, ErrorTypeConfig)
}

// IsNotFound returns true for the expected missing-key outcome
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
