// Package errors provides service-level errors carrying the operation,
// component and call stack they were raised from.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error represents an error with context and stack trace.
type Error struct {
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)

	if e.Operation != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString("operation=")
		b.WriteString(e.Operation)
	}
	if e.Component != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString("component=")
		b.WriteString(e.Component)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation sets the operation.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent sets the component.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// New creates a new error with a message.
func New(msg string) *Error {
	return &Error{Message: msg, Stack: stackTrace()}
}

// Errorf creates a new error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Stack: stackTrace()}
}

// Wrap wraps err with a message. It returns nil if err is nil.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Err: err, Message: msg, Stack: stackTrace()}
}

// stackTrace skips runtime.Callers, stackTrace and the constructor.
func stackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}
	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
