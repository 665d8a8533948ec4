package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the case loader and the metric registry.
var (
	// ErrInvalidCase is returned when a case description cannot be decoded.
	ErrInvalidCase = errors.New("invalid case")
	// ErrUnknownMetric is returned when no metric is registered under a name.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrUnknownEntity is returned when a class references an entity the case does not declare.
	ErrUnknownEntity = errors.New("unknown entity")
)

// Error represents an error raised while preparing inputs for a search,
// carrying the operation and component it came from.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	switch {
	case e.Component != "" && e.Op != "":
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	case e.Component != "":
		prefix = e.Component
	case e.Op != "":
		prefix = e.Op
	}

	msg := e.Message
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewErrorf creates a new error with a formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// AsError reports whether err is, or wraps, an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
