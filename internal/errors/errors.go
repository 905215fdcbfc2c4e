// Package errors provides panic recovery and error aggregation helpers used
// at the loop and shutdown boundaries.
package errors

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// PanicError wraps a value recovered from a panic together with the stack
// trace captured at the point of recovery.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover runs fn and converts any panic into a *PanicError.
// Errors returned by fn are passed through unchanged.
func Recover(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, StackTrace: string(debug.Stack())}
		}
	}()
	return fn()
}

// TransientError marks a failure that is expected to clear up on its own
// (a timed-out shutdown step, a missing repository).
type TransientError struct {
	Op  string
	Err error
}

// NewTransientError wraps err as a transient failure of op.
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err or anything it wraps is a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// MultiError collects several errors into one.
type MultiError struct {
	Errors []error
}

// Append adds err to the collection. Nil errors are ignored.
func (m *MultiError) Append(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(m.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// ErrorOrNil returns nil when nothing was collected, otherwise the MultiError.
func (m *MultiError) ErrorOrNil() error {
	if m == nil || len(m.Errors) == 0 {
		return nil
	}
	return m
}
