// Package instruction provides the core execution engine: units of work
// that validate their input, execute with uniform status/error semantics,
// and compose into larger workflows through sequential, conditional,
// parallel, iterative, and adaptive combinators.
package instruction

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an instruction failure.
type ErrorClass string

const (
	// ErrorClassValidation indicates a validation rule failed or raised,
	// short-circuiting before the instruction body ran.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassExecution indicates the instruction body failed.
	ErrorClassExecution ErrorClass = "execution"

	// ErrorClassComposition indicates a child instruction failed inside a
	// combinator.
	ErrorClassComposition ErrorClass = "composition"
)

// Error represents a classified instruction failure. Failures never
// escape an Execute call; this type is used to build Result.Error
// messages and to report programmer errors at construction time.
type Error struct {
	// Class is the failure classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Instruction is the name of the instruction that failed, if applicable.
	Instruction string `json:"instruction,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Instruction != "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s (instruction=%s): %s", e.Class, e.Message, e.Instruction, e.Err)
		}
		return fmt.Sprintf("[%s] %s (instruction=%s)", e.Class, e.Message, e.Instruction)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// NewValidationError creates a new validation failure.
func NewValidationError(message string, err error) *Error {
	return &Error{Class: ErrorClassValidation, Message: message, Err: err}
}

// NewExecutionError creates a new execution failure.
func NewExecutionError(message string, err error) *Error {
	return &Error{Class: ErrorClassExecution, Message: message, Err: err}
}

// NewCompositionError creates a new composition failure.
func NewCompositionError(message string, err error) *Error {
	return &Error{Class: ErrorClassComposition, Message: message, Err: err}
}

// WithInstruction adds the failing instruction's name to an error.
func (e *Error) WithInstruction(name string) *Error {
	e.Instruction = name
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// IsValidationFailure returns true if the error is a validation failure.
func IsValidationFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassValidation
	}
	return false
}

// IsExecutionFailure returns true if the error is an execution failure.
func IsExecutionFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassExecution
	}
	return false
}

// IsCompositionFailure returns true if the error is a composition failure.
func IsCompositionFailure(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ErrorClassComposition
	}
	return false
}
