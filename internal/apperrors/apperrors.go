// internal/apperrors/apperrors.go
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary. Handlers map kinds to
// status codes exactly once; services never touch HTTP concepts.
type Kind string

const (
	// KindClient covers caller and business-rule violations ("order does
	// not exist", "marketplace already confirmed").
	KindClient Kind = "client"
	// KindConflict covers a valid request against the wrong current state
	// ("pending transaction exists").
	KindConflict Kind = "conflict"
	// KindValidation covers malformed input, rejected before any I/O.
	KindValidation Kind = "validation"
	// KindInternal covers invariant breaches and infrastructure failures.
	// These signal data corruption or bugs, never a business outcome, and
	// must abort the unit of work that observed them.
	KindInternal Kind = "internal"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewClient(message string) *Error {
	return &Error{Kind: KindClient, Message: message}
}

func NewConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewValidation(message string, fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func NewInternal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

func WrapInternal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, treating anything that is not an
// apperrors.Error as internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
