package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input shape errors
	ErrParse        = errors.New("parse error")
	ErrType         = errors.New("type error")
	ErrMissingField = errors.New("missing field")

	// Argument errors
	ErrInvalidPolicy    = errors.New("invalid outlier policy")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Sink errors
	ErrIntegrity = errors.New("integrity constraint violation")
)

// FieldError carries the column and row that produced a domain error.
// Row is -1 when the error is not tied to a single row.
type FieldError struct {
	Kind   error
	Column string
	Row    int
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	msg := e.Kind.Error()
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q", e.Column)
	}
	if e.Row >= 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" value %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// Error constructors with context
func NewParseError(column string, row int, value, reason string) error {
	return &FieldError{Kind: ErrParse, Column: column, Row: row, Value: value, Reason: reason}
}

func NewTypeError(column string, row int, value, reason string) error {
	return &FieldError{Kind: ErrType, Column: column, Row: row, Value: value, Reason: reason}
}

func NewMissingFieldError(column string) error {
	return &FieldError{Kind: ErrMissingField, Column: column, Row: -1}
}

func NewInvalidArgumentError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, reason)
}

func NewInsufficientDataError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, reason)
}

// Error checking helpers
func IsInputError(err error) bool {
	return errors.Is(err, ErrParse) ||
		errors.Is(err, ErrType) ||
		errors.Is(err, ErrMissingField)
}

func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrIntegrity)
}
