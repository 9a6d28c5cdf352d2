// Package errors carries coded infrastructure errors and maps any error the
// pipeline returns to a code and a process exit status.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"salesprobe/domain/core"
)

// Code classifies an error for logs and exit status.
type Code string

const (
	CodeConfigInvalid    Code = "CONFIG_INVALID"
	CodeDatabaseError    Code = "DATABASE_ERROR"
	CodeIOError          Code = "IO_ERROR"
	CodeInternalError    Code = "INTERNAL_ERROR"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInsufficientData Code = "INSUFFICIENT_DATA"
	CodeIntegrity        Code = "INTEGRITY"
	CodeCanceled         Code = "CANCELED"
	CodeUnknown          Code = "UNKNOWN"
)

// AppError is an infrastructure error (config, database, files) with a code.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap adds context to err. A wrapped AppError keeps its code; anything else
// becomes internal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	code := CodeInternalError
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		code = appErr.Code
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode tags err with a code without changing its message.
func WithCode(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: err.Error(), Cause: err}
}

// GetCode returns the code of the outermost AppError, or CodeUnknown.
func GetCode(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// Classify returns the code of err, falling back to the domain error kinds for
// errors that carry no AppError.
func Classify(err error) Code {
	if code := GetCode(err); code != CodeUnknown {
		return code
	}
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case core.IsInputError(err):
		return CodeInvalidInput
	case stderrors.Is(err, core.ErrInvalidArgument), stderrors.Is(err, core.ErrInvalidPolicy):
		return CodeInvalidArgument
	case stderrors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	case core.IsIntegrityError(err):
		return CodeIntegrity
	}
	return CodeUnknown
}

var exitCodes = map[Code]int{
	CodeConfigInvalid:    2,
	CodeInvalidInput:     3,
	CodeInvalidArgument:  3,
	CodeInsufficientData: 4,
	CodeIOError:          5,
	CodeDatabaseError:    6,
	CodeIntegrity:        6,
	CodeCanceled:         130,
}

// ExitCode maps err to a process exit status: 0 for nil, 1 when unclassified.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[Classify(err)]; ok {
		return code
	}
	return 1
}

func ConfigInvalid(message string) *AppError {
	return &AppError{Code: CodeConfigInvalid, Message: message}
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func IOError(message string, cause error) *AppError {
	return &AppError{Code: CodeIOError, Message: message, Cause: cause}
}
