// Package errors defines the sentinel errors shared across the index engine
// and a typed AppError that records which operation and path failed.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("path not found")
	ErrUnreadable    = errors.New("unreadable input")
	ErrQueueShutdown = errors.New("work queue is shut down")
	ErrInternal      = errors.New("internal error")
)

// Exit codes returned by the CLI for each error class.
const (
	ExitOK           = 0
	ExitInternal     = 1
	ExitInvalidInput = 2
	ExitNotFound     = 3
	ExitUnreadable   = 4
)

type AppError struct {
	Err     error
	Op      string
	Path    string
	Message string
}

func (e *AppError) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, op string, path string, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Op:      op,
		Path:    path,
		Message: message,
	}
}

func Newf(sentinel error, op string, path string, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Op:      op,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrUnreadable):
		return ExitUnreadable
	default:
		return ExitInternal
	}
}
