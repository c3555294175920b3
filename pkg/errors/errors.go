// Package errors defines the sentinel errors shared across the search engine
// and an AppError type that carries a process exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnreadablePath = errors.New("unreadable path")
	ErrInvalidSeed    = errors.New("invalid seed url")
	ErrFetchFailed    = errors.New("fetch failed")
	ErrOutputFailed   = errors.New("output failed")
	ErrPoolShutdown   = errors.New("work queue is shut down")
	ErrTaskPanic      = errors.New("task panicked")
)

// Exit codes returned by the CLI.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// ExitCode maps err to the exit code the CLI should terminate with.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidSeed):
		return ExitInvalidInput
	default:
		return ExitFailure
	}
}
