// Package common provides shared constants, types, and utilities
// used across goras.
package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote access operations.
// These can be checked with errors.Is() for proper error handling.
var (
	// Construction errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// Live connection errors.
	ErrConnectionTerminated = errors.New("connection has been terminated")
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrCancelled            = errors.New("operation cancelled")

	// Composition errors.
	ErrServiceNotRegistered = errors.New("service not registered")
	ErrUnsupportedPlatform  = errors.New("remote access backend not available on this platform")

	// Configuration errors.
	ErrConfigLoad = errors.New("failed to load configuration")
	ErrConfigSave = errors.New("failed to save configuration")
)

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}

// Cancelled returns an error matching both ErrCancelled and cause.
// cause is normally ctx.Err().
func Cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
