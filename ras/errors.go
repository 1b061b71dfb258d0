package ras

import (
	"fmt"

	"github.com/yllada/goras/common"
)

// Common errors - re-exported from common package for convenience.
var (
	ErrInvalidArgument      = common.ErrInvalidArgument
	ErrConnectionTerminated = common.ErrConnectionTerminated
	ErrConnectionNotFound   = common.ErrConnectionNotFound
	ErrCancelled            = common.ErrCancelled
	ErrServiceNotRegistered = common.ErrServiceNotRegistered
)

// ArgumentError reports a missing or malformed constructor argument.
// It matches ErrInvalidArgument with errors.Is.
type ArgumentError struct {
	Field string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s is required", ErrInvalidArgument, e.Field)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
