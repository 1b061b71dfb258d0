package rasapi

import (
	"fmt"

	"github.com/yllada/goras/common"
)

// Error is a failed rasapi32 call.
type Error struct {
	Op      string
	Code    uint32
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed: error %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed: %s (error %d)", e.Op, e.Message, e.Code)
}

// Unwrap maps codes meaning the handle is gone onto
// common.ErrConnectionTerminated.
func (e *Error) Unwrap() error {
	if isTerminated(e.Code) {
		return common.ErrConnectionTerminated
	}
	return nil
}

func isTerminated(code uint32) bool {
	switch code {
	case errorInvalidHandle, errorInvalidPortHandle, errorNoConnection:
		return true
	}
	return false
}
