package ras

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle is the opaque native identifier of a connection. The zero value
// means "no connection" and is never held by a constructed Connection.
type Handle uintptr

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h == 0
}

// String returns the handle in hexadecimal, e.g. "0x1a2b".
func (h Handle) String() string {
	return fmt.Sprintf("%#x", uintptr(h))
}

// ParseHandle parses a handle written in decimal or in the "0x" form
// returned by String.
func ParseHandle(s string) (Handle, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, strconv.IntSize)
	if err != nil {
		return 0, fmt.Errorf("parse handle %q: %w", s, err)
	}
	return Handle(v), nil
}

// Luid identifies the logon session a connection was established in.
type Luid struct {
	LowPart  uint32
	HighPart int32
}

// IsZero reports whether the identifier is unset.
func (l Luid) IsZero() bool {
	return l.LowPart == 0 && l.HighPart == 0
}

func (l Luid) String() string {
	return fmt.Sprintf("%d:%d", l.HighPart, l.LowPart)
}
