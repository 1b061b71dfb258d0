//go:build !windows

package rasapi

import "github.com/yllada/goras/common"

// New reports ErrUnsupportedPlatform: rasapi32 exists only on Windows.
func New(logger common.Logger) (*Service, error) {
	return nil, common.ErrUnsupportedPlatform
}
