// Package backend selects the native remote access backend for the host
// and registers it in a ras.Locator.
package backend

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/nm"
	"github.com/yllada/goras/ras"
	"github.com/yllada/goras/rasapi"
)

// Factory creates a backend.
type Factory func(logger common.Logger) (ras.Backend, error)

// factories maps backend names to constructors. Tests replace entries.
var factories = map[string]Factory{
	common.BackendRasAPI: func(logger common.Logger) (ras.Backend, error) {
		s, err := rasapi.New(logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
	common.BackendNetworkManager: func(logger common.Logger) (ras.Backend, error) {
		s, err := nm.New(logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	},
}

// Resolve maps "auto" to the backend of the running operating system.
func Resolve(name string) string {
	if name != common.BackendAuto && name != "" {
		return name
	}
	if runtime.GOOS == "windows" {
		return common.BackendRasAPI
	}
	return common.BackendNetworkManager
}

// Open creates the named backend ("auto" picks one for the host).
func Open(name string, logger common.Logger) (ras.Backend, error) {
	name = Resolve(name)
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", common.ErrInvalidArgument, name)
	}

	b, err := factory(logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", name, err)
	}
	common.LoggerOrDefault(logger).Debug("Using %s backend", name)
	return b, nil
}

// Install opens the named backend, registers it in a new locator and makes
// that locator the process default. The returned closer releases the
// backend; it also resets the default locator.
func Install(name string, logger common.Logger) (*ras.Locator, io.Closer, error) {
	b, err := Open(name, logger)
	if err != nil {
		return nil, nil, err
	}

	loc := ras.NewLocator()
	ras.RegisterBackend(loc, b)
	ras.SetDefaultLocator(loc)
	return loc, &installed{backend: b}, nil
}

type installed struct {
	backend ras.Backend
}

func (i *installed) Close() error {
	ras.ResetDefaultLocator()
	if c, ok := i.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// IsUnsupported reports whether err means no backend is available on
// this host.
func IsUnsupported(err error) bool {
	return errors.Is(err, common.ErrUnsupportedPlatform)
}
