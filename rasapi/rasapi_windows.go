//go:build windows

package rasapi

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/yllada/goras/common"
)

var (
	modrasapi32 = windows.NewLazySystemDLL("rasapi32.dll")

	procRasEnumConnectionsW          = modrasapi32.NewProc("RasEnumConnectionsW")
	procRasGetConnectStatusW         = modrasapi32.NewProc("RasGetConnectStatusW")
	procRasGetConnectionStatistics   = modrasapi32.NewProc("RasGetConnectionStatistics")
	procRasClearConnectionStatistics = modrasapi32.NewProc("RasClearConnectionStatistics")
	procRasHangUpW                   = modrasapi32.NewProc("RasHangUpW")
	procRasGetErrorStringW           = modrasapi32.NewProc("RasGetErrorStringW")
)

// New loads rasapi32.dll and returns the backend.
func New(logger common.Logger) (*Service, error) {
	if err := modrasapi32.Load(); err != nil {
		return nil, common.WrapError(common.ErrUnsupportedPlatform, err.Error())
	}
	return newService(procAPI{}, logger), nil
}

type procAPI struct{}

func (procAPI) enumConnections(buf []rasConn, cb *uint32, count *uint32) uint32 {
	r, _, _ := procRasEnumConnectionsW.Call(
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(cb)),
		uintptr(unsafe.Pointer(count)),
	)
	return uint32(r)
}

func (procAPI) getConnectStatus(h uintptr, status *rasConnStatus) uint32 {
	r, _, _ := procRasGetConnectStatusW.Call(h, uintptr(unsafe.Pointer(status)))
	return uint32(r)
}

func (procAPI) getConnectionStatistics(h uintptr, stats *rasStats) uint32 {
	r, _, _ := procRasGetConnectionStatistics.Call(h, uintptr(unsafe.Pointer(stats)))
	return uint32(r)
}

func (procAPI) clearConnectionStatistics(h uintptr) uint32 {
	r, _, _ := procRasClearConnectionStatistics.Call(h)
	return uint32(r)
}

func (procAPI) hangUp(h uintptr) uint32 {
	r, _, _ := procRasHangUpW.Call(h)
	return uint32(r)
}

func (procAPI) errorString(code uint32) string {
	buf := make([]uint16, 512)
	r, _, _ := procRasGetErrorStringW.Call(
		uintptr(code),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
	)
	if r != 0 {
		return windows.Errno(code).Error()
	}
	return windows.UTF16ToString(buf)
}
