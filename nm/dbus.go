package nm

import (
	"errors"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

// D-Bus names used by the backend.
const (
	busName = "org.freedesktop.NetworkManager"

	nmPath               = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	activeConnectionBase = "/org/freedesktop/NetworkManager/ActiveConnection/"

	nmInterface               = "org.freedesktop.NetworkManager"
	activeConnectionInterface = "org.freedesktop.NetworkManager.Connection.Active"
	deviceInterface           = "org.freedesktop.NetworkManager.Device"
	statisticsInterface       = "org.freedesktop.NetworkManager.Device.Statistics"
	ip4ConfigInterface        = "org.freedesktop.NetworkManager.IP4Config"

	methodDeactivateConnection = nmInterface + ".DeactivateConnection"

	vpnConnectionType = "vpn"
)

// D-Bus error names meaning the object is gone.
var terminatedErrorNames = []string{
	"org.freedesktop.DBus.Error.UnknownObject",
	"org.freedesktop.DBus.Error.UnknownMethod",
	"org.freedesktop.NetworkManager.ConnectionNotActive",
}

// NMActiveConnectionState values.
const (
	activeStateUnknown      = 0
	activeStateActivating   = 1
	activeStateActivated    = 2
	activeStateDeactivating = 3
	activeStateDeactivated  = 4
)

// remoteAccessTypes are the connection types treated as remote access
// connections, mapped onto device types.
var remoteAccessTypes = map[string]ras.DeviceType{
	"vpn":       ras.DeviceTypeVpn,
	"wireguard": ras.DeviceTypeWireguard,
	"pppoe":     ras.DeviceTypePPPoE,
	"adsl":      ras.DeviceTypePPPoE,
	"gsm":       ras.DeviceTypeMobileBroadband,
	"cdma":      ras.DeviceTypeMobileBroadband,
	"bluetooth": ras.DeviceTypeModem,
}

// Bus is the subset of *dbus.Conn used by the backend.
type Bus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

func handleFromPath(p dbus.ObjectPath) (ras.Handle, error) {
	s := string(p)
	if !strings.HasPrefix(s, activeConnectionBase) {
		return 0, fmt.Errorf("not an active connection path: %s", s)
	}
	n, err := strconv.ParseUint(path.Base(s), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("not an active connection path: %s", s)
	}
	return ras.Handle(n), nil
}

func pathFromHandle(h ras.Handle) dbus.ObjectPath {
	return dbus.ObjectPath(activeConnectionBase + strconv.FormatUint(uint64(h), 10))
}

func stateFromActive(state uint32) ras.ConnectionState {
	switch state {
	case activeStateActivating:
		return ras.StateConnectDevice
	case activeStateActivated:
		return ras.StateConnected
	case activeStateDeactivating, activeStateDeactivated:
		return ras.StateDisconnected
	default:
		return ras.StateOpenPort
	}
}

func dbusErrorName(err error) string {
	var e dbus.Error
	if errors.As(err, &e) {
		return e.Name
	}
	var pe *dbus.Error
	if errors.As(err, &pe) && pe != nil {
		return pe.Name
	}
	return ""
}

// isGone reports whether err is a D-Bus error for a vanished object.
func isGone(err error) bool {
	return common.StringInSlice(dbusErrorName(err), terminatedErrorNames)
}

// mapError maps D-Bus errors for vanished objects onto
// common.ErrConnectionTerminated.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isGone(err) {
		return fmt.Errorf("%s: %w: %w", op, common.ErrConnectionTerminated, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func getString(obj dbus.BusObject, prop string) (string, error) {
	v, err := obj.GetProperty(prop)
	if err != nil {
		return "", err
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("property %s: unexpected type %s", prop, v.Signature())
	}
	return s, nil
}

func getUint32(obj dbus.BusObject, prop string) (uint32, error) {
	v, err := obj.GetProperty(prop)
	if err != nil {
		return 0, err
	}
	n, ok := v.Value().(uint32)
	if !ok {
		return 0, fmt.Errorf("property %s: unexpected type %s", prop, v.Signature())
	}
	return n, nil
}

func getUint64(obj dbus.BusObject, prop string) (uint64, error) {
	v, err := obj.GetProperty(prop)
	if err != nil {
		return 0, err
	}
	n, ok := v.Value().(uint64)
	if !ok {
		return 0, fmt.Errorf("property %s: unexpected type %s", prop, v.Signature())
	}
	return n, nil
}

func getPath(obj dbus.BusObject, prop string) (dbus.ObjectPath, error) {
	v, err := obj.GetProperty(prop)
	if err != nil {
		return "", err
	}
	p, ok := v.Value().(dbus.ObjectPath)
	if !ok {
		return "", fmt.Errorf("property %s: unexpected type %s", prop, v.Signature())
	}
	return p, nil
}

func getPaths(obj dbus.BusObject, prop string) ([]dbus.ObjectPath, error) {
	v, err := obj.GetProperty(prop)
	if err != nil {
		return nil, err
	}
	ps, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("property %s: unexpected type %s", prop, v.Signature())
	}
	return ps, nil
}

// firstAddress returns the first address of an IP4Config AddressData
// property, nil if there is none.
func firstAddress(obj dbus.BusObject) net.IP {
	v, err := obj.GetProperty(ip4ConfigInterface + ".AddressData")
	if err != nil {
		return nil
	}
	data, ok := v.Value().([]map[string]dbus.Variant)
	if !ok || len(data) == 0 {
		return nil
	}
	addr, ok := data[0]["address"].Value().(string)
	if !ok {
		return nil
	}
	return net.ParseIP(addr)
}

func isNullPath(p dbus.ObjectPath) bool {
	return p == "" || p == "/"
}
