package ras

import (
	"strings"

	"github.com/yllada/goras/common"
)

// DeviceType is the kind of device a connection was made through.
type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeModem
	DeviceTypeIsdn
	DeviceTypeX25
	DeviceTypeVpn
	DeviceTypePad
	DeviceTypeGeneric
	DeviceTypeSerial
	DeviceTypeFrameRelay
	DeviceTypeAtm
	DeviceTypeSonet
	DeviceTypeSwitchedWan
	DeviceTypeIrda
	DeviceTypeParallel
	DeviceTypePPPoE
	DeviceTypeWireguard
	DeviceTypeMobileBroadband
)

var deviceTypeNames = map[DeviceType]string{
	DeviceTypeUnknown:         "unknown",
	DeviceTypeModem:           "modem",
	DeviceTypeIsdn:            "isdn",
	DeviceTypeX25:             "x25",
	DeviceTypeVpn:             "vpn",
	DeviceTypePad:             "pad",
	DeviceTypeGeneric:         "generic",
	DeviceTypeSerial:          "serial",
	DeviceTypeFrameRelay:      "framerelay",
	DeviceTypeAtm:             "atm",
	DeviceTypeSonet:           "sonet",
	DeviceTypeSwitchedWan:     "sw56",
	DeviceTypeIrda:            "irda",
	DeviceTypeParallel:        "parallel",
	DeviceTypePPPoE:           "pppoe",
	DeviceTypeWireguard:       "wireguard",
	DeviceTypeMobileBroadband: "mobile-broadband",
}

// deviceTypeAliases maps names used by backends which have no dedicated
// variant of their own.
var deviceTypeAliases = map[string]DeviceType{
	"gsm":  DeviceTypeMobileBroadband,
	"cdma": DeviceTypeMobileBroadband,
	"adsl": DeviceTypePPPoE,
}

// String returns the lower-case native name of the device type.
func (t DeviceType) String() string {
	if name, ok := deviceTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the type by name.
func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseDeviceType maps a native device-type string ("modem", "vpn",
// "PPPoE", ...) to a DeviceType. Matching ignores case; unrecognised names
// yield DeviceTypeUnknown.
func ParseDeviceType(s string) DeviceType {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range deviceTypeNames {
		if name == s {
			return t
		}
	}
	if t, ok := deviceTypeAliases[s]; ok {
		return t
	}
	return DeviceTypeUnknown
}

// Device describes the device a connection was established through.
type Device struct {
	Name string     `json:"name"`
	Type DeviceType `json:"type"`
}

// NewDevice returns a device descriptor. The name must not be blank.
func NewDevice(name string, deviceType DeviceType) (*Device, error) {
	if common.IsBlank(name) {
		return nil, &ArgumentError{Field: "name"}
	}
	return &Device{Name: name, Type: deviceType}, nil
}

func (d *Device) String() string {
	if d == nil {
		return ""
	}
	return d.Name + " (" + d.Type.String() + ")"
}
