package ras

import (
	"fmt"
	"net"
)

// ConnectionState is the native state of a connection. The values match
// the RASCONNSTATE enumeration.
type ConnectionState uint32

const (
	StateOpenPort ConnectionState = iota
	StatePortOpened
	StateConnectDevice
	StateDeviceConnected
	StateAllDevicesConnected
	StateAuthenticate
	StateAuthNotify
	StateAuthRetry
	StateAuthCallback
	StateAuthChangePassword
	StateAuthProject
	StateAuthLinkSpeed
	StateAuthAck
	StateReAuthenticate
	StateAuthenticated
	StatePrepareForCallback
	StateWaitForModemReset
	StateWaitForCallback
	StateProjected
	StateStartAuthentication
	StateCallbackComplete
	StateLogonNetwork
	StateSubEntryConnected
	StateSubEntryDisconnected
	StateApplySettings
)

const (
	statePaused = 0x1000
	stateDone   = 0x2000
)

const (
	StateInteractive ConnectionState = statePaused + iota
	StateRetryAuthentication
	StateCallbackSetByCaller
	StatePasswordExpired
	StateInvokeEapUI
)

const (
	StateConnected ConnectionState = stateDone + iota
	StateDisconnected
)

var stateNames = map[ConnectionState]string{
	StateOpenPort:             "OpenPort",
	StatePortOpened:           "PortOpened",
	StateConnectDevice:        "ConnectDevice",
	StateDeviceConnected:      "DeviceConnected",
	StateAllDevicesConnected:  "AllDevicesConnected",
	StateAuthenticate:         "Authenticate",
	StateAuthNotify:           "AuthNotify",
	StateAuthRetry:            "AuthRetry",
	StateAuthCallback:         "AuthCallback",
	StateAuthChangePassword:   "AuthChangePassword",
	StateAuthProject:          "AuthProject",
	StateAuthLinkSpeed:        "AuthLinkSpeed",
	StateAuthAck:              "AuthAck",
	StateReAuthenticate:       "ReAuthenticate",
	StateAuthenticated:        "Authenticated",
	StatePrepareForCallback:   "PrepareForCallback",
	StateWaitForModemReset:    "WaitForModemReset",
	StateWaitForCallback:      "WaitForCallback",
	StateProjected:            "Projected",
	StateStartAuthentication:  "StartAuthentication",
	StateCallbackComplete:     "CallbackComplete",
	StateLogonNetwork:         "LogonNetwork",
	StateSubEntryConnected:    "SubEntryConnected",
	StateSubEntryDisconnected: "SubEntryDisconnected",
	StateApplySettings:        "ApplySettings",
	StateInteractive:          "Interactive",
	StateRetryAuthentication:  "RetryAuthentication",
	StateCallbackSetByCaller:  "CallbackSetByCaller",
	StatePasswordExpired:      "PasswordExpired",
	StateInvokeEapUI:          "InvokeEapUI",
	StateConnected:            "Connected",
	StateDisconnected:         "Disconnected",
}

// String returns the name of the state.
func (s ConnectionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// IsPaused reports whether the connection is waiting for the caller.
func (s ConnectionState) IsPaused() bool {
	return s&statePaused != 0 && s&stateDone == 0
}

// IsDone reports whether the state is terminal (connected or disconnected).
func (s ConnectionState) IsDone() bool {
	return s&stateDone != 0
}

// ConnectionStatus is a point-in-time status of a connection.
type ConnectionStatus struct {
	State ConnectionState `json:"state"`

	// ErrorCode is the native error reported for the connection, zero if none.
	ErrorCode    uint32 `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Device      *Device `json:"device,omitempty"`
	PhoneNumber string  `json:"phone_number,omitempty"`

	// Endpoints are only reported for tunnelled (VPN) connections.
	LocalEndpoint  net.IP `json:"local_endpoint,omitempty"`
	RemoteEndpoint net.IP `json:"remote_endpoint,omitempty"`
}

// MarshalText lets the state serialise by name in JSON output.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
