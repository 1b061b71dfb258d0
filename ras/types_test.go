package ras

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	assert.True(t, Handle(0).IsZero())
	assert.False(t, Handle(1).IsZero())
	assert.Equal(t, "0x2a", Handle(42).String())

	tests := []struct {
		in      string
		want    Handle
		wantErr bool
	}{
		{"0x2a", 42, false},
		{"42", 42, false},
		{" 7 ", 7, false},
		{"vpn", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHandle(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLuid(t *testing.T) {
	assert.True(t, Luid{}.IsZero())
	l := Luid{LowPart: 999, HighPart: 1}
	assert.False(t, l.IsZero())
	assert.Equal(t, "1:999", l.String())
}

func TestParseDeviceType(t *testing.T) {
	tests := map[string]DeviceType{
		"modem":     DeviceTypeModem,
		"VPN":       DeviceTypeVpn,
		"PPPoE":     DeviceTypePPPoE,
		"sw56":      DeviceTypeSwitchedWan,
		"gsm":       DeviceTypeMobileBroadband,
		"wireguard": DeviceTypeWireguard,
		"adsl":      DeviceTypePPPoE,
		"toaster":   DeviceTypeUnknown,
		"":          DeviceTypeUnknown,
	}
	for in, want := range tests {
		assert.Equalf(t, want, ParseDeviceType(in), "ParseDeviceType(%q)", in)
	}
}

func TestNewDevice(t *testing.T) {
	d, err := NewDevice("WAN Miniport (PPPOE)", DeviceTypePPPoE)
	require.NoError(t, err)
	assert.Equal(t, "WAN Miniport (PPPOE) (pppoe)", d.String())

	_, err = NewDevice("  ", DeviceTypeModem)
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "name", argErr.Field)
}

func TestConnectionOptions(t *testing.T) {
	o := NewConnectionOptions(FlagAllUsers | FlagOwnerMatch)
	assert.True(t, o.AllUsers())
	assert.False(t, o.GlobalCredentials())
	assert.False(t, o.OwnerKnown())
	assert.True(t, o.OwnerMatch())
	assert.Equal(t, "all-users,owner-match", o.String())
	assert.Equal(t, "none", NewConnectionOptions(0).String())
}

func TestConnectionState(t *testing.T) {
	assert.Equal(t, "Connected", StateConnected.String())
	assert.Equal(t, "ApplySettings", StateApplySettings.String())
	assert.Equal(t, "State(99)", ConnectionState(99).String())
	assert.Equal(t, ConnectionState(0x2001), StateDisconnected)
	assert.Equal(t, ConnectionState(0x1004), StateInvokeEapUI)

	assert.True(t, StatePasswordExpired.IsPaused())
	assert.False(t, StateConnected.IsPaused())
	assert.True(t, StateDisconnected.IsDone())
	assert.False(t, StateAuthenticate.IsDone())
}

func TestConnectionStatusJSON(t *testing.T) {
	s := ConnectionStatus{
		State:  StateConnected,
		Device: &Device{Name: "WAN Miniport (SSTP)", Type: DeviceTypeVpn},
	}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"Connected","device":{"name":"WAN Miniport (SSTP)","type":"vpn"}}`, string(data))
}

func TestTotalErrors(t *testing.T) {
	s := &ConnectionStatistics{CrcErrors: 1, TimeoutErrors: 2, FramingErrors: 3, BufferOverrunErrors: 4}
	assert.Equal(t, uint64(10), s.TotalErrors())
}
