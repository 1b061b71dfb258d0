package rasapi

import (
	"encoding/binary"
	"net"
	"time"
	"unicode/utf16"
	"unsafe"

	"github.com/google/uuid"

	"github.com/yllada/goras/ras"
)

// Buffer sizes from ras.h, including the terminating NUL.
const (
	maxEntryName   = 256 + 1
	maxDeviceType  = 16 + 1
	maxDeviceName  = 128 + 1
	maxPhoneNumber = 128 + 1
	maxPath        = 260
)

// Native error codes.
const (
	errorSuccess           = 0
	errorInvalidHandle     = 6
	errorInvalidPortHandle = 601
	errorBufferTooSmall    = 603
	errorNoConnection      = 668
)

// Tunnel endpoint address families.
const (
	endpointUnknown = 0
	endpointIPv4    = 1
	endpointIPv6    = 2
)

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

type luid struct {
	LowPart  uint32
	HighPart int32
}

// rasConn mirrors RASCONNW (WINVER >= 0x601).
type rasConn struct {
	Size          uint32
	Handle        uintptr
	EntryName     [maxEntryName]uint16
	DeviceType    [maxDeviceType]uint16
	DeviceName    [maxDeviceName]uint16
	PhoneBook     [maxPath]uint16
	SubEntry      uint32
	EntryID       guid
	Flags         uint32
	SessionID     luid
	CorrelationID guid
}

type tunnelEndpoint struct {
	Type uint32
	Addr [16]byte
}

// rasConnStatus mirrors RASCONNSTATUSW (WINVER >= 0x601).
type rasConnStatus struct {
	Size           uint32
	State          uint32
	Error          uint32
	DeviceType     [maxDeviceType]uint16
	DeviceName     [maxDeviceName]uint16
	PhoneNumber    [maxPhoneNumber]uint16
	LocalEndpoint  tunnelEndpoint
	RemoteEndpoint tunnelEndpoint
	SubState       uint32
}

// rasStats mirrors RAS_STATS.
type rasStats struct {
	Size                  uint32
	BytesXmited           uint32
	BytesRcved            uint32
	FramesXmited          uint32
	FramesRcved           uint32
	CrcErr                uint32
	TimeoutErr            uint32
	AlignmentErr          uint32
	HardwareOverrunErr    uint32
	FramingErr            uint32
	BufferOverrunErr      uint32
	CompressionRatioIn    uint32
	CompressionRatioOut   uint32
	Bps                   uint32
	ConnectDurationMillis uint32
}

var (
	rasConnSize       = uint32(unsafe.Sizeof(rasConn{}))
	rasConnStatusSize = uint32(unsafe.Sizeof(rasConnStatus{}))
	rasStatsSize      = uint32(unsafe.Sizeof(rasStats{}))
)

// nativeAPI is the set of rasapi32 entry points used by Service. Every
// method returns the native result code.
type nativeAPI interface {
	enumConnections(buf []rasConn, cb *uint32, count *uint32) uint32
	getConnectStatus(h uintptr, status *rasConnStatus) uint32
	getConnectionStatistics(h uintptr, stats *rasStats) uint32
	clearConnectionStatistics(h uintptr) uint32
	hangUp(h uintptr) uint32
	errorString(code uint32) string
}

func utf16ToString(s []uint16) string {
	for i, v := range s {
		if v == 0 {
			s = s[:i]
			break
		}
	}
	return string(utf16.Decode(s))
}

func (g guid) uuid() uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], g.Data1)
	binary.BigEndian.PutUint16(u[4:6], g.Data2)
	binary.BigEndian.PutUint16(u[6:8], g.Data3)
	copy(u[8:], g.Data4[:])
	return u
}

func (e tunnelEndpoint) ip() net.IP {
	switch e.Type {
	case endpointIPv4:
		return net.IPv4(e.Addr[0], e.Addr[1], e.Addr[2], e.Addr[3]).To4()
	case endpointIPv6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, e.Addr[:])
		return ip
	default:
		return nil
	}
}

func (rc *rasConn) params() ras.ConnectionParams {
	return ras.ConnectionParams{
		Handle: ras.Handle(rc.Handle),
		Device: &ras.Device{
			Name: utf16ToString(rc.DeviceName[:]),
			Type: ras.ParseDeviceType(utf16ToString(rc.DeviceType[:])),
		},
		EntryName:     utf16ToString(rc.EntryName[:]),
		PhoneBookPath: utf16ToString(rc.PhoneBook[:]),
		EntryID:       rc.EntryID.uuid(),
		Options:       ras.NewConnectionOptions(ras.ConnectionFlags(rc.Flags)),
		SessionID:     ras.Luid{LowPart: rc.SessionID.LowPart, HighPart: rc.SessionID.HighPart},
		CorrelationID: rc.CorrelationID.uuid(),
	}
}

func (st *rasConnStatus) status() *ras.ConnectionStatus {
	return &ras.ConnectionStatus{
		State:     ras.ConnectionState(st.State),
		ErrorCode: st.Error,
		Device: &ras.Device{
			Name: utf16ToString(st.DeviceName[:]),
			Type: ras.ParseDeviceType(utf16ToString(st.DeviceType[:])),
		},
		PhoneNumber:    utf16ToString(st.PhoneNumber[:]),
		LocalEndpoint:  st.LocalEndpoint.ip(),
		RemoteEndpoint: st.RemoteEndpoint.ip(),
	}
}

func (s *rasStats) statistics() *ras.ConnectionStatistics {
	return &ras.ConnectionStatistics{
		BytesTransmitted:      uint64(s.BytesXmited),
		BytesReceived:         uint64(s.BytesRcved),
		FramesTransmitted:     uint64(s.FramesXmited),
		FramesReceived:        uint64(s.FramesRcved),
		CrcErrors:             uint64(s.CrcErr),
		TimeoutErrors:         uint64(s.TimeoutErr),
		AlignmentErrors:       uint64(s.AlignmentErr),
		HardwareOverrunErrors: uint64(s.HardwareOverrunErr),
		FramingErrors:         uint64(s.FramingErr),
		BufferOverrunErrors:   uint64(s.BufferOverrunErr),
		CompressionRatioIn:    uint64(s.CompressionRatioIn),
		CompressionRatioOut:   uint64(s.CompressionRatioOut),
		LinkSpeed:             uint64(s.Bps),
		ConnectionDuration:    time.Duration(s.ConnectDurationMillis) * time.Millisecond,
	}
}
