package ras

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) EnumerateConnections() ([]*Connection, error) {
	args := m.Called()
	conns, _ := args.Get(0).([]*Connection)
	return conns, args.Error(1)
}

func (m *mockBackend) GetConnectionStatus(conn *Connection) (*ConnectionStatus, error) {
	args := m.Called(conn)
	status, _ := args.Get(0).(*ConnectionStatus)
	return status, args.Error(1)
}

func (m *mockBackend) GetConnectionStatistics(conn *Connection) (*ConnectionStatistics, error) {
	args := m.Called(conn)
	stats, _ := args.Get(0).(*ConnectionStatistics)
	return stats, args.Error(1)
}

func (m *mockBackend) ClearConnectionStatistics(conn *Connection) error {
	return m.Called(conn).Error(0)
}

func (m *mockBackend) HangUp(ctx context.Context, conn *Connection, closeAllReferences bool) error {
	return m.Called(ctx, conn, closeAllReferences).Error(0)
}

func testParams(h Handle) ConnectionParams {
	return ConnectionParams{
		Handle:        h,
		Device:        &Device{Name: "WAN Miniport (IKEv2)", Type: DeviceTypeVpn},
		EntryName:     "Office VPN",
		PhoneBookPath: `C:\ProgramData\Microsoft\Network\Connections\Pbk\rasphone.pbk`,
		EntryID:       uuid.MustParse("6f1b8a4e-6f2a-4b65-9b0e-0c1f4d8a2e11"),
		Options:       NewConnectionOptions(FlagOwnerKnown | FlagOwnerMatch),
		SessionID:     Luid{LowPart: 0x3e7},
		CorrelationID: uuid.MustParse("0d7f6c2a-1b3e-4c5d-8e9f-a0b1c2d3e4f5"),
	}
}

func newTestConnection(h Handle, b *mockBackend) *Connection {
	c, err := NewConnection(testParams(h), ServicesOf(b))
	if err != nil {
		panic(err)
	}
	return c
}
