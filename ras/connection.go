package ras

import (
	"context"
	"encoding/binary"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/yllada/goras/common"
)

// Conn is the behaviour of an established connection. *Connection is the
// implementation returned by the backends; consumers depend on Conn so that
// alternates can be substituted in tests.
type Conn interface {
	Handle() Handle
	Device() *Device
	EntryName() string
	PhoneBookPath() string
	EntryID() uuid.UUID
	Options() *ConnectionOptions
	SessionID() Luid
	CorrelationID() uuid.UUID

	GetStatus() (*ConnectionStatus, error)
	GetStatistics() (*ConnectionStatistics, error)
	ClearStatistics() error
	Disconnect() error
	DisconnectContext(ctx context.Context) error
	DisconnectWithReferences(ctx context.Context, closeAllReferences bool) error
}

var _ Conn = (*Connection)(nil)

// ConnectionParams holds the descriptive fields of a connection.
type ConnectionParams struct {
	Handle        Handle
	Device        *Device
	EntryName     string
	PhoneBookPath string
	// EntryID may be uuid.Nil.
	EntryID   uuid.UUID
	Options   *ConnectionOptions
	SessionID Luid
	// CorrelationID may be uuid.Nil.
	CorrelationID uuid.UUID
}

// Connection represents one established remote access connection.
// It is immutable after construction; every live operation is delegated to
// the injected services and queries native state afresh.
type Connection struct {
	handle        Handle
	device        *Device
	entryName     string
	phoneBookPath string
	entryID       uuid.UUID
	options       *ConnectionOptions
	sessionID     Luid
	correlationID uuid.UUID

	statusService          StatusGetter
	statisticsService      StatisticsGetter
	clearStatisticsService StatisticsClearer
	hangUpService          HangUpper
}

// NewConnection validates params and services and returns the connection.
// A violation is reported as an *ArgumentError naming the field. A service
// holding a nil pointer counts as missing.
func NewConnection(params ConnectionParams, services Services) (*Connection, error) {
	switch {
	case params.Handle.IsZero():
		return nil, &ArgumentError{Field: "handle"}
	case params.Device == nil:
		return nil, &ArgumentError{Field: "device"}
	case common.IsBlank(params.EntryName):
		return nil, &ArgumentError{Field: "entryName"}
	case common.IsBlank(params.PhoneBookPath):
		return nil, &ArgumentError{Field: "phoneBookPath"}
	case params.Options == nil:
		return nil, &ArgumentError{Field: "options"}
	case isNil(services.Status):
		return nil, &ArgumentError{Field: "statusService"}
	case isNil(services.Statistics):
		return nil, &ArgumentError{Field: "statisticsService"}
	case isNil(services.HangUp):
		return nil, &ArgumentError{Field: "hangUpService"}
	case isNil(services.ClearStatistics):
		return nil, &ArgumentError{Field: "clearStatisticsService"}
	}

	return &Connection{
		handle:                 params.Handle,
		device:                 params.Device,
		entryName:              params.EntryName,
		phoneBookPath:          params.PhoneBookPath,
		entryID:                params.EntryID,
		options:                params.Options,
		sessionID:              params.SessionID,
		correlationID:          params.CorrelationID,
		statusService:          services.Status,
		statisticsService:      services.Statistics,
		clearStatisticsService: services.ClearStatistics,
		hangUpService:          services.HangUp,
	}, nil
}

// Handle returns the native handle.
func (c *Connection) Handle() Handle { return c.handle }

// Device returns the device the connection was established on.
func (c *Connection) Device() *Device { return c.device }

// EntryName returns the name of the entry used to dial the connection.
func (c *Connection) EntryName() string { return c.entryName }

// PhoneBookPath returns the store containing the entry.
func (c *Connection) PhoneBookPath() string { return c.phoneBookPath }

// EntryID returns the unique identifier of the entry.
func (c *Connection) EntryID() uuid.UUID { return c.entryID }

// Options returns the connection flags.
func (c *Connection) Options() *ConnectionOptions { return c.options }

// SessionID returns the logon session the connection belongs to.
func (c *Connection) SessionID() Luid { return c.sessionID }

// CorrelationID returns the identifier used to correlate diagnostic events.
func (c *Connection) CorrelationID() uuid.UUID { return c.correlationID }

// GetStatus queries the current status of the connection.
func (c *Connection) GetStatus() (*ConnectionStatus, error) {
	return c.statusService.GetConnectionStatus(c)
}

// GetStatistics retrieves the accumulated statistics of the connection.
func (c *Connection) GetStatistics() (*ConnectionStatistics, error) {
	return c.statisticsService.GetConnectionStatistics(c)
}

// ClearStatistics resets the native statistics counters.
func (c *Connection) ClearStatistics() error {
	return c.clearStatisticsService.ClearConnectionStatistics(c)
}

// Disconnect hangs up the connection, closing every reference to the handle.
func (c *Connection) Disconnect() error {
	return c.DisconnectContext(context.Background())
}

// DisconnectContext is Disconnect with a cancellation context.
func (c *Connection) DisconnectContext(ctx context.Context) error {
	return c.DisconnectWithReferences(ctx, true)
}

// DisconnectWithReferences hangs up the connection. When closeAllReferences
// is false only the caller's reference to the handle is released.
//
// If ctx is already done the hang-up service is not called and the returned
// error matches both ErrCancelled and ctx.Err().
func (c *Connection) DisconnectWithReferences(ctx context.Context, closeAllReferences bool) error {
	if err := ctx.Err(); err != nil {
		return common.Cancelled(err)
	}
	return c.hangUpService.HangUp(ctx, c, closeAllReferences)
}

// Equal reports whether other is a *Connection with the same handle.
func (c *Connection) Equal(other any) bool {
	if c == nil {
		return false
	}
	o, ok := other.(*Connection)
	if !ok || o == nil {
		return false
	}
	return c.handle == o.handle
}

// Hash returns a hash of the handle. Equal connections hash equally; a nil
// connection hashes to 0.
func (c *Connection) Hash() uint64 {
	if c == nil {
		return 0
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(c.handle))
	return xxhash.Sum64(buf[:])
}

func (c *Connection) String() string {
	return c.entryName + " (" + c.handle.String() + ")"
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Equal compares two connection references: two nil references are equal,
// nil and non-nil are not, otherwise the handles decide.
func Equal(a, b *Connection) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.handle == b.handle
}
