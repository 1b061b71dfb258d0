package ras

import "context"

// StatusGetter queries the current status of a connection.
// It fails with ErrConnectionTerminated when the connection no longer exists.
type StatusGetter interface {
	GetConnectionStatus(conn *Connection) (*ConnectionStatus, error)
}

// StatisticsGetter retrieves the accumulated statistics of a connection.
// It fails with ErrConnectionTerminated when the connection no longer exists.
type StatisticsGetter interface {
	GetConnectionStatistics(conn *Connection) (*ConnectionStatistics, error)
}

// StatisticsClearer resets the native statistics counters of a connection.
// It fails with ErrConnectionTerminated when the connection no longer exists.
type StatisticsClearer interface {
	ClearConnectionStatistics(conn *Connection) error
}

// HangUpper terminates a connection. When closeAllReferences is true every
// reference to the native handle is closed, not only the caller's.
//
// Implementations must return an error matching ErrCancelled and ctx.Err()
// when ctx is done before the hang-up completes.
type HangUpper interface {
	HangUp(ctx context.Context, conn *Connection, closeAllReferences bool) error
}

// ConnectionEnumerator lists the active connections known to the
// operating system. The result is a point-in-time snapshot.
type ConnectionEnumerator interface {
	EnumerateConnections() ([]*Connection, error)
}

// Services bundles the per-connection services a Connection delegates to.
type Services struct {
	Status          StatusGetter
	Statistics      StatisticsGetter
	ClearStatistics StatisticsClearer
	HangUp          HangUpper
}

// Backend is a native implementation of every contract.
type Backend interface {
	ConnectionEnumerator
	StatusGetter
	StatisticsGetter
	StatisticsClearer
	HangUpper
}

// ServicesOf returns the per-connection services of a backend.
func ServicesOf(b Backend) Services {
	return Services{
		Status:          b,
		Statistics:      b,
		ClearStatistics: b,
		HangUp:          b,
	}
}
