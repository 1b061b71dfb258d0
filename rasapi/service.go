// Package rasapi implements the ras service contracts on top of the
// Windows Remote Access Service (rasapi32.dll).
package rasapi

import (
	"context"
	"fmt"
	"time"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

// maxEnumAttempts bounds the grow-and-retry loop of EnumerateConnections
// while connections keep appearing between calls.
const maxEnumAttempts = 5

// Service is the rasapi32 backend. It implements ras.Backend.
type Service struct {
	api          nativeAPI
	logger       common.Logger
	pollInterval time.Duration
}

var _ ras.Backend = (*Service)(nil)

func newService(api nativeAPI, logger common.Logger) *Service {
	return &Service{
		api:          api,
		logger:       common.LoggerOrDefault(logger),
		pollInterval: common.HangUpPollInterval,
	}
}

func (s *Service) newError(op string, code uint32) error {
	return &Error{Op: op, Code: code, Message: s.api.errorString(code)}
}

// EnumerateConnections returns the active connections.
func (s *Service) EnumerateConnections() ([]*ras.Connection, error) {
	raw, err := s.enumerate()
	if err != nil {
		return nil, err
	}

	services := ras.ServicesOf(s)
	conns := make([]*ras.Connection, 0, len(raw))
	for i := range raw {
		conn, err := ras.NewConnection(raw[i].params(), services)
		if err != nil {
			return nil, fmt.Errorf("connection %#x: %w", raw[i].Handle, err)
		}
		conns = append(conns, conn)
	}
	s.logger.Debug("RasEnumConnections returned %d connection(s)", len(conns))
	return conns, nil
}

func (s *Service) enumerate() ([]rasConn, error) {
	buf := make([]rasConn, 1)
	for attempt := 0; attempt < maxEnumAttempts; attempt++ {
		buf[0].Size = rasConnSize
		cb := uint32(len(buf)) * rasConnSize
		var count uint32

		code := s.api.enumConnections(buf, &cb, &count)
		switch code {
		case errorSuccess:
			return buf[:count], nil
		case errorBufferTooSmall:
			n := int(cb / rasConnSize)
			if n <= len(buf) {
				n = len(buf) * 2
			}
			s.logger.Debug("RasEnumConnections buffer too small, growing to %d entries", n)
			buf = make([]rasConn, n)
		default:
			return nil, s.newError("RasEnumConnections", code)
		}
	}
	return nil, s.newError("RasEnumConnections", errorBufferTooSmall)
}

// GetConnectionStatus queries the native status of conn.
func (s *Service) GetConnectionStatus(conn *ras.Connection) (*ras.ConnectionStatus, error) {
	if conn == nil {
		return nil, &ras.ArgumentError{Field: "conn"}
	}

	st := rasConnStatus{Size: rasConnStatusSize}
	if code := s.api.getConnectStatus(uintptr(conn.Handle()), &st); code != errorSuccess {
		return nil, s.newError("RasGetConnectStatus", code)
	}

	status := st.status()
	if status.ErrorCode != 0 {
		status.ErrorMessage = s.api.errorString(status.ErrorCode)
	}
	return status, nil
}

// GetConnectionStatistics retrieves the native statistics of conn.
func (s *Service) GetConnectionStatistics(conn *ras.Connection) (*ras.ConnectionStatistics, error) {
	if conn == nil {
		return nil, &ras.ArgumentError{Field: "conn"}
	}

	stats := rasStats{Size: rasStatsSize}
	if code := s.api.getConnectionStatistics(uintptr(conn.Handle()), &stats); code != errorSuccess {
		return nil, s.newError("RasGetConnectionStatistics", code)
	}
	return stats.statistics(), nil
}

// ClearConnectionStatistics resets the native statistics of conn.
func (s *Service) ClearConnectionStatistics(conn *ras.Connection) error {
	if conn == nil {
		return &ras.ArgumentError{Field: "conn"}
	}

	if code := s.api.clearConnectionStatistics(uintptr(conn.Handle())); code != errorSuccess {
		return s.newError("RasClearConnectionStatistics", code)
	}
	s.logger.Info("Cleared statistics of %s", conn)
	return nil
}

// HangUp terminates conn. With closeAllReferences the hang-up is repeated
// until the handle becomes invalid, then the connection status is polled
// until the teardown has finished. Without it only the caller's reference
// is released and other holders keep the connection up. A hang-up of an
// already invalid handle fails with ras.ErrConnectionTerminated.
func (s *Service) HangUp(ctx context.Context, conn *ras.Connection, closeAllReferences bool) error {
	if conn == nil {
		return &ras.ArgumentError{Field: "conn"}
	}
	if err := ctx.Err(); err != nil {
		return common.Cancelled(err)
	}

	h := uintptr(conn.Handle())
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	calls := 0
	for ; ; calls++ {
		code := s.api.hangUp(h)
		if calls > 0 && isTerminated(code) {
			break
		}
		if code != errorSuccess {
			return s.newError("RasHangUp", code)
		}
		if !closeAllReferences {
			s.logger.Info("Released reference to %s", conn)
			return nil
		}
		if err := s.wait(ctx, ticker, conn); err != nil {
			return err
		}
	}

	for {
		st := rasConnStatus{Size: rasConnStatusSize}
		code := s.api.getConnectStatus(h, &st)
		if isTerminated(code) {
			s.logger.Info("Hung up %s after %d call(s)", conn, calls)
			return nil
		}
		if code != errorSuccess {
			return s.newError("RasGetConnectStatus", code)
		}
		if err := s.wait(ctx, ticker, conn); err != nil {
			return err
		}
	}
}

func (s *Service) wait(ctx context.Context, ticker *time.Ticker, conn *ras.Connection) error {
	select {
	case <-ctx.Done():
		s.logger.Warn("Hang-up of %s cancelled: %v", conn, ctx.Err())
		return common.Cancelled(ctx.Err())
	case <-ticker.C:
		return nil
	}
}
