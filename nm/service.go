// Package nm implements the ras service contracts on top of NetworkManager
// over the D-Bus system bus. VPN, WireGuard, PPPoE and mobile broadband
// connections are reported; other connection types are ignored.
package nm

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

type counters struct {
	tx, rx uint64
}

// Service is the NetworkManager backend. It implements ras.Backend.
//
// NetworkManager keeps no per-connection counters that can be reset, so
// ClearConnectionStatistics records a baseline and later reads are reported
// relative to it.
type Service struct {
	bus          Bus
	conn         *dbus.Conn
	logger       common.Logger
	pollInterval time.Duration

	mu        sync.Mutex
	baselines map[ras.Handle]counters
}

var _ ras.Backend = (*Service)(nil)

// New connects to the system bus and checks that NetworkManager is running.
func New(logger common.Logger) (*Service, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnsupportedPlatform, err)
	}

	s := newService(conn, logger)
	s.conn = conn

	version, err := getString(s.nm(), nmInterface+".Version")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: NetworkManager not reachable: %w", common.ErrUnsupportedPlatform, err)
	}
	s.logger.Debug("Connected to NetworkManager %s", version)
	return s, nil
}

func newService(bus Bus, logger common.Logger) *Service {
	return &Service{
		bus:          bus,
		logger:       common.LoggerOrDefault(logger),
		pollInterval: common.PollInterval / 4,
		baselines:    make(map[ras.Handle]counters),
	}
}

// Close releases the system bus connection.
func (s *Service) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Service) nm() dbus.BusObject {
	return s.bus.Object(busName, nmPath)
}

func (s *Service) object(p dbus.ObjectPath) dbus.BusObject {
	return s.bus.Object(busName, p)
}

// EnumerateConnections returns the active remote access connections.
func (s *Service) EnumerateConnections() ([]*ras.Connection, error) {
	paths, err := getPaths(s.nm(), nmInterface+".ActiveConnections")
	if err != nil {
		return nil, fmt.Errorf("list active connections: %w", err)
	}

	services := ras.ServicesOf(s)
	conns := make([]*ras.Connection, 0, len(paths))
	for _, p := range paths {
		params, ok, err := s.describe(p)
		if err != nil {
			if isGone(err) {
				s.logger.Debug("Active connection %s vanished during enumeration", p)
				continue
			}
			return nil, fmt.Errorf("describe %s: %w", p, err)
		}
		if !ok {
			continue
		}
		conn, err := ras.NewConnection(params, services)
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", p, err)
		}
		conns = append(conns, conn)
	}
	s.logger.Debug("NetworkManager reported %d remote access connection(s)", len(conns))
	return conns, nil
}

// describe reads the descriptor of an active connection. ok is false for
// connection types that are not remote access connections.
func (s *Service) describe(p dbus.ObjectPath) (params ras.ConnectionParams, ok bool, err error) {
	obj := s.object(p)

	connType, err := getString(obj, activeConnectionInterface+".Type")
	if err != nil {
		return params, false, err
	}
	deviceType, ok := remoteAccessTypes[connType]
	if !ok {
		return params, false, nil
	}

	handle, err := handleFromPath(p)
	if err != nil {
		return params, false, err
	}
	id, err := getString(obj, activeConnectionInterface+".Id")
	if err != nil {
		return params, false, err
	}
	entryUUID, err := getString(obj, activeConnectionInterface+".Uuid")
	if err != nil {
		return params, false, err
	}
	settings, err := getPath(obj, activeConnectionInterface+".Connection")
	if err != nil {
		return params, false, err
	}
	device, err := s.device(obj, connType, deviceType)
	if err != nil {
		return params, false, err
	}

	entryID, err := uuid.Parse(entryUUID)
	if err != nil {
		entryID = uuid.Nil
	}

	params = ras.ConnectionParams{
		Handle:        handle,
		Device:        device,
		EntryName:     id,
		PhoneBookPath: string(settings),
		EntryID:       entryID,
		Options:       ras.NewConnectionOptions(0),
		CorrelationID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("dbus://"+busName+string(p))),
	}
	return params, true, nil
}

// device describes the device carrying the traffic of an active
// connection. Connections still activating may have none yet; the
// connection type is used as name.
func (s *Service) device(obj dbus.BusObject, connType string, deviceType ras.DeviceType) (*ras.Device, error) {
	dev, err := s.trafficDevice(obj, connType == vpnConnectionType)
	if err != nil {
		return nil, err
	}
	name := connType
	if dev != "" {
		iface, err := getString(s.object(dev), deviceInterface+".Interface")
		if err == nil && iface != "" {
			name = iface
		}
	}
	return &ras.Device{Name: name, Type: deviceType}, nil
}

// trafficDevice returns the device whose counters belong to the active
// connection, "" if there is none.
//
// The Devices of a plugin VPN are those of its base connection, so the
// tunnel is looked up among all devices by the VPN's IPv4 address instead.
func (s *Service) trafficDevice(obj dbus.BusObject, vpn bool) (dbus.ObjectPath, error) {
	devices, err := getPaths(obj, activeConnectionInterface+".Devices")
	if err != nil {
		return "", err
	}
	if !vpn {
		if len(devices) == 0 {
			return "", nil
		}
		return devices[0], nil
	}

	cfgPath, err := getPath(obj, activeConnectionInterface+".Ip4Config")
	if err != nil {
		return "", err
	}
	if isNullPath(cfgPath) {
		return "", nil
	}
	addr := firstAddress(s.object(cfgPath))
	if addr == nil {
		return "", nil
	}

	all, err := getPaths(s.nm(), nmInterface+".AllDevices")
	if err != nil {
		return "", err
	}
	for _, d := range all {
		if slices.Contains(devices, d) {
			continue
		}
		devCfg, err := getPath(s.object(d), deviceInterface+".Ip4Config")
		if err != nil || isNullPath(devCfg) {
			continue
		}
		if addr.Equal(firstAddress(s.object(devCfg))) {
			return d, nil
		}
	}
	return "", nil
}

// GetConnectionStatus reads the state of the active connection.
func (s *Service) GetConnectionStatus(conn *ras.Connection) (*ras.ConnectionStatus, error) {
	if conn == nil {
		return nil, &ras.ArgumentError{Field: "conn"}
	}

	obj := s.object(pathFromHandle(conn.Handle()))
	state, err := getUint32(obj, activeConnectionInterface+".State")
	if err != nil {
		return nil, mapError("get status", err)
	}

	status := &ras.ConnectionStatus{
		State:  stateFromActive(state),
		Device: conn.Device(),
	}
	if cfgPath, err := getPath(obj, activeConnectionInterface+".Ip4Config"); err == nil && !isNullPath(cfgPath) {
		cfg := s.object(cfgPath)
		status.LocalEndpoint = firstAddress(cfg)
		if gw, err := getString(cfg, ip4ConfigInterface+".Gateway"); err == nil && gw != "" {
			status.RemoteEndpoint = net.ParseIP(gw)
		}
	}
	return status, nil
}

// GetConnectionStatistics reads the byte counters of the connection's
// device, relative to the last clear.
func (s *Service) GetConnectionStatistics(conn *ras.Connection) (*ras.ConnectionStatistics, error) {
	if conn == nil {
		return nil, &ras.ArgumentError{Field: "conn"}
	}

	current, err := s.readCounters(conn)
	if err != nil {
		return nil, mapError("get statistics", err)
	}

	s.mu.Lock()
	base := s.baselines[conn.Handle()]
	if current.tx < base.tx || current.rx < base.rx {
		// Counters were reset underneath us, e.g. the device was recreated.
		base = counters{}
		delete(s.baselines, conn.Handle())
	}
	s.mu.Unlock()

	return &ras.ConnectionStatistics{
		BytesTransmitted: current.tx - base.tx,
		BytesReceived:    current.rx - base.rx,
	}, nil
}

// ClearConnectionStatistics records the current counters as the baseline.
func (s *Service) ClearConnectionStatistics(conn *ras.Connection) error {
	if conn == nil {
		return &ras.ArgumentError{Field: "conn"}
	}

	current, err := s.readCounters(conn)
	if err != nil {
		return mapError("clear statistics", err)
	}

	s.mu.Lock()
	s.baselines[conn.Handle()] = current
	s.mu.Unlock()

	s.logger.Info("Cleared statistics of %s", conn)
	return nil
}

func (s *Service) readCounters(conn *ras.Connection) (counters, error) {
	obj := s.object(pathFromHandle(conn.Handle()))
	path, err := s.trafficDevice(obj, conn.Device().Type == ras.DeviceTypeVpn)
	if err != nil {
		return counters{}, err
	}
	if path == "" {
		return counters{}, nil
	}

	dev := s.object(path)
	s.ensureRefreshRate(dev)

	tx, err := getUint64(dev, statisticsInterface+".TxBytes")
	if err != nil {
		return counters{}, err
	}
	rx, err := getUint64(dev, statisticsInterface+".RxBytes")
	if err != nil {
		return counters{}, err
	}
	return counters{tx: tx, rx: rx}, nil
}

// ensureRefreshRate enables counter updates on the device, which are off
// by default. Failure only means the counters may be stale.
func (s *Service) ensureRefreshRate(dev dbus.BusObject) {
	rate, err := getUint32(dev, statisticsInterface+".RefreshRateMs")
	if err != nil || rate != 0 {
		return
	}
	if err := dev.SetProperty(statisticsInterface+".RefreshRateMs", dbus.MakeVariant(uint32(common.PollInterval/time.Millisecond))); err != nil {
		s.logger.Debug("Could not enable statistics on %s: %v", dev.Path(), err)
	}
}

// HangUp deactivates the connection and waits until NetworkManager has
// torn it down. NetworkManager holds a single reference per active
// connection, so closeAllReferences has no effect.
func (s *Service) HangUp(ctx context.Context, conn *ras.Connection, closeAllReferences bool) error {
	if conn == nil {
		return &ras.ArgumentError{Field: "conn"}
	}
	if err := ctx.Err(); err != nil {
		return common.Cancelled(err)
	}

	p := pathFromHandle(conn.Handle())
	call := s.nm().CallWithContext(ctx, methodDeactivateConnection, 0, p)
	if call.Err != nil {
		if ctx.Err() != nil {
			return common.Cancelled(ctx.Err())
		}
		return mapError("deactivate", call.Err)
	}

	s.mu.Lock()
	delete(s.baselines, conn.Handle())
	s.mu.Unlock()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	obj := s.object(p)
	for {
		state, err := getUint32(obj, activeConnectionInterface+".State")
		if isGone(err) || (err == nil && state == activeStateDeactivated) {
			s.logger.Info("Hung up %s", conn)
			return nil
		}
		if err != nil {
			return mapError("wait for deactivation", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Warn("Hang-up of %s cancelled: %v", conn, ctx.Err())
			return common.Cancelled(ctx.Err())
		case <-ticker.C:
		}
	}
}
