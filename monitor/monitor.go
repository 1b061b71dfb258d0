// Package monitor tracks the active connections over time.
// It periodically re-enumerates connections, queries their status and
// statistics, and reports connects, disconnects and state changes.
package monitor

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

// EventType is the kind of change observed between two polls.
type EventType int

const (
	EventConnected EventType = iota
	EventDisconnected
	EventStateChanged
)

// String returns a human-readable representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventConnected:
		return "Connected"
	case EventDisconnected:
		return "Disconnected"
	case EventStateChanged:
		return "StateChanged"
	default:
		return "Unknown"
	}
}

// Event describes a change of a tracked connection.
type Event struct {
	Type      EventType
	Handle    ras.Handle
	EntryName string
	OldState  ras.ConnectionState
	NewState  ras.ConnectionState
	Time      time.Time
}

// Config holds configuration for the monitor.
type Config struct {
	// Interval is how often connections are re-enumerated.
	Interval time.Duration
	// FailureThreshold is how many consecutive status failures are
	// tolerated before a connection is logged as unreachable.
	FailureThreshold int
	// CollectStatistics also queries statistics on every poll.
	CollectStatistics bool
}

// DefaultConfig returns sensible defaults for monitoring.
func DefaultConfig() Config {
	return Config{
		Interval:          common.PollInterval,
		FailureThreshold:  3,
		CollectStatistics: true,
	}
}

// Tracked is the last observation of a connection. Statistics is nil when
// the last poll could not read them; LastError then holds the cause.
type Tracked struct {
	Conn             *ras.Connection
	Status           *ras.ConnectionStatus
	Statistics       *ras.ConnectionStatistics
	FirstSeen        time.Time
	LastCheck        time.Time
	ConsecutiveFails int
	LastError        error
}

// Monitor polls a connection enumerator.
type Monitor struct {
	mu         sync.RWMutex
	config     Config
	enumerator ras.ConnectionEnumerator
	logger     common.Logger
	running    bool
	stopChan   chan struct{}
	tracked    map[ras.Handle]*Tracked
	onEvent    func(Event)
	onPoll     func([]Tracked)
	now        func() time.Time
}

// New creates a monitor for the given enumerator.
func New(enumerator ras.ConnectionEnumerator, config Config, logger common.Logger) *Monitor {
	return &Monitor{
		config:     config,
		enumerator: enumerator,
		logger:     common.LoggerOrDefault(logger),
		stopChan:   make(chan struct{}),
		tracked:    make(map[ras.Handle]*Tracked),
		now:        time.Now,
	}
}

// SetOnEvent sets a callback for connection events. It is called from
// the polling goroutine.
func (m *Monitor) SetOnEvent(callback func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvent = callback
}

// SetOnPoll sets a callback receiving the snapshot after every poll.
func (m *Monitor) SetOnPoll(callback func([]Tracked)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPoll = callback
}

// OnPoll returns the poll callback, nil if none is set.
func (m *Monitor) OnPoll() func([]Tracked) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.onPoll
}

// Start begins the polling loop.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	interval := m.config.Interval
	m.mu.Unlock()

	m.logger.Info("Connection monitor started (interval: %v)", interval)

	go m.runLoop(stop, interval)
}

// Stop stops the polling loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.logger.Info("Connection monitor stopped")
}

// IsRunning returns whether the monitor is currently polling.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Monitor) runLoop(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := m.Poll(); err != nil {
		m.logger.Warn("Poll failed: %v", err)
	}
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := m.Poll(); err != nil {
				m.logger.Warn("Poll failed: %v", err)
			}
		}
	}
}

// Poll enumerates the connections once, updates the tracked set and fires
// the callbacks. An enumeration error leaves the tracked set unchanged.
func (m *Monitor) Poll() error {
	conns, err := m.enumerator.EnumerateConnections()
	if err != nil {
		return err
	}

	now := m.now()
	seen := make(map[ras.Handle]bool, len(conns))
	var events []Event

	m.mu.Lock()
	collect := m.config.CollectStatistics
	threshold := m.config.FailureThreshold
	m.mu.Unlock()

	for _, conn := range conns {
		status, statusErr := conn.GetStatus()
		if errors.Is(statusErr, ras.ErrConnectionTerminated) {
			// Gone between enumeration and query; reported as disconnected below.
			continue
		}
		var (
			stats    *ras.ConnectionStatistics
			statsErr error
		)
		if collect && statusErr == nil {
			stats, statsErr = conn.GetStatistics()
			if statsErr != nil {
				m.logger.Debug("Statistics of %s unavailable: %v", conn, statsErr)
			}
		}
		seen[conn.Handle()] = true

		m.mu.Lock()
		t, exists := m.tracked[conn.Handle()]
		if !exists {
			t = &Tracked{FirstSeen: now}
			m.tracked[conn.Handle()] = t
			ev := Event{Type: EventConnected, Handle: conn.Handle(), EntryName: conn.EntryName(), Time: now}
			if status != nil {
				ev.NewState = status.State
			}
			events = append(events, ev)
		}
		t.Conn = conn
		t.LastCheck = now
		if statusErr != nil {
			t.ConsecutiveFails++
			t.LastError = statusErr
			if t.ConsecutiveFails == threshold {
				m.logger.Warn("Status of %s unavailable for %d polls: %v", conn, t.ConsecutiveFails, statusErr)
			}
		} else {
			if exists && t.Status != nil && t.Status.State != status.State {
				events = append(events, Event{
					Type:      EventStateChanged,
					Handle:    conn.Handle(),
					EntryName: conn.EntryName(),
					OldState:  t.Status.State,
					NewState:  status.State,
					Time:      now,
				})
			}
			t.Status = status
			t.ConsecutiveFails = 0
			t.LastError = statsErr
		}
		if collect {
			t.Statistics = stats
		}
		m.mu.Unlock()
	}

	m.mu.Lock()
	for h, t := range m.tracked {
		if seen[h] {
			continue
		}
		ev := Event{Type: EventDisconnected, Handle: h, EntryName: t.Conn.EntryName(), NewState: ras.StateDisconnected, Time: now}
		if t.Status != nil {
			ev.OldState = t.Status.State
		}
		events = append(events, ev)
		delete(m.tracked, h)
	}
	onEvent := m.onEvent
	onPoll := m.onPoll
	m.mu.Unlock()

	for _, ev := range events {
		m.logger.Info("%s: %s (%s)", ev.Type, ev.EntryName, ev.Handle)
		if onEvent != nil {
			onEvent(ev)
		}
	}
	if onPoll != nil {
		onPoll(m.Snapshot())
	}
	return nil
}

// Get returns the last observation of a connection.
func (m *Monitor) Get(h ras.Handle) (*Tracked, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, exists := m.tracked[h]
	if !exists {
		return nil, false
	}
	// Return a copy to prevent race conditions
	tCopy := *t
	return &tCopy, true
}

// Snapshot returns copies of all tracked connections ordered by entry name.
func (m *Monitor) Snapshot() []Tracked {
	m.mu.RLock()
	out := make([]Tracked, 0, len(m.tracked))
	for _, t := range m.tracked {
		out = append(out, *t)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Conn, out[j].Conn
		if a.EntryName() != b.EntryName() {
			return a.EntryName() < b.EntryName()
		}
		return a.Handle() < b.Handle()
	})
	return out
}

// UpdateConfig updates the monitor configuration. A new interval takes
// effect on the next Start.
func (m *Monitor) UpdateConfig(config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}
