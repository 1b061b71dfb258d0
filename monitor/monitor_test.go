package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/ras"
)

// fakeBackend is an in-memory ras.Backend.
type fakeBackend struct {
	mu       sync.Mutex
	entries  map[ras.Handle]string
	states   map[ras.Handle]ras.ConnectionState
	bytes    map[ras.Handle]uint64
	failing  map[ras.Handle]bool
	statsErr error
	enumErr  error
	enumHits int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		entries: make(map[ras.Handle]string),
		states:  make(map[ras.Handle]ras.ConnectionState),
		bytes:   make(map[ras.Handle]uint64),
		failing: make(map[ras.Handle]bool),
	}
}

func (f *fakeBackend) connect(h ras.Handle, entry string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[h] = entry
	f.states[h] = ras.StateConnected
}

func (f *fakeBackend) drop(h ras.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, h)
	delete(f.states, h)
}

func (f *fakeBackend) setState(h ras.Handle, s ras.ConnectionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[h] = s
}

func (f *fakeBackend) EnumerateConnections() ([]*ras.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enumHits++
	if f.enumErr != nil {
		return nil, f.enumErr
	}

	var conns []*ras.Connection
	for h := ras.Handle(1); h <= 16; h++ {
		entry, ok := f.entries[h]
		if !ok {
			continue
		}
		c, err := ras.NewConnection(ras.ConnectionParams{
			Handle:        h,
			Device:        &ras.Device{Name: "tun0", Type: ras.DeviceTypeVpn},
			EntryName:     entry,
			PhoneBookPath: "/etc/ppp/peers",
			Options:       ras.NewConnectionOptions(0),
		}, ras.ServicesOf(f))
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, nil
}

func (f *fakeBackend) GetConnectionStatus(c *ras.Connection) (*ras.ConnectionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[c.Handle()] {
		return nil, errors.New("device busy")
	}
	s, ok := f.states[c.Handle()]
	if !ok {
		return nil, ras.ErrConnectionTerminated
	}
	return &ras.ConnectionStatus{State: s}, nil
}

func (f *fakeBackend) GetConnectionStatistics(c *ras.Connection) (*ras.ConnectionStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	f.bytes[c.Handle()] += 100
	return &ras.ConnectionStatistics{BytesReceived: f.bytes[c.Handle()]}, nil
}

func (f *fakeBackend) ClearConnectionStatistics(*ras.Connection) error { return nil }

func (f *fakeBackend) HangUp(context.Context, *ras.Connection, bool) error { return nil }

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func newTestMonitor(b *fakeBackend) (*Monitor, *recorder) {
	m := New(b, DefaultConfig(), common.NopLogger{})
	rec := &recorder{}
	m.SetOnEvent(rec.record)
	return m, rec
}

func TestEventType_String(t *testing.T) {
	tests := []struct {
		event    EventType
		expected string
	}{
		{EventConnected, "Connected"},
		{EventDisconnected, "Disconnected"},
		{EventStateChanged, "StateChanged"},
		{EventType(99), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.event.String(); got != tt.expected {
				t.Errorf("EventType.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Interval != common.PollInterval {
		t.Errorf("Interval = %v, want %v", config.Interval, common.PollInterval)
	}
	if config.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %v, want 3", config.FailureThreshold)
	}
	if !config.CollectStatistics {
		t.Error("CollectStatistics should be true by default")
	}
}

func TestPollConnectAndDisconnect(t *testing.T) {
	b := newFakeBackend()
	m, rec := newTestMonitor(b)

	b.connect(1, "Office VPN")
	b.connect(2, "Home DSL")
	require.NoError(t, m.Poll())

	events := rec.take()
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, EventConnected, e.Type)
		assert.Equal(t, ras.StateConnected, e.NewState)
	}

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "Home DSL", snap[0].Conn.EntryName())
	assert.Equal(t, "Office VPN", snap[1].Conn.EntryName())
	assert.Equal(t, uint64(100), snap[1].Statistics.BytesReceived)

	require.NoError(t, m.Poll())
	assert.Empty(t, rec.take())

	b.drop(1)
	require.NoError(t, m.Poll())
	events = rec.take()
	require.Len(t, events, 1)
	assert.Equal(t, EventDisconnected, events[0].Type)
	assert.Equal(t, ras.Handle(1), events[0].Handle)
	assert.Equal(t, "Office VPN", events[0].EntryName)
	assert.Equal(t, ras.StateConnected, events[0].OldState)

	_, ok := m.Get(1)
	assert.False(t, ok)
	tracked, ok := m.Get(2)
	require.True(t, ok)
	assert.Equal(t, uint64(300), tracked.Statistics.BytesReceived)
}

func TestPollStateChange(t *testing.T) {
	b := newFakeBackend()
	m, rec := newTestMonitor(b)

	b.connect(1, "Office VPN")
	b.setState(1, ras.StateAuthenticate)
	require.NoError(t, m.Poll())
	rec.take()

	b.setState(1, ras.StateConnected)
	require.NoError(t, m.Poll())

	events := rec.take()
	require.Len(t, events, 1)
	assert.Equal(t, EventStateChanged, events[0].Type)
	assert.Equal(t, ras.StateAuthenticate, events[0].OldState)
	assert.Equal(t, ras.StateConnected, events[0].NewState)
}

func TestPollStatusFailures(t *testing.T) {
	b := newFakeBackend()
	m, _ := newTestMonitor(b)

	b.connect(1, "Office VPN")
	require.NoError(t, m.Poll())

	b.mu.Lock()
	b.failing[1] = true
	b.mu.Unlock()
	require.NoError(t, m.Poll())
	require.NoError(t, m.Poll())

	tracked, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, 2, tracked.ConsecutiveFails)
	assert.EqualError(t, tracked.LastError, "device busy")
	assert.Equal(t, ras.StateConnected, tracked.Status.State)

	b.mu.Lock()
	b.failing[1] = false
	b.mu.Unlock()
	require.NoError(t, m.Poll())
	tracked, _ = m.Get(1)
	assert.Zero(t, tracked.ConsecutiveFails)
	assert.NoError(t, tracked.LastError)
}

func TestPollStatisticsFailure(t *testing.T) {
	b := newFakeBackend()
	m, _ := newTestMonitor(b)

	b.connect(1, "Office VPN")
	require.NoError(t, m.Poll())
	tracked, _ := m.Get(1)
	require.NotNil(t, tracked.Statistics)

	b.mu.Lock()
	b.statsErr = errors.New("counters unavailable")
	b.mu.Unlock()
	require.NoError(t, m.Poll())

	tracked, ok := m.Get(1)
	require.True(t, ok)
	assert.Nil(t, tracked.Statistics)
	assert.EqualError(t, tracked.LastError, "counters unavailable")
	assert.Zero(t, tracked.ConsecutiveFails)
	assert.Equal(t, ras.StateConnected, tracked.Status.State)

	b.mu.Lock()
	b.statsErr = nil
	b.mu.Unlock()
	require.NoError(t, m.Poll())
	tracked, _ = m.Get(1)
	assert.NoError(t, tracked.LastError)
	assert.Equal(t, uint64(200), tracked.Statistics.BytesReceived)
}

func TestPollEnumerationError(t *testing.T) {
	b := newFakeBackend()
	m, rec := newTestMonitor(b)

	b.connect(1, "Office VPN")
	require.NoError(t, m.Poll())
	rec.take()

	b.mu.Lock()
	b.enumErr = ras.ErrServiceNotRegistered
	b.mu.Unlock()

	assert.ErrorIs(t, m.Poll(), ras.ErrServiceNotRegistered)
	assert.Empty(t, rec.take())
	_, ok := m.Get(1)
	assert.True(t, ok)
}

func TestOnPoll(t *testing.T) {
	b := newFakeBackend()
	m, _ := newTestMonitor(b)
	b.connect(1, "Office VPN")

	var got []Tracked
	m.SetOnPoll(func(s []Tracked) { got = s })
	require.NoError(t, m.Poll())
	require.Len(t, got, 1)
	assert.Equal(t, ras.Handle(1), got[0].Conn.Handle())
}

func TestMonitor_StartStop(t *testing.T) {
	b := newFakeBackend()
	b.connect(1, "Office VPN")

	config := DefaultConfig()
	config.Interval = 5 * time.Millisecond
	m := New(b, config, common.NopLogger{})

	connected := make(chan Event, 1)
	m.SetOnEvent(func(e Event) {
		if e.Type == EventConnected {
			select {
			case connected <- e:
			default:
			}
		}
	})

	if m.IsRunning() {
		t.Error("Monitor should not be running initially")
	}

	m.Start()
	m.Start() // second start is a no-op
	if !m.IsRunning() {
		t.Error("Monitor should be running after Start()")
	}

	select {
	case e := <-connected:
		assert.Equal(t, "Office VPN", e.EntryName)
	case <-time.After(time.Second):
		t.Fatal("no connected event")
	}

	m.Stop()
	m.Stop()
	if m.IsRunning() {
		t.Error("Monitor should not be running after Stop()")
	}
}
