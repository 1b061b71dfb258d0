package ras

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumerateConnectionsWithoutLocator(t *testing.T) {
	ResetDefaultLocator()

	conns, err := EnumerateConnections()
	assert.Nil(t, conns)
	assert.ErrorIs(t, err, ErrServiceNotRegistered)
}

func TestEnumerateConnectionsUnregistered(t *testing.T) {
	SetDefaultLocator(NewLocator())
	t.Cleanup(ResetDefaultLocator)

	_, err := EnumerateConnections()
	require.ErrorIs(t, err, ErrServiceNotRegistered)
	assert.Contains(t, err.Error(), "ConnectionEnumerator")
}

func TestEnumerateConnectionsForwards(t *testing.T) {
	b := &mockBackend{}
	want := []*Connection{
		newTestConnection(3, b),
		newTestConnection(1, b),
		newTestConnection(2, b),
	}
	b.On("EnumerateConnections").Return(want, nil).Once()

	loc := NewLocator()
	RegisterBackend(loc, b)
	SetDefaultLocator(loc)
	t.Cleanup(ResetDefaultLocator)

	got, err := EnumerateConnections()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Same(t, want[i], got[i])
	}
	b.AssertExpectations(t)
}

func TestEnumerateConnectionsPropagatesError(t *testing.T) {
	b := &mockBackend{}
	boom := errors.New("enumeration failed")
	b.On("EnumerateConnections").Return(nil, boom).Once()

	loc := NewLocator()
	Register[ConnectionEnumerator](loc, b)
	SetDefaultLocator(loc)
	t.Cleanup(ResetDefaultLocator)

	_, err := EnumerateConnections()
	assert.ErrorIs(t, err, boom)
}

func TestNewEnumeratorRequiresService(t *testing.T) {
	e, err := NewEnumerator(nil)
	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFindConnection(t *testing.T) {
	b := &mockBackend{}
	p := testParams(0x20)
	p.EntryName = "Home DSL"
	dsl, err := NewConnection(p, ServicesOf(b))
	require.NoError(t, err)
	vpn := newTestConnection(0x10, b)
	b.On("EnumerateConnections").Return([]*Connection{vpn, dsl}, nil)

	e, err := NewEnumerator(b)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		want *Connection
	}{
		{"by entry name", "Office VPN", vpn},
		{"case insensitive", "home dsl", dsl},
		{"by hex handle", "0x20", dsl},
		{"by decimal handle", "16", vpn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.FindConnection(tt.key)
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := e.FindConnection("Nowhere")
		assert.ErrorIs(t, err, ErrConnectionNotFound)
	})
}

func TestLocatorResolve(t *testing.T) {
	loc := NewLocator()

	_, err := Resolve[StatusGetter](loc)
	require.ErrorIs(t, err, ErrServiceNotRegistered)

	b := &mockBackend{}
	Register[StatusGetter](loc, b)
	got, err := Resolve[StatusGetter](loc)
	require.NoError(t, err)
	assert.Same(t, b, got)

	assert.Panics(t, func() { MustResolve[HangUpper](loc) })
	assert.NotPanics(t, func() { MustResolve[StatusGetter](loc) })
}

func TestLocatorNilRegistration(t *testing.T) {
	loc := NewLocator()
	Register[HangUpper](loc, nil)

	_, err := Resolve[HangUpper](loc)
	assert.ErrorIs(t, err, ErrServiceNotRegistered)
}

func TestLocatorConcurrentResolve(t *testing.T) {
	loc := NewLocator()
	RegisterBackend(loc, &mockBackend{})

	done := make(chan error)
	for i := 0; i < 16; i++ {
		go func() {
			_, err := Resolve[ConnectionEnumerator](loc)
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		require.NoError(t, <-done)
	}
}
