package ras

import (
	"fmt"
	"strconv"
	"strings"
)

// Enumerator lists active connections through an explicitly provided
// enumeration service.
type Enumerator struct {
	service ConnectionEnumerator
}

// NewEnumerator returns an enumerator forwarding to service.
func NewEnumerator(service ConnectionEnumerator) (*Enumerator, error) {
	if service == nil {
		return nil, &ArgumentError{Field: "service"}
	}
	return &Enumerator{service: service}, nil
}

// Connections returns a snapshot of the active connections in the order the
// service produced them.
func (e *Enumerator) Connections() ([]*Connection, error) {
	return e.service.EnumerateConnections()
}

// EnumerateConnections implements ConnectionEnumerator, so an Enumerator can
// feed the monitor and the metrics collector.
func (e *Enumerator) EnumerateConnections() ([]*Connection, error) {
	return e.Connections()
}

// FindConnection returns the active connection whose entry name matches
// key case-insensitively or whose handle equals key.
func (e *Enumerator) FindConnection(key string) (*Connection, error) {
	conns, err := e.Connections()
	if err != nil {
		return nil, err
	}

	var handle Handle
	if h, err := ParseHandle(key); err == nil {
		handle = h
	}
	for _, c := range conns {
		if strings.EqualFold(c.EntryName(), key) || (!handle.IsZero() && c.Handle() == handle) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, strconv.Quote(key))
}

// EnumerateConnections returns the active connections using the enumeration
// service registered in the default locator. It fails with
// ErrServiceNotRegistered when no service is available.
func EnumerateConnections() ([]*Connection, error) {
	e, err := DefaultEnumerator()
	if err != nil {
		return nil, err
	}
	return e.Connections()
}

// DefaultEnumerator builds an Enumerator from the default locator.
func DefaultEnumerator() (*Enumerator, error) {
	svc, err := Resolve[ConnectionEnumerator](DefaultLocator())
	if err != nil {
		return nil, err
	}
	return NewEnumerator(svc)
}
