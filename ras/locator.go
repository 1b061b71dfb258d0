package ras

import (
	"fmt"
	"reflect"
	"sync"
)

// Locator is a registry of services keyed by their contract type.
// It is safe for concurrent use.
type Locator struct {
	mu       sync.RWMutex
	services map[reflect.Type]any
}

// NewLocator returns an empty locator.
func NewLocator() *Locator {
	return &Locator{services: make(map[reflect.Type]any)}
}

func contractOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Register stores svc as the implementation of contract T, replacing any
// previous registration.
func Register[T any](l *Locator, svc T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services[contractOf[T]()] = svc
}

// Resolve returns the implementation registered for contract T.
func Resolve[T any](l *Locator) (T, error) {
	var zero T
	if l == nil {
		return zero, fmt.Errorf("%w: no locator configured for %s", ErrServiceNotRegistered, contractOf[T]())
	}

	l.mu.RLock()
	svc, ok := l.services[contractOf[T]()]
	l.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrServiceNotRegistered, contractOf[T]())
	}
	impl, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s registered as nil", ErrServiceNotRegistered, contractOf[T]())
	}
	return impl, nil
}

// MustResolve is like Resolve but panics if T is not registered.
func MustResolve[T any](l *Locator) T {
	svc, err := Resolve[T](l)
	if err != nil {
		panic(err)
	}
	return svc
}

// RegisterBackend registers b under every contract it implements.
func RegisterBackend(l *Locator, b Backend) {
	Register[ConnectionEnumerator](l, b)
	Register[StatusGetter](l, b)
	Register[StatisticsGetter](l, b)
	Register[StatisticsClearer](l, b)
	Register[HangUpper](l, b)
}

var (
	defaultMu      sync.RWMutex
	defaultLocator *Locator
)

// SetDefaultLocator installs the process-wide locator used by
// EnumerateConnections. Call it once from the composition root.
func SetDefaultLocator(l *Locator) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLocator = l
}

// DefaultLocator returns the process-wide locator, or nil if none was set.
func DefaultLocator() *Locator {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLocator
}

// ResetDefaultLocator clears the process-wide locator.
func ResetDefaultLocator() {
	SetDefaultLocator(nil)
}
