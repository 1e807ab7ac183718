// Package drvshim adapts platform buses to the tinygo drivers.I2C shape the
// device drivers expect.
package drvshim

import (
	"sync"

	"sc16is752-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

// I2C serialises transfers on one bus. The measure worker, the control path
// and the UART readers all run on different goroutines, and a register read
// is two bus phases that must not interleave with another device's.
type I2C struct {
	mu  sync.Mutex
	bus drivers.I2C
	n   uint64
}

func NewI2C(bus drivers.I2C) *I2C { return &I2C{bus: bus} }

// Tx implements drivers.I2C.
func (s *I2C) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.bus.Tx(addr, w, r)
}

// Transfers returns the number of Tx calls made through the shim.
func (s *I2C) Transfers() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Factory wraps every bus of an underlying factory exactly once, so devices
// sharing a bus id share one lock.
type Factory struct {
	mu    sync.Mutex
	inner halcore.I2CBusFactory
	cache map[string]*I2C
}

func NewFactory(inner halcore.I2CBusFactory) *Factory {
	return &Factory{inner: inner, cache: map[string]*I2C{}}
}

func (f *Factory) ByID(id string) (drivers.I2C, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.cache[id]; ok {
		return s, true
	}
	if f.inner == nil {
		return nil, false
	}
	b, ok := f.inner.ByID(id)
	if !ok || b == nil {
		return nil, false
	}
	s := NewI2C(b)
	f.cache[id] = s
	return s, true
}

// MapFactory is a fixed id -> bus table.
type MapFactory map[string]drivers.I2C

func (m MapFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := m[id]
	return b, ok
}
