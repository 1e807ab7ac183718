//go:build linux && !(rp2040 || rp2350)

package platform

import (
	"errors"
	"sync"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/log"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*SMBus)(nil)

var ErrFrame = errors.New("smbus: only single register byte transfers are supported")

// SMBus carries register transfers over a Linux i2c-dev adapter using SMBus
// byte-data commands. The SC16IS752 sub-address is the SMBus command byte, so
// every driver transfer maps onto one read-byte-data or write-byte-data.
type SMBus struct {
	index int

	mu     sync.Mutex
	bus    i2c.Bus
	open   bool
	target int
	data   i2c.SMBusData
}

func NewSMBus(index int) *SMBus { return &SMBus{index: index, target: -1} }

// Tx implements drivers.I2C.
func (s *SMBus) Tx(addr uint16, w, r []byte) error {
	var read bool
	switch {
	case len(w) == 2 && len(r) == 0:
	case len(w) == 1 && len(r) == 1:
		read = true
	default:
		return ErrFrame
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.selectTarget(int(addr)); err != nil {
		return err
	}
	if read {
		if err := s.bus.Do(i2c.Read, w[0], i2c.ByteData, &s.data); err != nil {
			return err
		}
		r[0] = s.data[0]
		return nil
	}
	s.data[0] = w[1]
	return s.bus.Do(i2c.Write, w[0], i2c.ByteData, &s.data)
}

func (s *SMBus) selectTarget(addr int) error {
	if !s.open {
		if err := s.bus.Open(s.index); err != nil {
			log.Print("smbus: open i2c-", s.index, ": ", err)
			return err
		}
		s.open = true
		s.target = -1
	}
	if s.target == addr {
		return nil
	}
	if err := s.bus.ForceSlaveAddress(addr); err != nil {
		return err
	}
	s.target = addr
	return nil
}

// Close releases the adapter. The next transfer reopens it.
func (s *SMBus) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	s.open = false
	s.target = -1
	return s.bus.Close()
}
