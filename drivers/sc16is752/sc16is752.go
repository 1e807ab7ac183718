// Package sc16is752 provides a TinyGo-compatible driver for the NXP SC16IS752
// (and SC16IS762) dual UART with an 8-bit GPIO port, attached over I²C.
//
// Design notes (datasheet references):
//   - 7-bit slave address in 0x48..0x57 selected by the A0/A1 straps. Callers
//     may pass the 8-bit (shifted) form; it is normalised in New.
//   - Sub-address byte = register<<3 | channel<<1. One register per transfer.
//   - Crystal assumed at 1.8432 MHz; MCR selects the divide-by-4 prescaler.
//   - GPIO registers are chip-global and always addressed through channel A.
//
// The driver is synchronous and keeps no locks. A Device must not be used
// from more than one goroutine at a time; wrap it if sharing is needed.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided.
package sc16is752

import (
	"sc16is752-go/x/mathx"

	"tinygo.org/x/drivers"
)

// Address range and strap defaults.
const (
	AddressMin     = 0x48
	AddressMax     = 0x57
	AddressDefault = 0x4D // A1 = A0 = VSS
)

// CrystalFrequency is the reference clock in Hz.
const CrystalFrequency = 1_843_200

// Channel selects one of the two UARTs.
type Channel uint8

const (
	ChannelA Channel = iota
	ChannelB
)

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	default:
		return "?"
	}
}

func (c Channel) valid() bool { return c == ChannelA || c == ChannelB }

// Config controls construction. Zero values select defaults.
type Config struct {
	// Address accepts the 7-bit form or the 8-bit (left-shifted) form.
	// Defaults to AddressDefault if zero.
	Address uint16
	// PollLimit bounds the number of LSR reads spent waiting for the
	// transmit holding register per byte. 0 waits forever.
	PollLimit int
}

// DefaultConfig returns the strap default address with unbounded polling.
func DefaultConfig() Config {
	return Config{Address: AddressDefault}
}

// Device represents one SC16IS752 on an I²C bus.
type Device struct {
	i2c       drivers.I2C
	addr      uint16
	pollLimit int

	// Per-channel receive state.
	fifo      [2]uint8 // last RXLVL read
	peekFlags [2]bool
	peekBuf   [2]byte

	// Fixed buffers to avoid per-call heap allocations.
	w [2]byte
	r [1]byte
}

// New binds a Device to a bus. It performs no I/O.
func New(i2c drivers.I2C, cfg Config) (*Device, error) {
	raw := cfg.Address
	if raw == 0 {
		raw = AddressDefault
	}
	addr, ok := ResolveAddress(raw)
	if !ok {
		return nil, ErrInvalidAddress
	}
	pl := cfg.PollLimit
	if pl < 0 {
		pl = 0
	}
	return &Device{i2c: i2c, addr: addr, pollLimit: pl}, nil
}

// Address returns the resolved 7-bit address.
func (d *Device) Address() uint16 { return d.addr }

// SetPollLimit changes the LSR polling bound. 0 waits forever.
func (d *Device) SetPollLimit(n int) {
	if n < 0 {
		n = 0
	}
	d.pollLimit = n
}

// ResolveAddress returns raw unchanged if it is already a 7-bit address in
// range, otherwise treats it as an 8-bit address and shifts it down.
// ok is false if the result is still outside 0x48..0x57.
func ResolveAddress(raw uint16) (addr uint16, ok bool) {
	if mathx.Between(raw, AddressMin, AddressMax) {
		return raw, true
	}
	addr = raw >> 1
	return addr, mathx.Between(addr, AddressMin, AddressMax)
}

// RegisterAddress encodes the sub-address byte for a register on a channel.
func RegisterAddress(reg uint8, ch Channel) uint8 {
	return reg<<3 | uint8(ch)<<1
}

// ---------------- Low-level register access ----------------

func (d *Device) readRegister(ch Channel, reg uint8) (uint8, error) {
	if !ch.valid() {
		return 0, ErrInvalidChannel
	}
	d.w[0] = RegisterAddress(reg, ch)
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) writeRegister(ch Channel, reg, val uint8) error {
	if !ch.valid() {
		return ErrInvalidChannel
	}
	d.w[0] = RegisterAddress(reg, ch)
	d.w[1] = val
	return d.i2c.Tx(d.addr, d.w[:2], nil)
}

// modifyRegister is the read-modify-write helper for 8-bit registers.
func (d *Device) modifyRegister(ch Channel, reg, set, clear uint8) error {
	cur, err := d.readRegister(ch, reg)
	if err != nil {
		return err
	}
	return d.writeRegister(ch, reg, (cur|set)&^clear)
}

// assignBit sets or clears mask depending on on.
func (d *Device) assignBit(ch Channel, reg, mask uint8, on bool) error {
	if on {
		return d.modifyRegister(ch, reg, mask, 0)
	}
	return d.modifyRegister(ch, reg, 0, mask)
}
