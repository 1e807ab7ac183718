// Package sim is a register-level model of an SC16IS752 that implements
// tinygo.org/x/drivers.I2C for host tests.
//
// It decodes the sub-address byte exactly as the chip does and keeps the
// behaviour the driver relies on: divisor latches behind LCR[7], RXLVL/RHR
// backed by a receive queue, LSR[5] readiness, FCR[2] receive reset, and
// GPIO input/output mixing through IODir. Everything else is plain storage.
package sim

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*Chip)(nil)

var (
	ErrNACK       = errors.New("sim: address nack")
	ErrBadFrame   = errors.New("sim: malformed transfer")
	ErrBadChannel = errors.New("sim: channel bits out of range")
)

const fifoDepth = 64

// Access is one decoded register transfer.
type Access struct {
	Write bool
	Ch    uint8
	Reg   uint8
	Val   uint8
}

// Chip is safe for concurrent use so tests can inject data while a worker
// polls.
type Chip struct {
	mu   sync.Mutex
	addr uint16

	regs [2][16]uint8
	dll  [2]uint8
	dlh  [2]uint8

	rx [2][]byte
	tx [2][]byte

	lsrBusy   [2]int
	stuck     [2]bool
	sprMask   [2]uint8
	inputs    uint8
	loopback  bool
	resets    int
	failAfter int
	failErr   error

	log []Access
}

// New returns a chip answering at the 7-bit address addr.
func New(addr uint16) *Chip {
	c := &Chip{addr: addr, failAfter: -1}
	c.sprMask = [2]uint8{0xFF, 0xFF}
	return c
}

// Tx implements drivers.I2C.
func (c *Chip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failAfter == 0 {
		return c.failErr
	}
	if c.failAfter > 0 {
		c.failAfter--
	}
	if addr != c.addr {
		return ErrNACK
	}
	if len(w) == 0 || w[0]&0x81 != 0 {
		return ErrBadFrame
	}
	ch := (w[0] >> 1) & 0x03
	if ch > 1 {
		return ErrBadChannel
	}
	reg := (w[0] >> 3) & 0x0F

	switch {
	case len(w) == 2 && len(r) == 0:
		c.write(ch, reg, w[1])
		c.log = append(c.log, Access{Write: true, Ch: ch, Reg: reg, Val: w[1]})
	case len(w) == 1 && len(r) == 1:
		r[0] = c.read(ch, reg)
		c.log = append(c.log, Access{Ch: ch, Reg: reg, Val: r[0]})
	default:
		return ErrBadFrame
	}
	return nil
}

func (c *Chip) latched(ch uint8) bool { return c.regs[ch][0x03]&0x80 != 0 }

func (c *Chip) read(ch, reg uint8) uint8 {
	switch reg {
	case 0x00:
		if c.latched(ch) {
			return c.dll[ch]
		}
		if len(c.rx[ch]) == 0 {
			return 0
		}
		b := c.rx[ch][0]
		c.rx[ch] = c.rx[ch][1:]
		return b
	case 0x01:
		if c.latched(ch) {
			return c.dlh[ch]
		}
	case 0x05:
		if c.stuck[ch] {
			return 0x00
		}
		if c.lsrBusy[ch] > 0 {
			c.lsrBusy[ch]--
			return 0x00
		}
		v := uint8(0x60)
		if len(c.rx[ch]) > 0 {
			v |= 0x01
		}
		return v
	case 0x07:
		return c.regs[ch][reg] & c.sprMask[ch]
	case 0x08:
		return fifoDepth
	case 0x09:
		if n := len(c.rx[ch]); n < fifoDepth {
			return uint8(n)
		}
		return fifoDepth
	case 0x0B:
		dir := c.regs[ch][0x0A]
		return (c.regs[ch][0x0B] & dir) | (c.inputs &^ dir)
	}
	return c.regs[ch][reg]
}

func (c *Chip) write(ch, reg, v uint8) {
	switch reg {
	case 0x00:
		if c.latched(ch) {
			c.dll[ch] = v
			return
		}
		c.tx[ch] = append(c.tx[ch], v)
		if c.loopback && len(c.rx[ch]) < fifoDepth {
			c.rx[ch] = append(c.rx[ch], v)
		}
		return
	case 0x01:
		if c.latched(ch) {
			c.dlh[ch] = v
			return
		}
	case 0x02:
		if v&0x04 != 0 {
			c.rx[ch] = nil // RX FIFO reset; the stored image keeps the bit
		}
	case 0x0E:
		if v&0x08 != 0 {
			c.resets++
			v &^= 0x08 // self-clearing
		}
	}
	c.regs[ch][reg] = v
}

// ---------------- Test controls ----------------

// InjectRX appends bytes to a channel's receive FIFO.
func (c *Chip) InjectRX(ch uint8, data ...byte) {
	c.mu.Lock()
	c.rx[ch] = append(c.rx[ch], data...)
	c.mu.Unlock()
}

// PendingRX returns the number of unread receive bytes.
func (c *Chip) PendingRX(ch uint8) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rx[ch])
}

// Transmitted returns a copy of every byte written to THR.
func (c *Chip) Transmitted(ch uint8) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.tx[ch]...)
}

// Reg returns the stored value of a register (not the read-side view).
func (c *Chip) Reg(ch, reg uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[ch][reg&0x0F]
}

// SetReg preloads a register, e.g. IIR or MCR.
func (c *Chip) SetReg(ch, reg, v uint8) {
	c.mu.Lock()
	c.regs[ch][reg&0x0F] = v
	c.mu.Unlock()
}

// Divisor returns DLH:DLL.
func (c *Chip) Divisor(ch uint8) uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint16(c.dlh[ch])<<8 | uint16(c.dll[ch])
}

// SetBusy makes the next n LSR reads report the transmitter busy.
func (c *Chip) SetBusy(ch uint8, n int) {
	c.mu.Lock()
	c.lsrBusy[ch] = n
	c.mu.Unlock()
}

// SetStuck makes LSR report busy forever.
func (c *Chip) SetStuck(ch uint8, stuck bool) {
	c.mu.Lock()
	c.stuck[ch] = stuck
	c.mu.Unlock()
}

// SetScratchMask corrupts scratch pad read-back (read = stored & mask).
func (c *Chip) SetScratchMask(ch, mask uint8) {
	c.mu.Lock()
	c.sprMask[ch] = mask
	c.mu.Unlock()
}

// SetInputs sets the external level of pins configured as inputs.
func (c *Chip) SetInputs(v uint8) {
	c.mu.Lock()
	c.inputs = v
	c.mu.Unlock()
}

// SetLoopback echoes transmitted bytes into the same channel's receive FIFO.
func (c *Chip) SetLoopback(on bool) {
	c.mu.Lock()
	c.loopback = on
	c.mu.Unlock()
}

// FailAfter lets n more transfers succeed and fails all later ones with err.
// A negative n clears the failure.
func (c *Chip) FailAfter(n int, err error) {
	c.mu.Lock()
	c.failAfter = n
	c.failErr = err
	c.mu.Unlock()
}

// Resets counts software resets via IOControl[3].
func (c *Chip) Resets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// Accesses returns a copy of the transfer log.
func (c *Chip) Accesses() []Access {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Access(nil), c.log...)
}

// ClearLog empties the transfer log.
func (c *Chip) ClearLog() {
	c.mu.Lock()
	c.log = c.log[:0]
	c.mu.Unlock()
}
