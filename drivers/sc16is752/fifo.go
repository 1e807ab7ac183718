package sc16is752

import (
	"context"

	"sc16is752-go/x/mathx"
)

// FIFODepth is the size of each hardware FIFO in bytes.
const FIFODepth = 64

// ---------------- FIFO control ----------------

// FifoEnable sets or clears FCR[0].
func (d *Device) FifoEnable(ch Channel, enabled bool) error {
	return d.assignBit(ch, regFCR, fcrFifoEnable, enabled)
}

// FifoReset asserts the TX FIFO reset (FCR[1]) when tx is true, otherwise the
// RX FIFO reset (FCR[2]). The other reset bit is cleared in the same write, so
// a TX reset never flushes received data. Resetting RX also drops any peeked
// byte for the channel.
func (d *Device) FifoReset(ch Channel, tx bool) error {
	bit, other := uint8(fcrResetRX), uint8(fcrResetTX)
	if tx {
		bit, other = fcrResetTX, fcrResetRX
	}
	if err := d.modifyRegister(ch, regFCR, bit, other); err != nil {
		return err
	}
	if !tx {
		d.peekFlags[ch] = false
		d.fifo[ch] = 0
	}
	return nil
}

// FifoSetTriggerLevel programs the TLR nibble for RX or TX. The level is in
// units of four bytes and is clamped to 0..15; 0 falls back to the FCR levels.
//
// MCR[2] and the enhanced-features bit must be set before the TLR write is
// honoured; the enhanced-features image is restored afterwards.
func (d *Device) FifoSetTriggerLevel(ch Channel, rx bool, length uint8) error {
	length = mathx.Clamp(length, 0, 15)
	if err := d.modifyRegister(ch, regMCR, mcrTLREnable, 0); err != nil {
		return err
	}
	saved, err := d.readRegister(ch, regFCR)
	if err != nil {
		return err
	}
	if err := d.writeRegister(ch, regFCR, saved|efrEnhanced); err != nil {
		return err
	}
	v := length
	if !rx {
		v = length << 4
	}
	if err := d.writeRegister(ch, regTLR, v); err != nil {
		_ = d.writeRegister(ch, regFCR, saved) // best-effort restore
		return err
	}
	return d.writeRegister(ch, regFCR, saved)
}

// FifoAvailableData reads RXLVL. Every call reads the chip; the cached copy
// is only used to account for bytes consumed afterwards.
func (d *Device) FifoAvailableData(ch Channel) (uint8, error) {
	v, err := d.readRegister(ch, regRXLVL)
	if err != nil {
		return 0, err
	}
	d.fifo[ch] = v
	return v, nil
}

// FifoAvailableSpace reads TXLVL.
func (d *Device) FifoAvailableSpace(ch Channel) (uint8, error) {
	return d.readRegister(ch, regTXLVL)
}

// Buffered returns the number of bytes a read could return now, including a
// peeked byte.
func (d *Device) Buffered(ch Channel) (int, error) {
	n, err := d.FifoAvailableData(ch)
	if err != nil {
		return 0, err
	}
	if d.peekFlags[ch] {
		return int(n) + 1, nil
	}
	return int(n), nil
}

// ---------------- Transmit ----------------

// waitTHREmpty polls LSR[5]. Without a poll limit and with a context that
// never ends it may wait forever on a dead chip.
func (d *Device) waitTHREmpty(ctx context.Context, ch Channel) error {
	done := ctx.Done()
	for n := 0; d.pollLimit == 0 || n < d.pollLimit; n++ {
		if done != nil {
			select {
			case <-done:
				return ctx.Err()
			default:
			}
		}
		lsr, err := d.readRegister(ch, regLSR)
		if err != nil {
			return err
		}
		if lsr&lsrTHREmpty != 0 {
			return nil
		}
	}
	return ErrUnresponsive
}

// WriteByte waits for the transmit holding register and writes one byte.
func (d *Device) WriteByte(ch Channel, b byte) error {
	return d.WriteByteContext(context.Background(), ch, b)
}

// WriteByteContext is WriteByte with cancellation between polls.
func (d *Device) WriteByteContext(ctx context.Context, ch Channel, b byte) error {
	if err := d.waitTHREmpty(ctx, ch); err != nil {
		return err
	}
	return d.writeRegister(ch, regTHR, b)
}

// Write sends p one byte at a time. It returns the number of bytes accepted
// by the chip before any error.
func (d *Device) Write(ch Channel, p []byte) (int, error) {
	return d.WriteContext(context.Background(), ch, p)
}

// WriteContext is Write with cancellation between polls.
func (d *Device) WriteContext(ctx context.Context, ch Channel, p []byte) (int, error) {
	for i, b := range p {
		if err := d.WriteByteContext(ctx, ch, b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Flush waits until the transmit holding register is empty.
func (d *Device) Flush(ch Channel) error {
	return d.waitTHREmpty(context.Background(), ch)
}

// FlushContext is Flush with cancellation between polls.
func (d *Device) FlushContext(ctx context.Context, ch Channel) error {
	return d.waitTHREmpty(ctx, ch)
}

// ---------------- Receive ----------------

// ReadByte returns one byte if available. ok is false when the FIFO is empty;
// that is not an error.
func (d *Device) ReadByte(ch Channel) (b byte, ok bool, err error) {
	if !ch.valid() {
		return 0, false, ErrInvalidChannel
	}
	if d.peekFlags[ch] {
		d.peekFlags[ch] = false
		return d.peekBuf[ch], true, nil
	}
	n, err := d.FifoAvailableData(ch)
	if err != nil || n == 0 {
		return 0, false, err
	}
	b, err = d.readRegister(ch, regRHR)
	if err != nil {
		return 0, false, err
	}
	d.fifo[ch] = n - 1
	return b, true, nil
}

// ReadInto fills p with up to len(p) bytes that are already available. It
// reads RXLVL once and never waits for more data.
func (d *Device) ReadInto(ch Channel, p []byte) (int, error) {
	if !ch.valid() {
		return 0, ErrInvalidChannel
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	if d.peekFlags[ch] {
		p[0] = d.peekBuf[ch]
		d.peekFlags[ch] = false
		n = 1
		if len(p) == 1 {
			return n, nil
		}
	}
	avail, err := d.FifoAvailableData(ch)
	if err != nil {
		return n, err
	}
	want := mathx.Min(len(p)-n, int(avail))
	for i := 0; i < want; i++ {
		b, err := d.readRegister(ch, regRHR)
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
		d.fifo[ch]--
	}
	return n, nil
}

// Read returns up to quantity bytes, bounded by what is available now.
func (d *Device) Read(ch Channel, quantity int) ([]byte, error) {
	if !ch.valid() {
		return nil, ErrInvalidChannel
	}
	if quantity <= 0 {
		return nil, nil
	}
	buf := make([]byte, mathx.Min(quantity, FIFODepth+1))
	n, err := d.ReadInto(ch, buf)
	return buf[:n], err
}

// ReadAll drains every byte available now.
func (d *Device) ReadAll(ch Channel) ([]byte, error) {
	return d.Read(ch, FIFODepth+1)
}

// Peek returns the next byte without consuming it. The byte is held per
// channel and handed out first by the next ReadByte, ReadInto or Read.
func (d *Device) Peek(ch Channel) (b byte, ok bool, err error) {
	if !ch.valid() {
		return 0, false, ErrInvalidChannel
	}
	if d.peekFlags[ch] {
		return d.peekBuf[ch], true, nil
	}
	b, ok, err = d.ReadByte(ch)
	if err != nil || !ok {
		return 0, false, err
	}
	d.peekBuf[ch] = b
	d.peekFlags[ch] = true
	return b, true, nil
}
