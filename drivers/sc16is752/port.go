package sc16is752

import (
	"context"
	"time"
)

// DefaultPortPollInterval is the RXLVL polling period used by RecvSomeContext.
const DefaultPortPollInterval = 2 * time.Millisecond

// Port binds a Device to one channel and exposes stream-style methods.
// It shares the Device; the same single-goroutine rule applies.
type Port struct {
	d  *Device
	ch Channel

	// PollInterval is the wait between empty RXLVL reads in RecvSomeContext.
	PollInterval time.Duration
}

// Port returns a stream view of one channel.
func (d *Device) Port(ch Channel) *Port {
	return &Port{d: d, ch: ch, PollInterval: DefaultPortPollInterval}
}

func (p *Port) Channel() Channel { return p.ch }
func (p *Port) Device() *Device  { return p.d }

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) { return p.d.Write(p.ch, b) }

// WriteByte implements io.ByteWriter.
func (p *Port) WriteByte(b byte) error { return p.d.WriteByte(p.ch, b) }

// Read implements io.Reader without blocking; it returns 0, nil when the
// FIFO is empty.
func (p *Port) Read(b []byte) (int, error) { return p.d.ReadInto(p.ch, b) }

// Buffered returns the bytes available now, or 0 on bus error.
func (p *Port) Buffered() int {
	n, err := p.d.Buffered(p.ch)
	if err != nil {
		return 0
	}
	return n
}

// Flush waits for the transmit holding register to empty.
func (p *Port) Flush() error { return p.d.Flush(p.ch) }

// RecvSomeContext waits until at least one byte is available, then returns
// what is buffered (up to len(b)). Bus errors end the wait.
func (p *Port) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	iv := p.PollInterval
	if iv <= 0 {
		iv = DefaultPortPollInterval
	}
	var t *time.Timer
	for {
		n, err := p.d.ReadInto(p.ch, b)
		if n > 0 || err != nil {
			return n, err
		}
		if t == nil {
			t = time.NewTimer(iv)
			defer t.Stop()
		} else {
			t.Reset(iv)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}

// SetBaudRate reprograms the divisor.
func (p *Port) SetBaudRate(br uint32) error { return p.d.SetBaudRate(p.ch, br) }

// SetFormat programs the line format. parity: "none","odd","even","mark","space".
func (p *Port) SetFormat(databits, stopbits uint8, parity string) error {
	par, ok := ParseParity(parity)
	if !ok {
		return ErrInvalidParity
	}
	return p.d.SetLine(p.ch, databits, par, stopbits)
}

// ParseParity maps the names used by Parity.String back to values. The empty
// string means none.
func ParseParity(s string) (Parity, bool) {
	switch s {
	case "", "none":
		return NoParity, true
	case "odd":
		return Odd, true
	case "even":
		return Even, true
	case "mark":
		return ForcedParity1, true
	case "space":
		return ForcedParity0, true
	default:
		return NoParity, false
	}
}
