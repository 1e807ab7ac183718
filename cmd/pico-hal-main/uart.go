//go:build rp2040 || rp2350

package main

import (
	"context"
	"errors"
	"io"
	"machine"

	"sc16is752-go/services/bridge"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

var errNoUART = errors.New("no free uart for pins")

// uartConn adapts uartx to the stream the bridge expects. Reads block until
// data arrives or the conn is closed.
type uartConn struct {
	u      *uartx.UART
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *uartConn) Read(p []byte) (int, error) {
	n, err := c.u.RecvSomeContext(c.ctx, p)
	if err != nil && c.ctx.Err() != nil {
		return n, io.EOF
	}
	return n, err
}

func (c *uartConn) Write(p []byte) (int, error) {
	if c.ctx.Err() != nil {
		return 0, io.ErrClosedPipe
	}
	return c.u.Write(p)
}

func (c *uartConn) Close() error { c.cancel(); return nil }

// dialUART picks the hardware UART whose TX pin matches the config.
func dialUART(ctx context.Context, cfg bridge.UARTConfig) (io.ReadWriteCloser, error) {
	var hw *uartx.UART
	switch machine.Pin(cfg.TxPin) {
	case machine.UART0_TX_PIN:
		hw = uartx.UART0
	case machine.UART1_TX_PIN:
		hw = uartx.UART1
	default:
		return nil, errNoUART
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: uint32(cfg.Baud),
		TX:       machine.Pin(cfg.TxPin),
		RX:       machine.Pin(cfg.RxPin),
	}); err != nil {
		return nil, err
	}
	cctx, cancel := context.WithCancel(ctx)
	return &uartConn{u: hw, ctx: cctx, cancel: cancel}, nil
}
