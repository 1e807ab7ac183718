package bridge

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/x/fmtx"
	"sc16is752-go/x/strx"

	"tinygo.org/x/drivers"
)

// Transport is a pluggable link dialler/owner.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu     sync.RWMutex
	registry  = map[string]transportFactory{}
	errNoDial = errors.New("UARTDial not implemented")

	errUnsupportedConfig = errors.New("unsupported bridge config payload")
)

// RegisterTransport allows external packages to add transports (eg. "ws", "tcp").
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "uart":
		return newUARTTransport(cfg)
	case "sc16is752":
		return newExpanderTransport(cfg)
	default:
		return nil, fmtx.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// ---- on-chip UART ----

// UARTDial is injected by platform code (eg. in main or a tinygo_uart.go).
// It must open and return an io.ReadWriteCloser over the configured UART.
var UARTDial func(ctx context.Context, u UARTConfig) (io.ReadWriteCloser, error)

type uartTransport struct {
	cfg TransportConfig
}

func newUARTTransport(cfg TransportConfig) (Transport, error) {
	if cfg.UART == nil {
		return nil, errors.New("uart transport requires uart config")
	}
	return &uartTransport{cfg: cfg}, nil
}

func (u *uartTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if UARTDial == nil {
		return nil, errNoDial
	}
	return UARTDial(ctx, *u.cfg.UART)
}

func (u *uartTransport) String() string { return "uart" }

// ---- SC16IS752 channel ----

// ExpanderConfig selects one channel of an SC16IS752. The bridge owns the
// channel outright; do not also hand it to the HAL.
type ExpanderConfig struct {
	Bus       string `json:"bus"`            // default "i2c0"
	Addr      int    `json:"addr,omitempty"` // default 0x4D
	Channel   string `json:"channel"`        // "a" | "b"
	Baud      uint32 `json:"baud,omitempty"` // default 115200
	PollLimit int    `json:"poll_limit,omitempty"`
	Reset     bool   `json:"reset,omitempty"`
}

// BusLookup resolves bus ids for the sc16is752 transport. It is injected by
// platform code.
var BusLookup func(id string) (drivers.I2C, bool)

const defaultExpanderBus = "i2c0"

var errNoBus = errors.New("sc16is752 transport: bus not available")

type expanderTransport struct {
	cfg ExpanderConfig
	ch  sc16is752.Channel
}

func newExpanderTransport(cfg TransportConfig) (Transport, error) {
	ec := cfg.Expander
	if ec == nil {
		return nil, errors.New("sc16is752 transport requires sc16is752 config")
	}
	var ch sc16is752.Channel
	switch ec.Channel {
	case "a", "A", "":
		ch = sc16is752.ChannelA
	case "b", "B":
		ch = sc16is752.ChannelB
	default:
		return nil, sc16is752.ErrInvalidChannel
	}
	if _, ok := sc16is752.ResolveAddress(uint16(ec.Addr)); ec.Addr != 0 && !ok {
		return nil, sc16is752.ErrInvalidAddress
	}
	return &expanderTransport{cfg: *ec, ch: ch}, nil
}

func (e *expanderTransport) String() string { return "sc16is752" }

func (e *expanderTransport) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	if BusLookup == nil {
		return nil, errNoBus
	}
	i2c, ok := BusLookup(strx.Coalesce(e.cfg.Bus, defaultExpanderBus))
	if !ok {
		return nil, errNoBus
	}
	dc := sc16is752.DefaultConfig()
	if e.cfg.Addr != 0 {
		dc.Address = uint16(e.cfg.Addr)
	}
	dc.PollLimit = e.cfg.PollLimit
	if dc.PollLimit == 0 {
		dc.PollLimit = 1000
	}
	dev, err := sc16is752.New(i2c, dc)
	if err != nil {
		return nil, err
	}
	if e.cfg.Reset {
		if err := dev.ResetDevice(); err != nil {
			return nil, err
		}
	}
	uc := sc16is752.DefaultUartConfig()
	if e.cfg.Baud != 0 {
		uc = uc.WithBaud(e.cfg.Baud)
	}
	if err := dev.InitialiseUART(e.ch, uc); err != nil {
		return nil, err
	}
	if err := dev.FifoReset(e.ch, false); err != nil {
		return nil, err
	}
	lctx, cancel := context.WithCancel(ctx)
	return &portConn{port: dev.Port(e.ch), ctx: lctx, cancel: cancel}, nil
}

// portConn turns a polled Port into a blocking stream. The reader goroutine
// and the writer share the Device, so every driver call holds mu; the poll
// sleep does not.
type portConn struct {
	mu     sync.Mutex
	port   *sc16is752.Port
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *portConn) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	iv := c.port.PollInterval
	if iv <= 0 {
		iv = sc16is752.DefaultPortPollInterval
	}
	t := time.NewTimer(iv)
	defer t.Stop()
	for {
		c.mu.Lock()
		n, err := c.port.Read(p)
		c.mu.Unlock()
		if n > 0 || err != nil {
			return n, err
		}
		select {
		case <-c.ctx.Done():
			return 0, io.EOF
		case <-t.C:
			t.Reset(iv)
		}
	}
}

func (c *portConn) Write(p []byte) (int, error) {
	if c.ctx.Err() != nil {
		return 0, io.ErrClosedPipe
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Write(p)
}

func (c *portConn) Close() error {
	c.cancel()
	return nil
}
