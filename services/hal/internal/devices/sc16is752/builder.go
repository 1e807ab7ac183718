// Package sc16is752dev exposes an SC16IS752 expander to the HAL: one uart
// capability per configured channel, the GPIO port, and chip-level controls.
package sc16is752dev

import (
	"time"

	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/services/hal/internal/halerr"
	"sc16is752-go/services/hal/internal/registry"
	"sc16is752-go/services/hal/internal/util"
	"sc16is752-go/x/mathx"
)

func init() { registry.RegisterBuilder("sc16is752", builder{}) }

// Params is the device's "params" document.
type Params struct {
	Addr      int                      `json:"addr,omitempty"`       // 7- or 8-bit form; default 0x4D
	PollLimit int                      `json:"poll_limit,omitempty"` // LSR polls per byte; default 1000
	Probe     bool                     `json:"probe,omitempty"`      // scratch-pad ping before use
	Reset     bool                     `json:"reset,omitempty"`      // software reset before use
	SampleMS  int                      `json:"sample_ms,omitempty"`  // default 1000
	Channels  map[string]ChannelParams `json:"channels,omitempty"`   // keys "a" and/or "b"
	GPIO      *GPIOParams              `json:"gpio,omitempty"`
}

type ChannelParams struct {
	Baud      uint32 `json:"baud,omitempty"`     // default 115200
	DataBits  uint8  `json:"databits,omitempty"` // default 8
	StopBits  uint8  `json:"stopbits,omitempty"` // default 1
	Parity    string `json:"parity,omitempty"`   // none|odd|even|mark|space
	RXTrigger int    `json:"rx_trigger,omitempty"`
	TXTrigger int    `json:"tx_trigger,omitempty"`
	// Features maps a feature name to the driver's enable flag. The flag is
	// inverted at the register: false sets the EFCR bit.
	Features map[string]bool `json:"features,omitempty"`

	// RX reader
	Mode        string `json:"mode,omitempty"`          // "bytes" | "lines"
	MaxFrame    int    `json:"max_frame,omitempty"`     // default 64
	IdleFlushMS int    `json:"idle_flush_ms,omitempty"` // lines mode
	EchoTX      bool   `json:"echo_tx,omitempty"`
	NoReader    bool   `json:"no_reader,omitempty"`
}

// GPIOParams programs the port once at build time. Bit n is GPIOn.
type GPIOParams struct {
	Dir   uint8 `json:"dir"`
	State uint8 `json:"state"`
	IRQ   uint8 `json:"irq,omitempty"`
	Latch bool  `json:"latch,omitempty"`
	Modem bool  `json:"modem,omitempty"`
}

const (
	defaultPollLimit = 1000
	defaultSample    = time.Second
	defaultMaxFrame  = 64
)

func parseChannel(s string) (sc16is752.Channel, bool) {
	switch s {
	case "a", "A", "0":
		return sc16is752.ChannelA, true
	case "b", "B", "1":
		return sc16is752.ChannelB, true
	}
	return 0, false
}

// triggerUnits converts a byte count into TLR units of four bytes.
func triggerUnits(bytes int) uint8 {
	if bytes <= 0 {
		return 0
	}
	return uint8(mathx.Clamp(mathx.CeilDiv(uint(bytes), 4), 1, 15))
}

func (c ChannelParams) uartConfig() (sc16is752.UartConfig, error) {
	cfg := sc16is752.DefaultUartConfig()
	if c.Baud != 0 {
		cfg.Baud = c.Baud
	}
	if c.DataBits != 0 {
		cfg.WordLength = c.DataBits
	}
	if c.StopBits != 0 {
		cfg.StopBits = c.StopBits
	}
	par, ok := sc16is752.ParseParity(c.Parity)
	if !ok {
		return cfg, sc16is752.ErrInvalidParity
	}
	cfg.Parity = par
	return cfg, cfg.Validate()
}

type builder struct{}

func (builder) Build(in registry.BuildInput) (registry.BuildOutput, error) {
	if in.BusRefType != "i2c" || in.BusRefID == "" {
		return registry.BuildOutput{}, halerr.ErrMissingBusRef
	}
	if in.Buses == nil {
		return registry.BuildOutput{}, halerr.ErrUnknownBus
	}
	bus, ok := in.Buses.ByID(in.BusRefID)
	if !ok {
		return registry.BuildOutput{}, halerr.ErrUnknownBus
	}
	var p Params
	if err := util.DecodeJSON(in.ParamsJSON, &p); err != nil {
		return registry.BuildOutput{}, util.Errf("sc16is752 %s: params: %w", in.DeviceID, err)
	}
	if len(p.Channels) == 0 && p.GPIO == nil {
		return registry.BuildOutput{}, halerr.ErrNoChannels
	}
	if p.Addr < 0 || p.Addr > 0xFF {
		return registry.BuildOutput{}, util.Errf("sc16is752 %s: addr %d: %w", in.DeviceID, p.Addr, sc16is752.ErrInvalidAddress)
	}
	if p.PollLimit <= 0 {
		p.PollLimit = defaultPollLimit
	}

	dev, err := sc16is752.New(bus, sc16is752.Config{Address: uint16(p.Addr), PollLimit: p.PollLimit})
	if err != nil {
		return registry.BuildOutput{}, err
	}
	if p.Reset {
		if err := dev.ResetDevice(); err != nil {
			return registry.BuildOutput{}, err
		}
	}
	if p.Probe {
		ok, err := dev.Ping()
		if err != nil {
			return registry.BuildOutput{}, err
		}
		if !ok {
			return registry.BuildOutput{}, halerr.ErrProbeFailed
		}
	}

	ad := newAdaptor(in.DeviceID, dev)

	// Channels in A, B order so unit numbering is stable.
	var chans [2]*ChannelParams
	for key, cp := range p.Channels {
		ch, ok := parseChannel(key)
		if !ok {
			return registry.BuildOutput{}, util.Errf("sc16is752 %s: unknown channel %q", in.DeviceID, key)
		}
		chans[ch] = &cp
	}
	for i, cp := range chans {
		if cp == nil {
			continue
		}
		ch := sc16is752.Channel(i)
		if err := configureChannel(dev, ch, *cp); err != nil {
			return registry.BuildOutput{}, util.Errf("sc16is752 %s channel %s: %w", in.DeviceID, ch, err)
		}
		ad.addUART(ch, *cp)
	}
	if g := p.GPIO; g != nil {
		if err := configureGPIO(dev, *g); err != nil {
			return registry.BuildOutput{}, util.Errf("sc16is752 %s gpio: %w", in.DeviceID, err)
		}
		ad.gpio = true
	}

	sample := defaultSample
	if p.SampleMS > 0 {
		sample = time.Duration(p.SampleMS) * time.Millisecond
	}
	out := registry.BuildOutput{
		Adaptor:     ad,
		BusID:       in.BusRefID,
		SampleEvery: sample,
	}
	for _, u := range ad.uarts {
		if u.params.NoReader {
			continue
		}
		mode := "bytes"
		if u.params.Mode == "lines" {
			mode = "lines"
		}
		maxf := u.params.MaxFrame
		if maxf <= 0 {
			maxf = defaultMaxFrame
		}
		out.UARTs = append(out.UARTs, registry.UARTRequest{
			DevID:         in.DeviceID,
			Unit:          int(u.ch),
			Port:          ad.lockedPort(u.ch),
			Mode:          mode,
			MaxFrame:      maxf,
			IdleFlushMS:   u.params.IdleFlushMS,
			PublishTXEcho: u.params.EchoTX,
		})
	}
	return out, nil
}

func configureChannel(dev *sc16is752.Device, ch sc16is752.Channel, cp ChannelParams) error {
	cfg, err := cp.uartConfig()
	if err != nil {
		return err
	}
	if err := dev.InitialiseUART(ch, cfg); err != nil {
		return err
	}
	if n := triggerUnits(cp.RXTrigger); n > 0 {
		if err := dev.FifoSetTriggerLevel(ch, true, n); err != nil {
			return err
		}
	}
	if n := triggerUnits(cp.TXTrigger); n > 0 {
		if err := dev.FifoSetTriggerLevel(ch, false, n); err != nil {
			return err
		}
	}
	for name, enable := range cp.Features {
		f, ok := sc16is752.ParseFeature(name)
		if !ok {
			return util.Errf("unknown feature %q", name)
		}
		if err := dev.EnableFeatures(ch, f, enable); err != nil {
			return err
		}
	}
	return nil
}

func configureGPIO(dev *sc16is752.Device, g GPIOParams) error {
	if err := dev.SetPortState(g.State); err != nil {
		return err
	}
	if err := dev.SetPortMode(g.Dir); err != nil {
		return err
	}
	if err := dev.SetPinInterrupt(g.IRQ); err != nil {
		return err
	}
	if err := dev.GPIOLatch(g.Latch); err != nil {
		return err
	}
	return dev.ModemPin(g.Modem)
}
