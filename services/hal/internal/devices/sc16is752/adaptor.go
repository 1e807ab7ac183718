package sc16is752dev

import (
	"context"
	"sync"
	"time"

	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/errcode"
	"sc16is752-go/services/hal/internal/consts"
	"sc16is752-go/services/hal/internal/halcore"
	"sc16is752-go/services/hal/internal/halerr"
	"sc16is752-go/services/hal/internal/uartio"
	"sc16is752-go/services/hal/internal/util"
	"sc16is752-go/types"
	"sc16is752-go/x/timex"
)

type uartUnit struct {
	ch     sc16is752.Channel
	port   *sc16is752.Port
	params ChannelParams
}

// adaptor owns the Device. Every driver call happens under mu because the
// measure worker, the control path and the RX readers run concurrently.
type adaptor struct {
	id    string
	mu    sync.Mutex
	dev   *sc16is752.Device
	uarts []uartUnit
	gpio  bool
}

func newAdaptor(id string, dev *sc16is752.Device) *adaptor {
	return &adaptor{id: id, dev: dev}
}

func (a *adaptor) addUART(ch sc16is752.Channel, p ChannelParams) {
	a.uarts = append(a.uarts, uartUnit{ch: ch, port: a.dev.Port(ch), params: p})
}

func (a *adaptor) uart(unit int) (*uartUnit, bool) {
	for i := range a.uarts {
		if int(a.uarts[i].ch) == unit {
			return &a.uarts[i], true
		}
	}
	return nil, false
}

func (a *adaptor) ID() string { return a.id }

func (a *adaptor) Capabilities() []halcore.CapInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	addr := int(a.dev.Address())
	caps := make([]halcore.CapInfo, 0, len(a.uarts)+2)
	for _, u := range a.uarts {
		cfg, _ := u.params.uartConfig()
		caps = append(caps, halcore.CapInfo{
			Kind: consts.KindUART,
			Unit: int(u.ch),
			Info: map[string]any{
				"schema_version": 1,
				"driver":         "sc16is752",
				"addr":           addr,
				"channel":        u.ch.String(),
				"baud":           cfg.Baud,
				"format":         formatString(cfg),
			},
		})
	}
	if a.gpio {
		caps = append(caps, halcore.CapInfo{
			Kind: consts.KindGPIO,
			Info: map[string]any{"schema_version": 1, "driver": "sc16is752", "addr": addr, "pins": 8},
		})
	}
	caps = append(caps, halcore.CapInfo{
		Kind: consts.KindExpander,
		Info: map[string]any{"schema_version": 1, "driver": "sc16is752", "addr": addr},
	})
	return caps
}

func formatString(c sc16is752.UartConfig) string {
	p := c.Parity.String()
	return string([]byte{'0' + c.WordLength, p[0] - 'a' + 'A', '0' + c.StopBits})
}

// Levels are read directly; there is nothing to wait for between phases.
func (a *adaptor) Trigger(ctx context.Context) (time.Duration, error) {
	return 0, nil
}

func (a *adaptor) Collect(ctx context.Context) (halcore.Sample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ts := timex.NowMs()
	s := make(halcore.Sample, 0, len(a.uarts)+1)
	for _, u := range a.uarts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rx, err := a.dev.FifoAvailableData(u.ch)
		if err != nil {
			return nil, err
		}
		tx, err := a.dev.FifoAvailableSpace(u.ch)
		if err != nil {
			return nil, err
		}
		pending, ev, err := a.dev.PendingInterrupt(u.ch)
		if err != nil {
			return nil, err
		}
		s = append(s, halcore.Reading{
			Kind: consts.KindUART,
			Unit: int(u.ch),
			Payload: types.UARTLevels{
				RxLevel: rx, TxSpace: tx, Interrupt: ev.String(), Pending: pending, TS: ts,
			},
			TsMs: ts,
		})
	}
	if a.gpio {
		state, err := a.dev.PortState()
		if err != nil {
			return nil, err
		}
		dir, err := a.dev.PortMode()
		if err != nil {
			return nil, err
		}
		s = append(s, halcore.Reading{
			Kind:    consts.KindGPIO,
			Payload: types.GPIOPort{State: state, Dir: dir, TS: ts},
			TsMs:    ts,
		})
	}
	return s, nil
}

// Control routes to the first unit of the kind.
func (a *adaptor) Control(kind, method string, payload any) (any, error) {
	unit := 0
	if kind == consts.KindUART && len(a.uarts) > 0 {
		unit = int(a.uarts[0].ch)
	}
	return a.ControlUnit(kind, unit, method, payload)
}

// ControlUnit implements halcore.UnitController. Driver errors come back
// wrapped with an errcode.
func (a *adaptor) ControlUnit(kind string, unit int, method string, payload any) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		res any
		err error
	)
	switch kind {
	case consts.KindUART:
		u, ok := a.uart(unit)
		if !ok {
			return nil, halerr.ErrUnknownCap
		}
		res, err = a.controlUART(u, method, payload)
	case consts.KindGPIO:
		if !a.gpio {
			return nil, halerr.ErrUnknownCap
		}
		res, err = a.controlGPIO(method, payload)
	case consts.KindExpander:
		res, err = a.controlExpander(method, payload)
	default:
		return nil, halcore.ErrUnsupported
	}
	return res, wrap(method, err)
}

// wrap tags driver and bus errors; HAL errors are already stable codes.
func wrap(method string, err error) error {
	switch err {
	case nil, halcore.ErrUnsupported, halerr.ErrInvalidPayload, halerr.ErrInvalidMode, halerr.ErrUnknownCap:
		return err
	}
	return errcode.Wrap(method, err)
}

// ---- uart ----

func (a *adaptor) controlUART(u *uartUnit, method string, payload any) (any, error) {
	switch method {
	case consts.UARTWrite:
		data, ok := uartio.DecodeWrite(payload)
		if !ok {
			return nil, halerr.ErrInvalidPayload
		}
		n, err := u.port.Write(data)
		return map[string]any{"ok": err == nil, "n": n}, err

	case consts.UARTRead:
		var r struct {
			Max int `json:"max"`
		}
		if err := util.DecodeJSON(payload, &r); err != nil {
			return nil, halerr.ErrInvalidPayload
		}
		if r.Max <= 0 {
			r.Max = sc16is752.FIFODepth
		}
		data, err := a.dev.Read(u.ch, r.Max)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": data, "n": len(data)}, nil

	case consts.UARTFlush:
		return types.OKReply{OK: true}, u.port.Flush()

	case consts.UARTSetBaud:
		var r types.UARTSetBaud
		if err := util.DecodeJSON(payload, &r); err != nil || r.Baud == 0 {
			return nil, halerr.ErrInvalidPayload
		}
		if err := u.port.SetBaudRate(r.Baud); err != nil {
			return nil, err
		}
		u.params.Baud = r.Baud
		return types.OKReply{OK: true}, nil

	case consts.UARTSetFormat:
		var r types.UARTSetFormat
		if err := util.DecodeJSON(payload, &r); err != nil {
			return nil, halerr.ErrInvalidPayload
		}
		if err := u.port.SetFormat(r.DataBits, r.StopBits, r.Parity); err != nil {
			return nil, err
		}
		u.params.DataBits, u.params.StopBits, u.params.Parity = r.DataBits, r.StopBits, r.Parity
		return types.OKReply{OK: true}, nil

	case consts.UARTResetFIFO:
		var r struct {
			TX bool `json:"tx"`
			RX bool `json:"rx"`
		}
		if err := util.DecodeJSON(payload, &r); err != nil {
			return nil, halerr.ErrInvalidPayload
		}
		if !r.TX && !r.RX {
			r.TX, r.RX = true, true
		}
		if r.TX {
			if err := a.dev.FifoReset(u.ch, true); err != nil {
				return nil, err
			}
		}
		if r.RX {
			if err := a.dev.FifoReset(u.ch, false); err != nil {
				return nil, err
			}
		}
		return types.OKReply{OK: true}, nil

	case consts.UARTFeature:
		var r struct {
			Name   string `json:"name"`
			Enable bool   `json:"enable"`
		}
		if err := util.DecodeJSON(payload, &r); err != nil {
			return nil, halerr.ErrInvalidPayload
		}
		f, ok := sc16is752.ParseFeature(r.Name)
		if !ok {
			return nil, halerr.ErrInvalidPayload
		}
		return types.OKReply{OK: true}, a.dev.EnableFeatures(u.ch, f, r.Enable)
	}
	return nil, halcore.ErrUnsupported
}

// ---- gpio ----

type pinReq struct {
	Pin   *int   `json:"pin"`
	Level *int   `json:"level,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

func decodePin(payload any) (pinReq, sc16is752.GPIO, bool) {
	var r pinReq
	if err := util.DecodeJSON(payload, &r); err != nil || r.Pin == nil || *r.Pin < 0 || *r.Pin > 7 {
		return r, 0, false
	}
	return r, sc16is752.GPIO(*r.Pin), true
}

func (a *adaptor) controlGPIO(method string, payload any) (any, error) {
	switch method {
	case consts.GPIOGet:
		_, pin, ok := decodePin(payload)
		if !ok {
			return nil, halerr.ErrInvalidPayload
		}
		st, err := a.dev.PinState(pin)
		if err != nil {
			return nil, err
		}
		return types.GPIOPin{Pin: int(pin), Level: util.BoolToInt(st == sc16is752.High)}, nil

	case consts.GPIOSet:
		r, pin, ok := decodePin(payload)
		if !ok || r.Level == nil {
			return nil, halerr.ErrInvalidPayload
		}
		st := sc16is752.Low
		if *r.Level != 0 {
			st = sc16is752.High
		}
		return types.OKReply{OK: true}, a.dev.SetPinState(pin, st)

	case consts.GPIOMode:
		r, pin, ok := decodePin(payload)
		if !ok {
			return nil, halerr.ErrInvalidPayload
		}
		var m sc16is752.PinMode
		switch r.Mode {
		case "input":
			m = sc16is752.Input
		case "output":
			m = sc16is752.Output
		default:
			return nil, halerr.ErrInvalidMode
		}
		return types.OKReply{OK: true}, a.dev.SetPinMode(pin, m)

	case consts.GPIOGetPort:
		state, err := a.dev.PortState()
		if err != nil {
			return nil, err
		}
		dir, err := a.dev.PortMode()
		if err != nil {
			return nil, err
		}
		return types.GPIOPort{State: state, Dir: dir, TS: timex.NowMs()}, nil

	case consts.GPIOSetPort:
		var r struct {
			State *uint8 `json:"state"`
			Dir   *uint8 `json:"dir"`
		}
		if err := util.DecodeJSON(payload, &r); err != nil || (r.State == nil && r.Dir == nil) {
			return nil, halerr.ErrInvalidPayload
		}
		if r.State != nil {
			if err := a.dev.SetPortState(*r.State); err != nil {
				return nil, err
			}
		}
		if r.Dir != nil {
			if err := a.dev.SetPortMode(*r.Dir); err != nil {
				return nil, err
			}
		}
		return types.OKReply{OK: true}, nil

	case consts.GPIOIRQ:
		var r struct {
			Mask *uint8 `json:"mask"`
		}
		if err := util.DecodeJSON(payload, &r); err != nil || r.Mask == nil {
			return nil, halerr.ErrInvalidPayload
		}
		return types.OKReply{OK: true}, a.dev.SetPinInterrupt(*r.Mask)
	}
	return nil, halcore.ErrUnsupported
}

// ---- expander ----

func (a *adaptor) controlExpander(method string, payload any) (any, error) {
	switch method {
	case consts.ExpPing:
		ok, err := a.dev.Ping()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errcode.PingFailed
		}
		return types.OKReply{OK: true}, nil

	case consts.ExpReset:
		if err := a.dev.ResetDevice(); err != nil {
			return nil, err
		}
		return types.OKReply{OK: true}, nil

	case consts.ExpISR:
		var r struct {
			Channel string `json:"channel"`
		}
		if err := util.DecodeJSON(payload, &r); err != nil {
			return nil, halerr.ErrInvalidPayload
		}
		if r.Channel == "" {
			r.Channel = "a"
		}
		ch, ok := parseChannel(r.Channel)
		if !ok {
			return nil, halerr.ErrInvalidPayload
		}
		pending, ev, err := a.dev.PendingInterrupt(ch)
		if err != nil {
			return nil, err
		}
		return map[string]any{"channel": ch.String(), "pending": pending, "event": ev.String()}, nil
	}
	return nil, halcore.ErrUnsupported
}

// ---- locked port for the RX reader ----

// lockedPort takes the adaptor lock per driver call and releases it between
// polls so controls are not starved while a reader waits.
type lockedPort struct {
	a  *adaptor
	p  *sc16is752.Port
	iv time.Duration
}

func (a *adaptor) lockedPort(ch sc16is752.Channel) *lockedPort {
	return &lockedPort{a: a, p: a.dev.Port(ch), iv: sc16is752.DefaultPortPollInterval}
}

func (l *lockedPort) WriteByte(b byte) error {
	l.a.mu.Lock()
	defer l.a.mu.Unlock()
	return l.p.WriteByte(b)
}

func (l *lockedPort) Write(b []byte) (int, error) {
	l.a.mu.Lock()
	defer l.a.mu.Unlock()
	return l.p.Write(b)
}

func (l *lockedPort) Buffered() int {
	l.a.mu.Lock()
	defer l.a.mu.Unlock()
	return l.p.Buffered()
}

func (l *lockedPort) Read(b []byte) (int, error) {
	l.a.mu.Lock()
	defer l.a.mu.Unlock()
	return l.p.Read(b)
}

func (l *lockedPort) RecvSomeContext(ctx context.Context, b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	t := time.NewTimer(l.iv)
	defer t.Stop()
	for {
		n, err := l.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
		util.ResetTimer(t, l.iv)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}
