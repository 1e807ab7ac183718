package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/services/hal"
	"sc16is752-go/types"

	"github.com/google/shlex"
	"tinygo.org/x/drivers"
)

var errUsage = errors.New("usage")

// session executes commands against one expander.
type session struct {
	dev *sc16is752.Device
	i2c drivers.I2C
	out io.Writer
}

func newSession(dev *sc16is752.Device, i2c drivers.I2C, out io.Writer) *session {
	return &session{dev: dev, i2c: i2c, out: out}
}

type command struct {
	usage string
	min   int
	run   func(s *session, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"ping":       {"ping", 0, (*session).ping},
		"reset":      {"reset", 0, func(s *session, _ context.Context, _ []string) error { return s.dev.ResetDevice() }},
		"init":       {"init CH BAUD [8N1]", 2, (*session).init},
		"baud":       {"baud CH BAUD", 2, (*session).baud},
		"format":     {"format CH 8N1", 2, (*session).format},
		"write":      {"write CH TEXT...", 2, (*session).write},
		"writehex":   {"writehex CH HEX", 2, (*session).writeHex},
		"read":       {"read CH [N]", 1, (*session).read},
		"readall":    {"readall CH", 1, (*session).readAll},
		"peek":       {"peek CH", 1, (*session).peek},
		"flush":      {"flush CH", 1, (*session).flush},
		"levels":     {"levels CH", 1, (*session).levels},
		"reset-fifo": {"reset-fifo CH rx|tx", 2, (*session).resetFIFO},
		"trigger":    {"trigger CH rx|tx LEVEL", 3, (*session).trigger},
		"feature":    {"feature CH NAME on|off", 3, (*session).feature},
		"isr":        {"isr CH", 1, (*session).isr},
		"irq":        {"irq CH IER", 2, (*session).irq},
		"gpio":       {"gpio dir|set|get|port|irq ...", 1, (*session).gpio},
		"latch":      {"latch on|off", 1, (*session).latch},
		"modem":      {"modem on|off", 1, (*session).modem},
		"sleep":      {"sleep MS", 1, (*session).sleep},
		"monitor":    {"monitor SECONDS [CH...]", 1, (*session).monitor},
	}
}

func (s *session) printf(format string, args ...any) { fmt.Fprintf(s.out, format, args...) }

// exec runs one tokenised command.
func (s *session) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	c, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%s: unknown command", args[0])
	}
	if len(args)-1 < c.min {
		return fmt.Errorf("%w: %s", errUsage, c.usage)
	}
	if err := c.run(s, ctx, args[1:]); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

// runScript executes one command per line. Blank lines and # comments are
// skipped; the first error stops the script.
func (s *session) runScript(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		args, err := shlex.Split(sc.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if err := s.exec(ctx, args); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return sc.Err()
}

// ---- argument parsing ----

func parseChannel(s string) (sc16is752.Channel, error) {
	switch strings.ToLower(s) {
	case "a", "0":
		return sc16is752.ChannelA, nil
	case "b", "1":
		return sc16is752.ChannelB, nil
	}
	return 0, sc16is752.ErrInvalidChannel
}

func parseU8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return uint8(v), err
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true", "enable":
		return true, nil
	case "off", "0", "false", "disable":
		return false, nil
	}
	return false, fmt.Errorf("%q: want on or off", s)
}

func parseDirection(s string) (tx bool, err error) {
	switch s {
	case "tx":
		return true, nil
	case "rx":
		return false, nil
	}
	return false, fmt.Errorf("%q: want rx or tx", s)
}

// parseFormat reads "8N1" style line settings.
func parseFormat(s string) (word uint8, par sc16is752.Parity, stop uint8, err error) {
	if len(s) != 3 {
		return 0, 0, 0, fmt.Errorf("%q: want e.g. 8N1", s)
	}
	word = s[0] - '0'
	stop = s[2] - '0'
	switch s[1] {
	case 'N', 'n':
		par = sc16is752.NoParity
	case 'O', 'o':
		par = sc16is752.Odd
	case 'E', 'e':
		par = sc16is752.Even
	case 'M', 'm':
		par = sc16is752.ForcedParity1
	case 'S', 's':
		par = sc16is752.ForcedParity0
	default:
		return 0, 0, 0, sc16is752.ErrInvalidParity
	}
	return word, par, stop, nil
}

// ---- commands ----

func (s *session) ping(_ context.Context, _ []string) error {
	ok, err := s.dev.Ping()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("scratch pad mismatch")
	}
	s.printf("ok %#02x\n", s.dev.Address())
	return nil
}

func (s *session) init(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	baud, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return err
	}
	cfg := sc16is752.DefaultUartConfig().WithBaud(uint32(baud))
	if len(args) > 2 {
		if cfg.WordLength, cfg.Parity, cfg.StopBits, err = parseFormat(args[2]); err != nil {
			return err
		}
	}
	return s.dev.InitialiseUART(ch, cfg)
}

func (s *session) baud(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	baud, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return err
	}
	return s.dev.SetBaudRate(ch, uint32(baud))
}

func (s *session) format(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	w, p, st, err := parseFormat(args[1])
	if err != nil {
		return err
	}
	return s.dev.SetLine(ch, w, p, st)
}

func (s *session) write(ctx context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	_, err = s.dev.WriteContext(ctx, ch, []byte(strings.Join(args[1:], " ")))
	return err
}

func (s *session) writeHex(ctx context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.Join(args[1:], ""))
	if err != nil {
		return err
	}
	_, err = s.dev.WriteContext(ctx, ch, b)
	return err
}

func (s *session) read(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	n := sc16is752.FIFODepth
	if len(args) > 1 {
		if n, err = strconv.Atoi(args[1]); err != nil {
			return err
		}
	}
	b, err := s.dev.Read(ch, n)
	if err != nil {
		return err
	}
	s.printf("%q\n", b)
	return nil
}

func (s *session) readAll(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	b, err := s.dev.ReadAll(ch)
	if err != nil {
		return err
	}
	s.printf("%q\n", b)
	return nil
}

func (s *session) peek(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	b, ok, err := s.dev.Peek(ch)
	if err != nil {
		return err
	}
	if !ok {
		s.printf("empty\n")
		return nil
	}
	s.printf("%#02x\n", b)
	return nil
}

func (s *session) flush(ctx context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	return s.dev.FlushContext(ctx, ch)
}

func (s *session) levels(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	rx, err := s.dev.FifoAvailableData(ch)
	if err != nil {
		return err
	}
	tx, err := s.dev.FifoAvailableSpace(ch)
	if err != nil {
		return err
	}
	s.printf("rx=%d tx_space=%d\n", rx, tx)
	return nil
}

func (s *session) resetFIFO(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	tx, err := parseDirection(args[1])
	if err != nil {
		return err
	}
	return s.dev.FifoReset(ch, tx)
}

func (s *session) trigger(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	tx, err := parseDirection(args[1])
	if err != nil {
		return err
	}
	lvl, err := parseU8(args[2])
	if err != nil {
		return err
	}
	return s.dev.FifoSetTriggerLevel(ch, !tx, lvl)
}

func (s *session) feature(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	f, ok := sc16is752.ParseFeature(args[1])
	if !ok {
		return fmt.Errorf("%q: unknown feature", args[1])
	}
	on, err := parseOnOff(args[2])
	if err != nil {
		return err
	}
	return s.dev.EnableFeatures(ch, f, on)
}

func (s *session) isr(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	_, ev, err := s.dev.PendingInterrupt(ch)
	if err != nil {
		return err
	}
	s.printf("%s\n", ev)
	return nil
}

func (s *session) irq(_ context.Context, args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	ier, err := parseU8(args[1])
	if err != nil {
		return err
	}
	return s.dev.InterruptControl(ch, ier)
}

func (s *session) gpio(_ context.Context, args []string) error {
	switch args[0] {
	case "dir":
		if len(args) < 2 {
			return errUsage
		}
		m, err := parseU8(args[1])
		if err != nil {
			return err
		}
		return s.dev.SetPortMode(m)
	case "port":
		if len(args) > 1 {
			v, err := parseU8(args[1])
			if err != nil {
				return err
			}
			return s.dev.SetPortState(v)
		}
		v, err := s.dev.PortState()
		if err != nil {
			return err
		}
		s.printf("%#02x\n", v)
		return nil
	case "irq":
		if len(args) < 2 {
			return errUsage
		}
		m, err := parseU8(args[1])
		if err != nil {
			return err
		}
		return s.dev.SetPinInterrupt(m)
	case "set", "get":
		if len(args) < 2 {
			return errUsage
		}
		pin, err := parseU8(args[1])
		if err != nil {
			return err
		}
		if args[0] == "get" {
			st, err := s.dev.PinState(sc16is752.GPIO(pin))
			if err != nil {
				return err
			}
			s.printf("%s\n", st)
			return nil
		}
		if len(args) < 3 {
			return errUsage
		}
		on, err := parseOnOff(args[2])
		if err != nil {
			return err
		}
		st := sc16is752.Low
		if on {
			st = sc16is752.High
		}
		return s.dev.SetPinState(sc16is752.GPIO(pin), st)
	}
	return fmt.Errorf("%q: unknown gpio verb", args[0])
}

func (s *session) latch(_ context.Context, args []string) error {
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return s.dev.GPIOLatch(on)
}

func (s *session) modem(_ context.Context, args []string) error {
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return s.dev.ModemPin(on)
}

func (s *session) sleep(ctx context.Context, args []string) error {
	ms, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// monitor hands the expander to the HAL for a while and prints what it
// publishes. Channels default to both, in lines mode.
func (s *session) monitor(ctx context.Context, args []string) error {
	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil || secs <= 0 {
		return fmt.Errorf("%q: want seconds", args[0])
	}
	chans := map[string]any{}
	for _, a := range args[1:] {
		ch, err := parseChannel(a)
		if err != nil {
			return err
		}
		chans[strings.ToLower(ch.String())] = map[string]any{"mode": "lines"}
	}
	if len(chans) == 0 {
		chans["a"] = map[string]any{"mode": "lines"}
		chans["b"] = map[string]any{"mode": "lines"}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(secs*float64(time.Second)))
	defer cancel()

	b := bus.NewBus(32)
	halConn := b.NewConnection("hal")
	mon := b.NewConnection("monitor")
	events := mon.Subscribe(bus.Topic{"hal", "capability", "uart", bus.Single, "event"})
	state := mon.Subscribe(bus.Topic{"hal", "state"})

	done := make(chan struct{})
	go func() {
		hal.Run(ctx, halConn, hal.Buses{"cli": s.i2c})
		close(done)
	}()
	defer func() { <-done }()

	halConn.Publish(halConn.NewMessage(bus.Topic{"config", "hal"}, types.HALConfig{Devices: []types.Device{{
		ID:     "cli",
		Type:   "sc16is752",
		BusRef: types.BusRef{Type: "i2c", ID: "cli"},
		Params: map[string]any{"addr": int(s.dev.Address()), "channels": chans},
	}}}, true))

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-state.Channel():
			if st, ok := m.Payload.(types.HALState); ok {
				s.printf("hal %s %s %s\n", st.Level, st.Status, st.Error)
			}
		case m := <-events.Channel():
			if ev, ok := m.Payload.(types.UARTEvent); ok {
				s.printf("uart/%v %s %q\n", m.Topic[3], ev.Dir, ev.Data)
			}
		}
	}
}
