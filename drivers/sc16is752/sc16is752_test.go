package sc16is752_test

import (
	"errors"
	"testing"

	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/drivers/sc16is752/sim"
)

const (
	chA = uint8(sc16is752.ChannelA)
	chB = uint8(sc16is752.ChannelB)
)

func newDev(t *testing.T, cfg sc16is752.Config) (*sc16is752.Device, *sim.Chip) {
	t.Helper()
	if cfg.Address == 0 {
		cfg.Address = sc16is752.AddressDefault
	}
	addr, ok := sc16is752.ResolveAddress(cfg.Address)
	if !ok {
		t.Fatalf("bad test address %#x", cfg.Address)
	}
	chip := sim.New(addr)
	d, err := sc16is752.New(chip, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, chip
}

func TestResolveAddress_ShiftedForm(t *testing.T) {
	for raw := uint16(0x90); raw <= 0xAE; raw += 2 {
		got, ok := sc16is752.ResolveAddress(raw)
		if !ok || got != raw>>1 {
			t.Fatalf("raw %#x: got %#x ok=%v", raw, got, ok)
		}
		if got < sc16is752.AddressMin || got > sc16is752.AddressMax {
			t.Fatalf("raw %#x resolved out of range: %#x", raw, got)
		}
	}
}

func TestResolveAddress_Identity(t *testing.T) {
	for raw := uint16(0x48); raw <= 0x57; raw++ {
		if got, ok := sc16is752.ResolveAddress(raw); !ok || got != raw {
			t.Fatalf("raw %#x: got %#x ok=%v", raw, got, ok)
		}
	}
	if _, ok := sc16is752.ResolveAddress(0x10); ok {
		t.Fatal("0x10 must not resolve")
	}
}

func TestNew(t *testing.T) {
	chip := sim.New(0x4D)
	d, err := sc16is752.New(chip, sc16is752.Config{})
	if err != nil {
		t.Fatalf("default address: %v", err)
	}
	if d.Address() != sc16is752.AddressDefault {
		t.Fatalf("default address: %#x", d.Address())
	}
	d, err = sc16is752.New(chip, sc16is752.Config{Address: 0x9A})
	if err != nil {
		t.Fatalf("8-bit address: %v", err)
	}
	if d.Address() != 0x4D {
		t.Fatalf("8-bit address resolved to %#x", d.Address())
	}
	if _, err := sc16is752.New(chip, sc16is752.Config{Address: 0x20}); !errors.Is(err, sc16is752.ErrInvalidAddress) {
		t.Fatalf("want ErrInvalidAddress, got %v", err)
	}
	if n := len(chip.Accesses()); n != 0 {
		t.Fatalf("New must not touch the bus, saw %d transfers", n)
	}
}

func TestRegisterAddress(t *testing.T) {
	for reg := uint8(0); reg < 16; reg++ {
		for _, ch := range []sc16is752.Channel{sc16is752.ChannelA, sc16is752.ChannelB} {
			want := reg<<3 | uint8(ch)<<1
			if got := sc16is752.RegisterAddress(reg, ch); got != want {
				t.Fatalf("reg %#x ch %v: got %#x want %#x", reg, ch, got, want)
			}
		}
	}
	if sc16is752.RegisterAddress(0x0F, sc16is752.ChannelB) != 0x7A {
		t.Fatal("EFCR on B should encode as 0x7A")
	}
}

func TestInvalidChannel(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	bad := sc16is752.Channel(2)
	if _, err := d.FifoAvailableData(bad); !errors.Is(err, sc16is752.ErrInvalidChannel) {
		t.Fatalf("got %v", err)
	}
	if _, _, err := d.ReadByte(bad); !errors.Is(err, sc16is752.ErrInvalidChannel) {
		t.Fatalf("got %v", err)
	}
	if err := d.FifoReset(bad, false); !errors.Is(err, sc16is752.ErrInvalidChannel) {
		t.Fatalf("got %v", err)
	}
	if n := len(chip.Accesses()); n != 0 {
		t.Fatalf("invalid channel reached the bus (%d transfers)", n)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	boom := errors.New("arbitration lost")
	chip.FailAfter(0, boom)
	if _, err := d.PortState(); err != boom {
		t.Fatalf("want transport error verbatim, got %v", err)
	}
	if err := d.SetPinMode(sc16is752.GPIO1, sc16is752.Output); err != boom {
		t.Fatalf("want transport error verbatim, got %v", err)
	}
	// Fail in the middle of a read-modify-write: the read succeeds, the write fails.
	chip.FailAfter(1, boom)
	if err := d.GPIOLatch(true); err != boom {
		t.Fatalf("got %v", err)
	}
}
