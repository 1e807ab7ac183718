package sc16is752_test

import (
	"testing"

	"sc16is752-go/drivers/sc16is752"
)

func TestDecodeInterrupt(t *testing.T) {
	cases := map[uint8]sc16is752.InterruptEvent{
		0x06: sc16is752.InterruptReceiveLineStatusError,
		0x0C: sc16is752.InterruptReceiveTimeout,
		0x04: sc16is752.InterruptRHR,
		0x02: sc16is752.InterruptTHR,
		0x00: sc16is752.InterruptModem,
		0x30: sc16is752.InterruptInputPinChange,
		0x10: sc16is752.InterruptReceiveXoff,
		0x20: sc16is752.InterruptCtsRtsChange,
		0x3E: sc16is752.InterruptUnknown,
		0x08: sc16is752.InterruptUnknown,
		// Bits outside 0x3E are ignored.
		0xC5: sc16is752.InterruptRHR,
		0x01: sc16is752.InterruptModem,
	}
	for in, want := range cases {
		if got := sc16is752.DecodeInterrupt(in); got != want {
			t.Fatalf("%#x: got %v want %v", in, got, want)
		}
	}
}

func TestISR(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	chip.SetReg(chB, 0x02, 0xCC)
	ev, err := d.ISR(sc16is752.ChannelB)
	if err != nil || ev != sc16is752.InterruptReceiveTimeout {
		t.Fatalf("got %v %v", ev, err)
	}
	if ev.String() != "receive_timeout" {
		t.Fatalf("string %q", ev.String())
	}
	pending, err := d.InterruptPending(sc16is752.ChannelB)
	if err != nil || !pending {
		t.Fatalf("pending %v %v", pending, err)
	}
	chip.SetReg(chB, 0x02, 0x01)
	if pending, _ := d.InterruptPending(sc16is752.ChannelB); pending {
		t.Fatal("IIR[0]=1 means nothing pending")
	}
}

func TestPendingInterrupt(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	if err := d.FifoEnable(sc16is752.ChannelA, true); err != nil {
		t.Fatal(err)
	}
	chip.SetReg(chA, 0x02, 0x01)
	chip.ClearLog()
	pending, ev, err := d.PendingInterrupt(sc16is752.ChannelA)
	if err != nil || pending || ev != sc16is752.InterruptNone || ev.String() != "none" {
		t.Fatalf("idle: pending=%v event=%v err=%v", pending, ev, err)
	}
	reads := 0
	for _, a := range chip.Accesses() {
		if !a.Write && a.Reg == 0x02 {
			reads++
		}
	}
	if reads != 1 {
		t.Fatalf("IIR read %d times", reads)
	}

	chip.SetReg(chA, 0x02, 0xC2)
	pending, ev, err = d.PendingInterrupt(sc16is752.ChannelA)
	if err != nil || !pending || ev != sc16is752.InterruptTHR {
		t.Fatalf("thr: pending=%v event=%v err=%v", pending, ev, err)
	}
}

func TestInterruptControl(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	if err := d.InterruptControl(sc16is752.ChannelA, 0x05); err != nil {
		t.Fatal(err)
	}
	if chip.Reg(chA, 0x01) != 0x05 {
		t.Fatalf("IER %#x", chip.Reg(chA, 0x01))
	}
}

func TestEnableFeatures_Inverted(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	if err := d.EnableFeatures(sc16is752.ChannelA, sc16is752.TxDisable, false); err != nil {
		t.Fatal(err)
	}
	if got := chip.Reg(chA, 0x0F); got != 0x04 {
		t.Fatalf("EFCR %#x after enable=false", got)
	}
	if err := d.EnableFeatures(sc16is752.ChannelA, sc16is752.Multidrop, false); err != nil {
		t.Fatal(err)
	}
	if err := d.EnableFeatures(sc16is752.ChannelA, sc16is752.TxDisable, true); err != nil {
		t.Fatal(err)
	}
	if got := chip.Reg(chA, 0x0F); got != 0x01 {
		t.Fatalf("EFCR %#x after enable=true", got)
	}
}

func TestPing(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	ok, err := d.Ping()
	if err != nil || !ok {
		t.Fatalf("ping %v %v", ok, err)
	}
	if n := len(chip.Accesses()); n != 8 {
		t.Fatalf("expected 8 transfers, got %d", n)
	}
}

func TestPing_MismatchStopsEarly(t *testing.T) {
	d, chip := newDev(t, sc16is752.Config{})
	chip.SetScratchMask(chA, 0x0F)
	ok, err := d.Ping()
	if err != nil || ok {
		t.Fatalf("ping %v %v", ok, err)
	}
	for _, a := range chip.Accesses() {
		if a.Ch == chB {
			t.Fatal("ping continued to channel B after a mismatch")
		}
	}

	d, chip = newDev(t, sc16is752.Config{})
	chip.SetScratchMask(chB, 0x7F) // 0x55 survives, 0xAA does not
	if ok, _ := d.Ping(); ok {
		t.Fatal("ping passed with a bad channel B scratch pad")
	}
}

func TestParseFeature(t *testing.T) {
	for _, name := range []string{"multidrop", "rx_disable", "tx_disable", "auto_rs485", "rs485_rts_invert", "irda_fast"} {
		f, ok := sc16is752.ParseFeature(name)
		if !ok || f.String() != name {
			t.Fatalf("%s: got %v %v", name, f, ok)
		}
	}
	if _, ok := sc16is752.ParseFeature("turbo"); ok {
		t.Fatal("unknown feature parsed")
	}
}
