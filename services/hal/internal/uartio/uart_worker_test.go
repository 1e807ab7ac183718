package uartio

import (
	"context"
	"testing"
	"time"

	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/drivers/sc16is752/sim"
)

// The reader runs over a real driver Port backed by the register model.
func newPort(t *testing.T, ch sc16is752.Channel) (*sc16is752.Port, *sim.Chip) {
	t.Helper()
	chip := sim.New(sc16is752.AddressDefault)
	d, err := sc16is752.New(chip, sc16is752.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	p := d.Port(ch)
	p.PollInterval = time.Millisecond
	return p, chip
}

func recvEvent(ch <-chan Event, d time.Duration) (Event, bool) {
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(d):
		return Event{}, false
	}
}

func TestUARTWorker_BytesMode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, chip := newPort(t, sc16is752.ChannelB)
	w := New(8)
	stop, err := w.Register(ctx, ReaderCfg{DevID: "u1", Unit: 1, Port: p, Mode: "bytes", MaxFrame: 16})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer stop()

	chip.InjectRX(1, []byte("abc")...)
	ev, ok := recvEvent(w.Events(), time.Second)
	if !ok {
		t.Fatal("timeout waiting for rx")
	}
	if ev.DevID != "u1" || ev.Unit != 1 || ev.Dir != "rx" {
		t.Fatalf("unexpected meta: %+v", ev)
	}
	if string(ev.Data) != "abc" {
		t.Fatalf("unexpected data: %q", ev.Data)
	}
	if ev.TS.IsZero() {
		t.Fatal("timestamp not set")
	}

	// Larger than one frame arrives in MaxFrame-sized chunks.
	chip.InjectRX(1, []byte("0123456789abcdefXYZ")...)
	var got []byte
	for len(got) < 19 {
		ev, ok := recvEvent(w.Events(), time.Second)
		if !ok {
			t.Fatalf("timeout, have %q", got)
		}
		if len(ev.Data) > 16 {
			t.Fatalf("frame of %d bytes exceeds MaxFrame", len(ev.Data))
		}
		got = append(got, ev.Data...)
	}
	if string(got) != "0123456789abcdefXYZ" {
		t.Fatalf("reassembled %q", got)
	}
}

func TestUARTWorker_LinesMode_NewlineAndIdleFlush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, chip := newPort(t, sc16is752.ChannelA)
	w := New(8)
	stop, err := w.Register(ctx, ReaderCfg{
		DevID:     "u2",
		Port:      p,
		Mode:      "lines",
		MaxFrame:  32,
		IdleFlush: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer stop()

	chip.InjectRX(0, 'a')
	ev, ok := recvEvent(w.Events(), 500*time.Millisecond)
	if !ok {
		t.Fatal("idle flush timeout")
	}
	if got := string(ev.Data); got != "a" {
		t.Fatalf("idle flush got %q want %q", got, "a")
	}

	chip.InjectRX(0, []byte("hi\r\nthere\n")...)
	for _, want := range []string{"hi", "there"} {
		ev, ok = recvEvent(w.Events(), time.Second)
		if !ok {
			t.Fatalf("timeout waiting for %q", want)
		}
		if got := string(ev.Data); got != want {
			t.Fatalf("line got %q want %q", got, want)
		}
	}
}

func TestUARTWorker_StopEndsReader(t *testing.T) {
	p, chip := newPort(t, sc16is752.ChannelA)
	w := New(4)
	stop, _ := w.Register(context.Background(), ReaderCfg{DevID: "u", Port: p})
	stop()
	chip.ClearLog()
	time.Sleep(20 * time.Millisecond)
	if n := len(chip.Accesses()); n != 0 {
		t.Fatalf("reader still polling after stop: %d transfers", n)
	}
}

func TestUARTWorker_TxEchoChunking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, _ := newPort(t, sc16is752.ChannelA)
	w := New(4)
	stop, err := w.Register(ctx, ReaderCfg{DevID: "u3", Port: p, Mode: "bytes", MaxFrame: 8})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer stop()

	w.EmitTX("u3", 0, []byte("ABCDEFGHIJKLMNOPQRST"))
	for _, want := range []string{"ABCDEFGH", "IJKLMNOP", "QRST"} {
		ev, ok := recvEvent(w.Events(), time.Second)
		if !ok {
			t.Fatalf("timeout waiting for %q", want)
		}
		if ev.Dir != "tx" || string(ev.Data) != want {
			t.Fatalf("got %s %q want %q", ev.Dir, ev.Data, want)
		}
	}
}
