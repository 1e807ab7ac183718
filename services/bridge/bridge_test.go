package bridge

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/drivers/sc16is752/sim"

	"tinygo.org/x/drivers"
)

func TestBridge_EstablishesUARTLinkAndReportsState(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("bridge_test")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stateSub := conn.Subscribe(bus.Topic{"bridge", "state"})
	defer conn.Unsubscribe(stateSub)
	go Start(ctx, conn)

	first := nextStatePayload(t, stateSub, 500*time.Millisecond)
	assertLevelStatus(t, first, "idle", "awaiting_config")

	// Inject a UART dialler that returns a net.Pipe; keep the remote end to simulate link loss.
	prevDial := UARTDial
	defer func() { UARTDial = prevDial }()
	remoteCh := make(chan io.ReadWriteCloser, 1)
	UARTDial = func(ctx context.Context, _ UARTConfig) (io.ReadWriteCloser, error) {
		lc, rc := net.Pipe()
		remoteCh <- rc
		go remotePeer(rc)
		return lc, nil
	}

	cfg := `{"transport":{"type":"uart","uart":{"baud":115200,"rx_pin":1,"tx_pin":0}}}`
	conn.Publish(conn.NewMessage(bus.Topic{"config", "bridge"}, cfg, false))

	up := nextStatePayload(t, stateSub, time.Second)
	assertLevelStatus(t, up, "up", "link_established")

	// Close the remote to force link loss; expect degraded state.
	(<-remoteCh).Close()

	degraded := nextStatePayload(t, stateSub, time.Second)
	assertLevelStatus(t, degraded, "degraded", "link_lost_retrying")
}

func TestBridge_UnknownTransportYieldsErrorState(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("bridge_test_bad")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stateSub := conn.Subscribe(bus.Topic{"bridge", "state"})
	defer conn.Unsubscribe(stateSub)
	go Start(ctx, conn)

	_ = nextStatePayload(t, stateSub, 500*time.Millisecond) // initial awaiting_config

	cfg := `{"transport":{"type":"bogus"}}`
	conn.Publish(conn.NewMessage(bus.Topic{"config", "bridge"}, cfg, false))

	errState := nextStatePayload(t, stateSub, time.Second)
	assertLevelStatus(t, errState, "error", "transport_init_failed")
}

type pipeTransport struct{ c net.Conn }

func (p pipeTransport) Open(context.Context) (io.ReadWriteCloser, error) { return p.c, nil }
func (p pipeTransport) String() string                                   { return "pipe" }

func TestBridge_ForwardsMessagesToPeer(t *testing.T) {
	lc, rc := net.Pipe()
	RegisterTransport("pipe-local", func(TransportConfig) (Transport, error) { return pipeTransport{lc}, nil })
	RegisterTransport("pipe-remote", func(TransportConfig) (Transport, error) { return pipeTransport{rc}, nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := bus.NewBus(16).NewConnection("local")
	remote := bus.NewBus(16).NewConnection("remote")
	go Start(ctx, local)
	go Start(ctx, remote)

	// Retained so it is delivered when the link subscribes.
	local.Publish(local.NewMessage(bus.Topic{"hal", "capability", "uart", 0, "event"}, map[string]any{"n": 3}, true))
	local.Publish(local.NewMessage(bus.Topic{"other"}, "skip", true))

	got := remote.Subscribe(bus.Topic{"peer", "#"})
	defer remote.Unsubscribe(got)

	remote.Publish(remote.NewMessage(bus.Topic{"config", "bridge"},
		`{"transport":{"type":"pipe-remote"},"remote_prefix":"peer"}`, false))
	local.Publish(local.NewMessage(bus.Topic{"config", "bridge"},
		Config{Transport: TransportConfig{Type: "pipe-local"}, Forward: []string{"hal/capability/uart/+/event"}}, false))

	select {
	case m := <-got.Channel():
		want := bus.Topic{"peer", "hal", "capability", "uart", 0, "event"}
		if len(m.Topic) != len(want) {
			t.Fatalf("topic %v", m.Topic)
		}
		for i := range want {
			if m.Topic[i] != want[i] {
				t.Fatalf("topic %v, want %v", m.Topic, want)
			}
		}
		p, _ := m.Payload.(map[string]any)
		if p["n"] != float64(3) || !m.Retained {
			t.Fatalf("payload %+v retained=%v", m.Payload, m.Retained)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("nothing forwarded")
	}

	select {
	case m := <-got.Channel():
		t.Fatalf("unexpected forward %v", m.Topic)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBridge_ExpanderTransportLoopback(t *testing.T) {
	chip := sim.New(0x4D)
	chip.SetLoopback(true)
	chip.InjectRX(1, 0xEE) // stale byte dropped by the FIFO reset on open

	prev := BusLookup
	defer func() { BusLookup = prev }()
	BusLookup = func(id string) (drivers.I2C, bool) { return chip, id == "i2c0" }

	tr, err := newTransport(TransportConfig{Type: "sc16is752", Expander: &ExpanderConfig{Bus: "i2c0", Channel: "b", Baud: 9600}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rwc, err := tr.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d := chip.Divisor(1); d != 12 {
		t.Fatalf("divisor = %d", d)
	}
	if chip.PendingRX(1) != 0 {
		t.Fatal("rx fifo not reset")
	}

	if _, err := rwc.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rwc, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Fatalf("read %q", buf)
	}

	rwc.Close()
	if _, err := rwc.Read(buf); err != io.EOF {
		t.Fatalf("read after close: %v", err)
	}
	if _, err := rwc.Write(buf); err != io.ErrClosedPipe {
		t.Fatalf("write after close: %v", err)
	}
}

func TestExpanderTransportConfigErrors(t *testing.T) {
	bad := []TransportConfig{
		{Type: "sc16is752"},
		{Type: "sc16is752", Expander: &ExpanderConfig{Channel: "c"}},
		{Type: "sc16is752", Expander: &ExpanderConfig{Addr: 0x10}},
	}
	for i, c := range bad {
		if _, err := newTransport(c); err == nil {
			t.Fatalf("case %d accepted", i)
		}
	}

	prev := BusLookup
	defer func() { BusLookup = prev }()
	BusLookup = func(string) (drivers.I2C, bool) { return nil, false }
	tr, err := newTransport(TransportConfig{Type: "sc16is752", Expander: &ExpanderConfig{Bus: "nope"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Open(context.Background()); err != errNoBus {
		t.Fatalf("open err = %v", err)
	}
}

func TestParseTopic(t *testing.T) {
	got := ParseTopic("hal/capability/uart/+/event")
	want := bus.Topic{"hal", "capability", "uart", "+", "event"}
	if len(got) != len(want) {
		t.Fatalf("%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%v", got)
		}
	}
	if got := ParseTopic("a/12"); got[1] != 12 {
		t.Fatalf("numeric token %#v", got[1])
	}
	if ParseTopic("") != nil {
		t.Fatal("empty pattern")
	}
}

// ---- Helpers ----

// remotePeer replies PONG to PING and drains every other frame.
func remotePeer(c io.ReadWriteCloser) {
	defer c.Close()
	rd := newFramedReader(c)
	wr := newFramedWriter(c)
	for {
		f, err := rd.ReadFrame()
		if err != nil {
			return
		}
		if f.Type == framePing {
			if err := wr.WriteFrame(Frame{Type: framePong}); err != nil {
				return
			}
		}
	}
}

func nextStatePayload(t *testing.T, sub *bus.Subscription, d time.Duration) map[string]any {
	t.Helper()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case m := <-sub.Channel():
		p, ok := m.Payload.(map[string]any)
		if !ok {
			t.Fatalf("state payload type: got %T, want map[string]any", m.Payload)
		}
		return p
	case <-timer.C:
		t.Fatalf("timeout waiting for bridge/state")
		return nil
	}
}

func assertLevelStatus(t *testing.T, payload map[string]any, wantLevel, wantStatus string) {
	t.Helper()
	gotLevel, _ := payload["level"].(string)
	gotStatus, _ := payload["status"].(string)
	if gotLevel != wantLevel || gotStatus != wantStatus {
		t.Fatalf("unexpected state: level=%q status=%q, want level=%q status=%q (payload=%v)",
			gotLevel, gotStatus, wantLevel, wantStatus, payload)
	}
}
