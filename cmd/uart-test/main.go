//go:build rp2040 || rp2350

// Command uart-test checks both expander channels end to end through the
// HAL. Channel A's TX must be jumpered to channel B's RX.
package main

import (
	"context"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/services/hal"
)

func main() {
	println("[uart] boot …")
	time.Sleep(1500 * time.Millisecond)

	ctx := context.Background()
	b := bus.NewBus(16)
	ui := b.NewConnection("ui")
	go hal.Run(ctx, b.NewConnection("hal"), hal.DefaultBuses())

	st := ui.Subscribe(bus.Topic{"hal", "state"})
	ui.Publish(ui.NewMessage(bus.Topic{"config", "hal"}, loopbackConfig("i2c0", 115200, "a", "b"), true))
	if !waitReady(st, 3*time.Second) {
		println("[uart] FAIL: hal not ready")
		return
	}

	t := newSelftest(ui, 0, 1)
	defer t.close()

	println("[uart] smoke: send 'hello-uart' and verify")
	if t.smoke(ctx, []byte("hello-uart"), 3*time.Second) {
		println("[uart] smoke: PASS")
	} else {
		println("[uart] smoke: FAIL")
	}

	println("[uart] integrity: 4096 bytes, chunk 32")
	if t.integrity(ctx, 4096, 32, 20*time.Second) {
		println("[uart] integrity: PASS")
	} else {
		println("[uart] integrity: FAIL")
	}
}
