//go:build rp2040 || rp2350

// Command pico-hal-main is the expander board firmware: config, HAL,
// heartbeat and the host bridge on one bus.
package main

import (
	"context"
	"runtime"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/services/bridge"
	"sc16is752-go/services/config"
	"sc16is752-go/services/hal"
	"sc16is752-go/services/heartbeat"
)

// deviceName selects the embedded config; override with
// -ldflags "-X main.deviceName=expander-uart".
var deviceName = "expander"

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i, tok := range t {
		if i > 0 {
			print("/")
		}
		switch v := tok.(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceName)

	println("[main] bootstrapping bus …")
	b := bus.NewBus(8)

	// The bridge opens its own channel on the expander, so it must share the
	// HAL's locked buses.
	bridge.BusLookup = hal.DefaultBuses().ByID
	bridge.UARTDial = dialUART

	mon := b.NewConnection("monitor").Subscribe(bus.Topic{"hal", "state"})
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
		}
	}()

	println("[main] starting services …")
	go hal.Run(ctx, b.NewConnection("hal"), hal.DefaultBuses())
	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	_ = (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))
	bridge.Start(ctx, b.NewConnection("bridge"))

	for {
		printMem()
		time.Sleep(30 * time.Second)
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"heapSys:", uint32(ms.HeapSys),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
