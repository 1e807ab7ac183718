// Package hal is the public entry point of the hardware abstraction layer.
// Device builders register themselves from their init functions; importing
// this package pulls in every supported device type.
package hal

import (
	"context"
	"sync"

	"sc16is752-go/bus"
	"sc16is752-go/services/hal/internal/consts"
	_ "sc16is752-go/services/hal/internal/devices/sc16is752"
	"sc16is752-go/services/hal/internal/drvshim"
	"sc16is752-go/services/hal/internal/halcore"
	"sc16is752-go/services/hal/internal/platform"
	"sc16is752-go/services/hal/internal/service"
)

// BusFactory resolves a configured bus id (for example "i2c0") to a bus.
type BusFactory = halcore.I2CBusFactory

// Buses is a fixed id-to-bus table.
type Buses = drvshim.MapFactory

// Run blocks until ctx ends. Configuration arrives on config/hal.
func Run(ctx context.Context, conn *bus.Connection, buses BusFactory) {
	service.New(conn, buses).Run(ctx)
}

var (
	defaultOnce  sync.Once
	defaultBuses BusFactory
)

// DefaultBuses returns the target's own buses. Each bus is behind a transfer
// lock shared by every caller in the process, so the HAL and a bridge can use
// different channels of one expander.
func DefaultBuses() BusFactory {
	defaultOnce.Do(func() {
		defaultBuses = drvshim.NewFactory(platform.DefaultI2CFactory())
	})
	return defaultBuses
}

// RunDefault runs with DefaultBuses. When the build selects a board setup its
// config is published retained before the service starts.
func RunDefault(ctx context.Context, conn *bus.Connection) {
	if cfg := platform.InitialConfig(); len(cfg.Devices) > 0 {
		conn.Publish(conn.NewMessage(bus.Topic{consts.TokConfig, consts.TokHAL}, cfg, true))
	}
	Run(ctx, conn, DefaultBuses())
}
