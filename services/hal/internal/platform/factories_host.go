//go:build !linux && !rp2040 && !rp2350

package platform

import (
	"sc16is752-go/drivers/sc16is752"
	"sc16is752-go/drivers/sc16is752/sim"
	"sc16is752-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

type hostI2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *hostI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// DefaultI2CFactory puts a simulated expander at the strap default address on
// i2c0 and i2c1 so the HAL can run on a desktop.
func DefaultI2CFactory() halcore.I2CBusFactory {
	return &hostI2CFactory{buses: map[string]drivers.I2C{
		"i2c0": sim.New(sc16is752.AddressDefault),
		"i2c1": sim.New(sc16is752.AddressDefault),
	}}
}
