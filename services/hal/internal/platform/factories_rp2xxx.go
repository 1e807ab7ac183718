//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"sc16is752-go/services/hal/internal/halcore"
	"sc16is752-go/services/hal/internal/platform/setups"

	"tinygo.org/x/drivers"
)

type rp2I2CFactory struct {
	buses map[string]drivers.I2C
}

func (f *rp2I2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, ok := f.buses[id]
	return b, ok
}

// DefaultI2CFactory configures the controllers named by the board plan, or
// i2c0 and i2c1 on their default pins at 400 kHz when there is no plan.
func DefaultI2CFactory() halcore.I2CBusFactory {
	f := &rp2I2CFactory{buses: make(map[string]drivers.I2C)}
	p := plan()
	if len(p.I2C) == 0 {
		p.I2C = []setups.I2CPlan{
			{ID: "i2c0", SDA: int(machine.I2C0_SDA_PIN), SCL: int(machine.I2C0_SCL_PIN), Hz: 400_000},
			{ID: "i2c1", SDA: int(machine.I2C1_SDA_PIN), SCL: int(machine.I2C1_SCL_PIN), Hz: 400_000},
		}
	}
	for _, ip := range p.I2C {
		var b *machine.I2C
		switch ip.ID {
		case "i2c0":
			b = machine.I2C0
		case "i2c1":
			b = machine.I2C1
		default:
			println("[platform] unknown i2c controller:", ip.ID)
			continue
		}
		if err := b.Configure(machine.I2CConfig{
			Frequency: ip.Hz,
			SDA:       machine.Pin(ip.SDA),
			SCL:       machine.Pin(ip.SCL),
		}); err != nil {
			println("[platform] i2c configure failed:", ip.ID, err.Error())
			continue
		}
		f.buses[ip.ID] = b
	}
	return f
}
