//go:build linux && !(rp2040 || rp2350)

package platform

import (
	"strconv"
	"strings"
	"sync"

	"sc16is752-go/services/hal/internal/halcore"

	"tinygo.org/x/drivers"
)

// linuxI2CFactory maps "i2cN" to /dev/i2c-N. Adapters are opened on first use.
type linuxI2CFactory struct {
	mu    sync.Mutex
	buses map[int]*SMBus
}

func (f *linuxI2CFactory) ByID(id string) (drivers.I2C, bool) {
	n, ok := BusIndex(id)
	if !ok {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.buses[n]
	if !ok {
		b = NewSMBus(n)
		f.buses[n] = b
	}
	return b, true
}

func DefaultI2CFactory() halcore.I2CBusFactory {
	return &linuxI2CFactory{buses: map[int]*SMBus{}}
}

// BusIndex parses "i2cN" or a bare "N".
func BusIndex(id string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "i2c"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
