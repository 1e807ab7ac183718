//go:build expander_board

package setups

import "sc16is752-go/types"

// The expander board carries one SC16IS752 on i2c0 with both straps low.
// Channel A faces the modem, channel B a debug header.
var SelectedPlan = ResourcePlan{
	I2C: []I2CPlan{{ID: "i2c0", SDA: 4, SCL: 5, Hz: 400_000}},
}

var SelectedSetup = types.HALConfig{
	Devices: []types.Device{{
		ID:     "exp0",
		Type:   "sc16is752",
		BusRef: types.BusRef{Type: "i2c", ID: "i2c0"},
		Params: map[string]any{
			"addr":      0x4D,
			"reset":     true,
			"probe":     true,
			"sample_ms": 1000,
			"channels": map[string]any{
				"a": map[string]any{"baud": 115200, "mode": "lines", "idle_flush_ms": 50, "rx_trigger": 32},
				"b": map[string]any{"baud": 9600, "mode": "bytes"},
			},
			"gpio": map[string]any{"dir": 0xF0, "state": 0x00},
		},
	}},
}
