package main

import "sc16is752-go/types"

// loopbackConfig brings up the named channels in bytes mode at one rate.
func loopbackConfig(busID string, baud int, channels ...string) types.HALConfig {
	chans := map[string]any{}
	for _, c := range channels {
		chans[c] = map[string]any{"baud": baud, "mode": "bytes", "max_frame": 32}
	}
	return types.HALConfig{Devices: []types.Device{{
		ID:     "selftest",
		Type:   "sc16is752",
		BusRef: types.BusRef{Type: "i2c", ID: busID},
		Params: map[string]any{"reset": true, "probe": true, "channels": chans},
	}}}
}
