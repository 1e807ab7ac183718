package config

// Embedded configuration, keyed by device ID (the value placed in ctx under
// CtxDeviceKey).
//
// The expander board runs the HAL on channel A and the GPIO port, and bridges
// the bus to a host over channel B.
const cfgExpander = `{
  "hal": {
    "devices": [
      {
        "id": "exp0",
        "type": "sc16is752",
        "bus_ref": {"type": "i2c", "id": "i2c0"},
        "params": {
          "addr": 77,
          "reset": true,
          "probe": true,
          "sample_ms": 1000,
          "channels": {
            "a": {"baud": 115200, "mode": "lines", "idle_flush_ms": 50, "echo_tx": true}
          },
          "gpio": {"dir": 240, "state": 0}
        }
      }
    ]
  },
  "bridge": {
    "transport": {
      "type": "sc16is752",
      "sc16is752": {"bus": "i2c0", "addr": 77, "channel": "b", "baud": 115200}
    },
    "forward": ["hal/state", "hal/capability/+/+/event", "hal/capability/+/+/value"],
    "remote_prefix": "host"
  },
  "heartbeat": {
    "interval": 5
  }
}`

// The uart variant bridges over the MCU's own UART0 and leaves both expander
// channels to the HAL.
const cfgExpanderUART = `{
  "hal": {
    "devices": [
      {
        "id": "exp0",
        "type": "sc16is752",
        "bus_ref": {"type": "i2c", "id": "i2c0"},
        "params": {
          "addr": 77,
          "reset": true,
          "channels": {
            "a": {"baud": 115200, "mode": "lines"},
            "b": {"baud": 9600, "mode": "bytes", "max_frame": 32}
          }
        }
      }
    ]
  },
  "bridge": {
    "transport": {
      "type": "uart",
      "uart": {"baud": 115200, "tx_pin": 0, "rx_pin": 1}
    },
    "forward": ["hal/#"],
    "remote_prefix": "host",
    "ping_ms": 2000
  },
  "heartbeat": {
    "interval": 10
  }
}`

var embeddedConfigs = map[string][]byte{
	"expander":      []byte(cfgExpander),
	"expander-uart": []byte(cfgExpanderUART),
}
