// Package config publishes the device's embedded configuration on the bus,
// one retained message per top-level key under config/<key>.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"sc16is752-go/bus"
	"sc16is752-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey carries the device ID in the context passed to Start.
const CtxDeviceKey ctxKey = "device"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig decodes the device config and publishes each key retained.
// The hal key is decoded strictly into types.HALConfig so that a typo in a
// device entry fails here rather than silently in the HAL.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("embedded config is not a JSON object: " + err.Error())
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		if k == "hal" {
			var hc types.HALConfig
			dec := json.NewDecoder(bytes.NewReader(v))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&hc); err != nil {
				return errors.New("hal config: " + err.Error())
			}
			out[k] = hc
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		out[k] = val
	}

	for k, v := range out {
		conn.Publish(conn.NewMessage(bus.Topic{configPrefix, k}, v, true))
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config] publish failed:", err.Error())
		}
	}()
}
