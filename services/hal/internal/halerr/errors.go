// Package halerr holds the HAL's stable error codes. The strings go on the
// wire in error replies and state payloads, so they never change.
package halerr

import "errors"

var (
	// Control plane
	ErrBusy           = errors.New("busy")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidCapAddr = errors.New("invalid_capability_address")
	ErrUnknownCap     = errors.New("unknown_capability")
	ErrNoAdaptor      = errors.New("no_adaptor")
	ErrInvalidPayload = errors.New("invalid_payload")

	// Device build
	ErrMissingBusRef = errors.New("missing_bus_ref")
	ErrUnknownBus    = errors.New("unknown_bus")
	ErrInvalidMode   = errors.New("invalid_mode")
	ErrNoChannels    = errors.New("no_channels")
	ErrProbeFailed   = errors.New("probe_failed")
)
