// Package errcode carries the short, stable error identifiers that cross the
// HAL boundary in replies and logs.
package errcode

import (
	"context"
	"errors"

	"sc16is752-go/drivers/sc16is752"
)

// Code is a string newtype so it is comparable and allocation-free.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK                Code = "ok"
	Busy              Code = "busy"
	Unsupported       Code = "unsupported"
	InvalidParams     Code = "invalid_params"
	InvalidPayload    Code = "invalid_payload"
	UnknownCapability Code = "unknown_capability"
	UnknownVerb       Code = "unknown_verb"
	HALNotReady       Code = "hal_not_ready"

	UnknownBus    Code = "unknown_bus"
	BadAddress    Code = "bad_address"
	BadChannel    Code = "bad_channel"
	UnknownPin    Code = "unknown_pin"
	BadLineConfig Code = "bad_line_config"
	Unresponsive  Code = "unresponsive"
	PingFailed    Code = "ping_failed"
	Timeout       Code = "timeout"
	Cancelled     Code = "cancelled"

	Error Code = "error"
)

// E keeps an operation name and cause next to the code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap tags err with the code MapDriverErr picks for it.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: MapDriverErr(err), Op: op, Err: err}
}

// Of extracts a Code, looking through wrapped errors. Untagged errors are Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps expander driver sentinels and context errors to a Code.
// Anything else (typically an I²C transport failure) is Error.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, sc16is752.ErrInvalidAddress):
		return BadAddress
	case errors.Is(err, sc16is752.ErrInvalidChannel):
		return BadChannel
	case errors.Is(err, sc16is752.ErrInvalidPin):
		return UnknownPin
	case errors.Is(err, sc16is752.ErrInvalidBaud),
		errors.Is(err, sc16is752.ErrInvalidWordLength),
		errors.Is(err, sc16is752.ErrInvalidStopBits),
		errors.Is(err, sc16is752.ErrInvalidParity):
		return BadLineConfig
	case errors.Is(err, sc16is752.ErrUnresponsive):
		return Unresponsive
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	case errors.Is(err, context.Canceled):
		return Cancelled
	}
	return Of(err)
}
