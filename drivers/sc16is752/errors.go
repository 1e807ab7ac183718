package sc16is752

import "errors"

// Sentinel errors (TinyGo-safe; no fmt). Bus errors are returned unchanged.
var (
	ErrInvalidAddress    = errors.New("sc16is752: address outside 0x48..0x57")
	ErrInvalidChannel    = errors.New("sc16is752: invalid channel")
	ErrInvalidPin        = errors.New("sc16is752: invalid gpio pin")
	ErrInvalidBaud       = errors.New("sc16is752: baud rate out of range")
	ErrInvalidWordLength = errors.New("sc16is752: word length must be 5..8")
	ErrInvalidStopBits   = errors.New("sc16is752: stop bits must be 1 or 2")
	ErrInvalidParity     = errors.New("sc16is752: invalid parity")

	// ErrUnresponsive is returned when LSR polling exceeds Config.PollLimit.
	ErrUnresponsive = errors.New("sc16is752: device unresponsive")
)
