package halcore

import (
	"context"
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Reading is one datum for one capability. Unit tells capabilities of the
// same kind on one device apart (e.g. UART channel A = 0, B = 1).
type Reading struct {
	Kind    string
	Unit    int
	Payload any   // JSON-serialisable
	TsMs    int64 // producer timestamp (ms)
}

// Sample is a batch collected together.
type Sample []Reading

// CapInfo describes one capability's retained info document.
type CapInfo struct {
	Kind string
	Unit int
	Info map[string]any
}

// Adaptor abstracts a concrete device/driver. It must not own goroutines.
type Adaptor interface {
	ID() string
	Capabilities() []CapInfo
	// Split-phase measurement cycle.
	Trigger(ctx context.Context) (collectAfter time.Duration, err error)
	Collect(ctx context.Context) (Sample, error)
	// Device-specific pass-through for the first unit of a kind.
	Control(kind, method string, payload any) (result any, err error)
}

// UnitController is implemented by adaptors that expose several units of one
// capability kind.
type UnitController interface {
	ControlUnit(kind string, unit int, method string, payload any) (any, error)
}

// WorkerConfig centralises timings and limits.
type WorkerConfig struct {
	TriggerTimeout time.Duration
	CollectTimeout time.Duration
	RetryBackoff   time.Duration
	MaxRetries     int
	InputQueueSize int
}

// MeasureReq asks a worker to service an adaptor.
type MeasureReq struct {
	ID      string
	Adaptor Adaptor
	Prio    bool // true for "read_now"
}

// Result emitted by a worker.
type Result struct {
	ID     string
	Sample Sample
	Err    error
}

var (
	// ErrNotReady signals the worker to retry Collect after backoff.
	ErrNotReady = errors.New("not ready")
	// ErrUnsupported for adaptor Control pass-through.
	ErrUnsupported = errors.New("unsupported")
)

// ---- Buses ----

// I2CBusFactory injects configured I²C instances by id.
type I2CBusFactory interface {
	ByID(id string) (drivers.I2C, bool)
}

// ---- Serial ----

// UARTPort is the stream surface the RX worker needs. sc16is752.Port
// satisfies it; adaptors hand out locked wrappers.
type UARTPort interface {
	WriteByte(b byte) error
	Write(p []byte) (int, error)
	Buffered() int
	Read(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}
