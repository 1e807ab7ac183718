// Package uartio runs one RX reader goroutine per UART port and turns the
// byte stream into events, either raw chunks or LF-terminated lines.
package uartio

import (
	"context"
	"sync"
	"time"

	"sc16is752-go/services/hal/internal/halcore"
	"sc16is752-go/services/hal/internal/util"
	"sc16is752-go/x/mathx"
)

type Event struct {
	DevID string
	Unit  int
	Dir   string // "rx" | "tx"
	Data  []byte
	TS    time.Time
}

type ReaderCfg struct {
	DevID         string
	Unit          int
	Port          halcore.UARTPort
	Mode          string        // "bytes" | "lines"
	MaxFrame      int           // clamp 8..256
	IdleFlush     time.Duration // clamp 0..2s (lines mode)
	PublishTXEcho bool
}

type readerKey struct {
	dev  string
	unit int
}

type Worker struct {
	outQ chan Event

	mu     sync.Mutex
	frames map[readerKey]int
}

// recvSlice bounds each blocking receive so shutdown and idle flushes are
// noticed even when the line is silent.
const recvSlice = 50 * time.Millisecond

func New(outBuf int) *Worker {
	if outBuf <= 0 {
		outBuf = 64
	}
	return &Worker{outQ: make(chan Event, outBuf), frames: map[readerKey]int{}}
}

func (w *Worker) Events() <-chan Event { return w.outQ }

// push never blocks; events are dropped if the consumer is slow.
func (w *Worker) push(ev Event) {
	select {
	case w.outQ <- ev:
	default:
	}
}

// Register starts a reader goroutine for a port. The returned func stops it.
func (w *Worker) Register(ctx context.Context, cfg ReaderCfg) (func(), error) {
	maxFrame := mathx.Clamp(cfg.MaxFrame, 8, 256)
	idle := mathx.Clamp(cfg.IdleFlush, 0, 2*time.Second)
	lines := cfg.Mode == "lines"

	w.mu.Lock()
	w.frames[readerKey{cfg.DevID, cfg.Unit}] = maxFrame
	w.mu.Unlock()

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		buf := make([]byte, maxFrame)
		line := make([]byte, 0, maxFrame)
		var lastRX time.Time

		flush := func(now time.Time) {
			if len(line) == 0 {
				return
			}
			w.push(Event{DevID: cfg.DevID, Unit: cfg.Unit, Dir: "rx", Data: append([]byte(nil), line...), TS: now})
			line = line[:0]
		}

		for cctx.Err() == nil {
			rctx, rcancel := context.WithTimeout(cctx, recvSlice)
			n, err := cfg.Port.RecvSomeContext(rctx, buf)
			rcancel()
			now := time.Now()

			if n > 0 {
				lastRX = now
				if !lines {
					w.push(Event{DevID: cfg.DevID, Unit: cfg.Unit, Dir: "rx", Data: append([]byte(nil), buf[:n]...), TS: now})
					continue
				}
				for _, b := range buf[:n] {
					switch b {
					case '\n':
						flush(now)
					case '\r':
					default:
						if len(line) == maxFrame {
							flush(now)
						}
						line = append(line, b)
					}
				}
				continue
			}
			if lines && idle > 0 && len(line) > 0 && now.Sub(lastRX) >= idle {
				flush(now)
			}
			if err != nil && cctx.Err() == nil && rctx.Err() == nil {
				// Bus error: back off so a dead chip does not spin the CPU.
				t := time.NewTimer(recvSlice)
				select {
				case <-cctx.Done():
				case <-t.C:
				}
				if !t.Stop() {
					util.DrainTimer(t)
				}
			}
		}
	}()

	stop := func() {
		cancel()
		<-done
		w.mu.Lock()
		delete(w.frames, readerKey{cfg.DevID, cfg.Unit})
		w.mu.Unlock()
	}
	return stop, nil
}

// EmitTX publishes a TX echo, split into frames of the reader's MaxFrame
// (or 128 if the port has no reader).
func (w *Worker) EmitTX(devID string, unit int, data []byte) {
	w.mu.Lock()
	max, ok := w.frames[readerKey{devID, unit}]
	w.mu.Unlock()
	if !ok {
		max = 128
	}
	now := time.Now()
	for len(data) > 0 {
		n := mathx.Min(max, len(data))
		w.push(Event{DevID: devID, Unit: unit, Dir: "tx", Data: append([]byte(nil), data[:n]...), TS: now})
		data = data[n:]
	}
}
