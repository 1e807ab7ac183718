package main

import (
	"bytes"
	"context"
	"errors"
	"hash/fnv"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/types"
	"sc16is752-go/x/mathx"
)

// selftest pushes data into one uart capability and watches another for it.
// On hardware tx and rx are two channels joined by a jumper.
type selftest struct {
	conn   *bus.Connection
	tx     int
	events *bus.Subscription
}

func newSelftest(conn *bus.Connection, tx, rx int) *selftest {
	return &selftest{
		conn:   conn,
		tx:     tx,
		events: conn.Subscribe(bus.Topic{"hal", "capability", "uart", rx, "event"}),
	}
}

func (t *selftest) close() { t.events.Unsubscribe() }

func (t *selftest) write(ctx context.Context, data []byte) error {
	topic := bus.Topic{"hal", "capability", "uart", t.tx, "control", "write"}
	reply, err := t.conn.Request(ctx, t.conn.NewMessage(topic, types.UARTWrite{Data: data}, false))
	if err != nil {
		return err
	}
	if e, ok := reply.Payload.(types.ErrorReply); ok {
		return errors.New(e.Error)
	}
	return nil
}

// recv waits for the next received chunk.
func (t *selftest) recv(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m := <-t.events.Channel():
			if ev, ok := m.Payload.(types.UARTEvent); ok && ev.Dir == types.UARTRx {
				return ev.Data, nil
			}
		}
	}
}

// smoke sends msg once and reports whether it turns up on the far side.
func (t *selftest) smoke(ctx context.Context, msg []byte, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := t.write(ctx, msg); err != nil {
		println("[uart] smoke: write:", err.Error())
		return false
	}
	var got []byte
	for !bytes.Contains(got, msg) {
		b, err := t.recv(ctx)
		if err != nil {
			println("[uart] smoke: not found; got bytes=", len(got))
			return false
		}
		got = append(got, b...)
	}
	return true
}

// integrity sends a deterministic stream in chunks, waiting for each chunk to
// arrive before the next, and compares FNV-1a hashes of both directions.
func (t *selftest) integrity(ctx context.Context, total, chunk int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	txHash, rxHash := fnv.New32a(), fnv.New32a()
	gen := patternGenerator(0xA5)
	out := make([]byte, chunk)
	written, received := 0, 0

	for written < total {
		n := mathx.Min(chunk, total-written)
		fillPattern(out[:n], &gen)
		if err := t.write(ctx, out[:n]); err != nil {
			println("[uart] integrity: write:", err.Error())
			break
		}
		txHash.Write(out[:n])
		written += n
		for received < written {
			b, err := t.recv(ctx)
			if err != nil {
				break
			}
			rxHash.Write(b)
			received += len(b)
		}
		if received < written {
			break
		}
	}

	println("[uart] integrity: written=", written, " received=", received)
	println("[uart] integrity: txHash=", txHash.Sum32(), " rxHash=", rxHash.Sum32())
	return written == total && received == total && txHash.Sum32() == rxHash.Sum32()
}

// patGen is a small xorshift byte generator.
type patGen struct{ s byte }

func patternGenerator(seed byte) patGen { return patGen{s: seed} }

func (g *patGen) next() byte {
	x := g.s
	x ^= x << 3
	x ^= x >> 5
	x ^= x << 1
	if x == 0 {
		x = 0x5A
	}
	g.s = x
	return x
}

func fillPattern(dst []byte, g *patGen) {
	for i := range dst {
		dst[i] = g.next()
	}
}

// waitReady blocks until the HAL reports ready.
func waitReady(sub *bus.Subscription, to time.Duration) bool {
	deadline := time.After(to)
	for {
		select {
		case m := <-sub.Channel():
			if s, ok := m.Payload.(types.HALState); ok && s.Level == "ready" {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
