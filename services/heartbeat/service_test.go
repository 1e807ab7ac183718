package heartbeat

import (
	"context"
	"strings"
	"testing"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/types"
)

func TestInterval(t *testing.T) {
	if d, ok := interval(map[string]any{"interval": float64(2)}); !ok || d != 2*time.Second {
		t.Fatalf("float: %v %v", d, ok)
	}
	if d, ok := interval(map[string]any{"interval": 0.05}); !ok || d != 50*time.Millisecond {
		t.Fatalf("fraction: %v %v", d, ok)
	}
	for _, p := range []any{nil, "2", map[string]any{"interval": -1.0}, map[string]any{}} {
		if _, ok := interval(p); ok {
			t.Fatalf("%v accepted", p)
		}
	}
}

func TestHeartbeatReportsHALState(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("hb")
	conn.Publish(conn.NewMessage(topicHALState, types.HALState{Level: "ready", Status: "configured"}, true))
	conn.Publish(conn.NewMessage(topicConfigHeartbeat, map[string]any{"interval": 0.02}, true))

	lines := make(chan string, 64)
	s := &Service{Print: func(l string) {
		select {
		case lines <- l:
		default:
		}
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Start(ctx, conn)

	deadline := time.After(3 * time.Second)
	for {
		select {
		case l := <-lines:
			if strings.Contains(l, "Heartbeat") && strings.HasSuffix(l, "hal=ready/configured") {
				return
			}
		case <-deadline:
			t.Fatal("no heartbeat with hal state")
		}
	}
}

func TestLineCarriesUptime(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Service{started: start, halLevel: "error", halStatus: "config_invalid"}
	got := s.line(start.Add(90*time.Second + 400*time.Millisecond))
	if got != "Info: 12:01:30 Heartbeat up=90s hal=error/config_invalid" {
		t.Fatalf("line = %q", got)
	}
	if got := (&Service{}).line(start); got != "Info: 12:00:00 Heartbeat" {
		t.Fatalf("bare line = %q", got)
	}
}
