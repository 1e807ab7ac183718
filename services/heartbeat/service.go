// Package heartbeat prints a periodic liveness line carrying the last HAL
// state, so a serial console shows whether the expander is still healthy.
package heartbeat

import (
	"context"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/types"
	"sc16is752-go/x/conv"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicHALState        = bus.Topic{"hal", "state"}
)

type Service struct {
	// Print defaults to println; tests capture lines through it.
	Print func(line string)

	started   time.Time
	halLevel  string
	halStatus string
	buf       [20]byte
}

func (s *Service) print(line string) {
	if s.Print != nil {
		s.Print(line)
		return
	}
	println(line)
}

// interval extracts the period in seconds from config/heartbeat.
func interval(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := m["interval"].(type) {
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second)), true
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second, true
		}
	}
	return 0, false
}

func (s *Service) line(t time.Time) string {
	l := "Info: " + t.Format("15:04:05") + " Heartbeat"
	if !s.started.IsZero() {
		l += " up=" + string(conv.Utoa(s.buf[:], uint64(t.Sub(s.started)/time.Second))) + "s"
	}
	if s.halLevel != "" {
		l += " hal=" + s.halLevel + "/" + s.halStatus
	}
	return l
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	halSub := conn.Subscribe(topicHALState)
	defer conn.Unsubscribe(halSub)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.print("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			s.print(s.line(t))
		case msg := <-cfgSub.Channel():
			if iv, ok := interval(msg.Payload); ok {
				tick.Reset(iv)
				s.print("Info: heartbeat interval set to " + iv.String())
			}
		case msg := <-halSub.Channel():
			if st, ok := msg.Payload.(types.HALState); ok {
				s.halLevel, s.halStatus = st.Level, st.Status
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	go s.serviceLoop(ctx, conn)
	return nil
}
