// Package bridge links the local bus to a peer over a serial byte stream.
// Local messages matching the configured patterns are sent to the peer;
// messages from the peer are republished locally under a prefix.
package bridge

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/x/fmtx"

	"github.com/jpillora/backoff"
)

// Start starts the bridge service. It blocks until ctx is cancelled.
// It listens for JSON config on topic {"config","bridge"} and (re)configures the link.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{
		conn:       conn,
		stateTopic: bus.Topic{"bridge", "state"},
	}
	s.run(ctx)
}

// ---- Configuration ----

// Config is the JSON-encoded configuration expected on "config/bridge".
type Config struct {
	Transport TransportConfig `json:"transport"`

	// Forward lists local topic patterns ("hal/capability/uart/+/event")
	// whose messages are sent to the peer.
	Forward []string `json:"forward,omitempty"`
	// RemotePrefix is prepended to topics received from the peer. Local
	// messages under it are never forwarded back.
	RemotePrefix string `json:"remote_prefix,omitempty"`
	PingMS       int    `json:"ping_ms,omitempty"` // default 5000
}

type TransportConfig struct {
	// "uart", "sc16is752", or a name registered via RegisterTransport.
	Type     string          `json:"type"`
	UART     *UARTConfig     `json:"uart,omitempty"`
	Expander *ExpanderConfig `json:"sc16is752,omitempty"`
}

// UARTConfig carries enough information for an injected TinyGo dialler to open the UART.
type UARTConfig struct {
	Baud           int `json:"baud"`
	RxPin          int `json:"rx_pin"`
	TxPin          int `json:"tx_pin"`
	ReadTimeoutMS  int `json:"read_timeout_ms,omitempty"`
	WriteTimeoutMS int `json:"write_timeout_ms,omitempty"`
}

// ---- Service ----

type Service struct {
	conn       *bus.Connection
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
	curCfg atomic.Value // stores Config
}

// run waits for config and supervises a single link instance.
func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.Topic{"config", "bridge"})
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	s.curCfg.Store(cfg)
	go s.runLink(ctx, cfg)
}

// ---- Link supervision and I/O ----

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	b := &backoff.Backoff{Min: 250 * time.Millisecond, Max: 5 * time.Second, Factor: 2}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := b.Duration()
			s.publishState("degraded", "dial_failed_retrying", fmtx.Errorf("%v (retry in %v)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		b.Reset()
		s.publishState("up", "link_established", nil)
		err = s.handleLink(ctx, cfg, rwc)
		_ = rwc.Close()
		if err != nil {
			delay := b.Duration()
			s.publishState("degraded", "link_lost_retrying", fmtx.Errorf("%v (retry in %v)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		s.publishState("idle", "link_closed", nil)
		return
	}
}

// handleLink owns the active link lifetime. It returns nil on a close frame
// from the peer or when ctx ends; EOF and I/O errors are link loss.
func (s *Service) handleLink(ctx context.Context, cfg Config, rwc io.ReadWriteCloser) error {
	rd := newFramedReader(rwc)
	wr := newFramedWriter(rwc)
	prefix := ParseTopic(cfg.RemotePrefix)

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			f, err := rd.ReadFrame()
			if err != nil {
				errCh <- err
				return
			}
			switch f.Type {
			case framePing:
				if err := wr.WriteFrame(Frame{Type: framePong}); err != nil {
					errCh <- err
					return
				}
			case framePong:
			case framePub:
				wm, err := decodeWireMessage(f.Payload)
				if err != nil {
					continue
				}
				s.conn.Publish(s.conn.NewMessage(joinTopic(prefix, wm.Topic), wm.Payload, wm.Retained))
			case frameClose:
				return
			default:
				// frameSub, frameUnsub and frameAck are reserved.
			}
		}
	}()

	done := make(chan struct{})
	defer close(done)
	fwd := make(chan *bus.Message, 16)
	var subs []*bus.Subscription
	for _, pat := range cfg.Forward {
		sub := s.conn.Subscribe(ParseTopic(pat))
		subs = append(subs, sub)
		go func(ch <-chan *bus.Message) {
			for m := range ch {
				select {
				case fwd <- m:
				case <-done:
					return
				}
			}
		}(sub.Channel())
	}
	defer func() {
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
	}()

	ping := time.Duration(cfg.PingMS) * time.Millisecond
	if ping <= 0 {
		ping = 5 * time.Second
	}
	tick := time.NewTicker(ping)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = wr.WriteFrame(Frame{Type: frameClose})
			return nil
		case err, ok := <-errCh:
			if !ok {
				return nil // peer sent close
			}
			return err
		case <-tick.C:
			if err := wr.WriteFrame(Frame{Type: framePing}); err != nil {
				return err
			}
		case m := <-fwd:
			if len(prefix) > 0 && hasPrefix(m.Topic, prefix) {
				continue
			}
			b, err := encodeWireMessage(m)
			if err != nil {
				continue
			}
			if err := wr.WriteFrame(Frame{Type: framePub, Payload: b}); err != nil {
				return err
			}
		}
	}
}

// ---- Utilities ----

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case Config:
		return v, nil
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, errUnsupportedConfig
	}
	return cfg, nil
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "error", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(s.stateTopic, payload, true))
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
