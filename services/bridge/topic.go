package bridge

import (
	"encoding/json"
	"strings"

	"sc16is752-go/bus"
	"sc16is752-go/x/strconvx"
)

// ParseTopic splits "a/b/0" into tokens. All-digit tokens become ints so
// capability ids match the topics the HAL publishes.
func ParseTopic(s string) bus.Topic {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	t := make(bus.Topic, len(parts))
	for i, p := range parts {
		if n, err := strconvx.Atoi(p); err == nil && n >= 0 && p[0] != '+' {
			t[i] = n
			continue
		}
		t[i] = p
	}
	return t
}

func joinTopic(prefix, t bus.Topic) bus.Topic {
	out := make(bus.Topic, 0, len(prefix)+len(t))
	out = append(out, prefix...)
	return append(out, t...)
}

func hasPrefix(t, prefix bus.Topic) bool {
	if len(t) < len(prefix) {
		return false
	}
	for i := range prefix {
		if t[i] != prefix[i] {
			return false
		}
	}
	return true
}

// wireMessage is the JSON body of a pub frame.
type wireMessage struct {
	Topic    []any `json:"t"`
	Payload  any   `json:"p,omitempty"`
	Retained bool  `json:"r,omitempty"`
}

func encodeWireMessage(m *bus.Message) ([]byte, error) {
	return json.Marshal(wireMessage{Topic: m.Topic, Payload: m.Payload, Retained: m.Retained})
}

// decodeWireMessage restores integral numeric tokens to int.
func decodeWireMessage(b []byte) (*bus.Message, error) {
	var wm wireMessage
	if err := json.Unmarshal(b, &wm); err != nil {
		return nil, err
	}
	t := make(bus.Topic, len(wm.Topic))
	for i, tok := range wm.Topic {
		if f, ok := tok.(float64); ok && f == float64(int(f)) {
			t[i] = int(f)
			continue
		}
		t[i] = tok
	}
	return &bus.Message{Topic: t, Payload: wm.Payload, Retained: wm.Retained}, nil
}
