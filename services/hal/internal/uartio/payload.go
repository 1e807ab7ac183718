package uartio

import (
	"encoding/base64"

	"sc16is752-go/services/hal/internal/util"
	"sc16is752-go/types"
)

type writeReq struct {
	Data    []byte `json:"data,omitempty"`
	DataB64 string `json:"data_b64,omitempty"`
	Text    string `json:"text,omitempty"`
}

// DecodeWrite extracts the bytes of a uart "write" payload. It accepts raw
// []byte or string, types.UARTWrite, or a map/JSON object carrying one of
// data, data_b64 or text.
func DecodeWrite(payload any) ([]byte, bool) {
	switch v := payload.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	case types.UARTWrite:
		return v.Data, true
	case *types.UARTWrite:
		if v == nil {
			return nil, false
		}
		return v.Data, true
	}
	var w writeReq
	if err := util.DecodeJSON(payload, &w); err != nil {
		return nil, false
	}
	switch {
	case w.Data != nil:
		return w.Data, true
	case w.DataB64 != "":
		b, err := base64.StdEncoding.DecodeString(w.DataB64)
		return b, err == nil
	case w.Text != "":
		return []byte(w.Text), true
	}
	return nil, false
}
