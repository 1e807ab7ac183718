package types

// ---- UART capability ----

type UARTDir string

const (
	UARTRx UARTDir = "rx"
	UARTTx UARTDir = "tx"
)

// UARTEvent is published on hal/capability/uart/<id>/event.
type UARTEvent struct {
	Dir  UARTDir `json:"dir"`
	Data []byte  `json:"data"`
	N    int     `json:"n"`
	TS   int64   `json:"ts_ms"`
}

// UARTWrite is the typed payload of the uart "write" verb.
type UARTWrite struct {
	Data []byte `json:"data"`
}

type UARTSetBaud struct {
	Baud uint32 `json:"baud"`
}

type UARTSetFormat struct {
	DataBits uint8  `json:"databits"`
	StopBits uint8  `json:"stopbits"`
	Parity   string `json:"parity"` // none|odd|even|mark|space
}

// UARTLevels is the periodic uart value.
type UARTLevels struct {
	RxLevel   uint8  `json:"rx_level"`
	TxSpace   uint8  `json:"tx_space"`
	Interrupt string `json:"interrupt"`
	Pending   bool   `json:"pending"`
	TS        int64  `json:"ts_ms"`
}

// ---- GPIO capability (whole 8-bit port) ----

// GPIOPort is the periodic gpio value. Bit n is GPIOn.
type GPIOPort struct {
	State uint8 `json:"state"`
	Dir   uint8 `json:"dir"`
	TS    int64 `json:"ts_ms"`
}

type GPIOPin struct {
	Pin   int `json:"pin"`
	Level int `json:"level"`
}
