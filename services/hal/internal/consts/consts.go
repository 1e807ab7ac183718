package consts

// Top-level topic tokens
const (
	TokConfig     = "config"
	TokHAL        = "hal"
	TokCapability = "capability"
	TokInfo       = "info"
	TokState      = "state"
	TokValue      = "value"
	TokControl    = "control"
	TokEvent      = "event"
)

// Service-level control verbs
const (
	CtrlReadNow = "read_now"
	CtrlSetRate = "set_rate"
)

// Capability kinds
const (
	KindUART     = "uart"
	KindGPIO     = "gpio"
	KindExpander = "expander"
)

// UART verbs
const (
	UARTWrite     = "write"
	UARTRead      = "read"
	UARTFlush     = "flush"
	UARTSetBaud   = "set_baud"
	UARTSetFormat = "set_format"
	UARTResetFIFO = "reset_fifo"
	UARTFeature   = "feature"
)

// GPIO verbs
const (
	GPIOGet     = "get"
	GPIOSet     = "set"
	GPIOMode    = "mode"
	GPIOGetPort = "get_port"
	GPIOSetPort = "set_port"
	GPIOIRQ     = "irq"
)

// Expander verbs
const (
	ExpPing  = "ping"
	ExpReset = "reset"
	ExpISR   = "isr"
)
