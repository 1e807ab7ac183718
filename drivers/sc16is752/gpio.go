package sc16is752

// GPIO registers are shared by both UARTs and always go through channel A.

// GPIO selects one of the eight port pins.
type GPIO uint8

const (
	GPIO0 GPIO = iota
	GPIO1
	GPIO2
	GPIO3
	GPIO4
	GPIO5
	GPIO6
	GPIO7
)

func (g GPIO) mask() (uint8, bool) {
	if g > GPIO7 {
		return 0, false
	}
	return 1 << g, true
}

type PinMode uint8

const (
	Input PinMode = iota
	Output
)

type PinState uint8

const (
	Low PinState = iota
	High
)

func (s PinState) String() string {
	if s == High {
		return "high"
	}
	return "low"
}

// SetPinMode sets the IODir bit for pin: 1 = output, 0 = input.
func (d *Device) SetPinMode(pin GPIO, mode PinMode) error {
	m, ok := pin.mask()
	if !ok {
		return ErrInvalidPin
	}
	return d.assignBit(ChannelA, regIODir, m, mode == Output)
}

// SetPinState drives an output pin.
func (d *Device) SetPinState(pin GPIO, state PinState) error {
	m, ok := pin.mask()
	if !ok {
		return ErrInvalidPin
	}
	return d.assignBit(ChannelA, regIOState, m, state == High)
}

// PinState reads the level of one pin.
func (d *Device) PinState(pin GPIO) (PinState, error) {
	m, ok := pin.mask()
	if !ok {
		return Low, ErrInvalidPin
	}
	v, err := d.readRegister(ChannelA, regIOState)
	if err != nil {
		return Low, err
	}
	if v&m == 0 {
		return Low, nil
	}
	return High, nil
}

// Port-wide access (bit n = GPIOn).

func (d *Device) PortState() (uint8, error)     { return d.readRegister(ChannelA, regIOState) }
func (d *Device) PortMode() (uint8, error)      { return d.readRegister(ChannelA, regIODir) }
func (d *Device) SetPortMode(dir uint8) error   { return d.writeRegister(ChannelA, regIODir, dir) }
func (d *Device) SetPortState(v uint8) error    { return d.writeRegister(ChannelA, regIOState, v) }
func (d *Device) SetPinInterrupt(m uint8) error { return d.writeRegister(ChannelA, regIOIntEna, m) }

// ResetDevice sets IOControl[3] (software reset). The bit self-clears.
func (d *Device) ResetDevice() error {
	if err := d.modifyRegister(ChannelA, regIOControl, ioSRESET, 0); err != nil {
		return err
	}
	d.fifo = [2]uint8{}
	d.peekFlags = [2]bool{}
	return nil
}

// ModemPin hands GPIO[7:4] (channel A) and GPIO[3:0] (channel B) to the
// modem-control function when on.
func (d *Device) ModemPin(on bool) error {
	return d.assignBit(ChannelA, regIOControl, ioModemPins, on)
}

// GPIOLatch enables input latching on the IOState register.
func (d *Device) GPIOLatch(on bool) error {
	return d.assignBit(ChannelA, regIOControl, ioLatch, on)
}
