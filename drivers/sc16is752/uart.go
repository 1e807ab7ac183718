package sc16is752

// Parity selects the LCR[5:3] pattern.
type Parity uint8

const (
	NoParity Parity = iota
	Odd
	Even
	ForcedParity1
	ForcedParity0
)

func (p Parity) String() string {
	switch p {
	case NoParity:
		return "none"
	case Odd:
		return "odd"
	case Even:
		return "even"
	case ForcedParity1:
		return "mark"
	case ForcedParity0:
		return "space"
	default:
		return "invalid"
	}
}

// bits returns the LCR parity field.
func (p Parity) bits() (uint8, bool) {
	switch p {
	case NoParity:
		return 0x00, true
	case Odd:
		return 0x08, true
	case Even:
		return 0x18, true
	case ForcedParity1:
		return 0x28, true
	case ForcedParity0:
		return 0x38, true
	default:
		return 0, false
	}
}

// UartConfig holds line parameters for one channel.
type UartConfig struct {
	Baud       uint32 // up to 115200 with the default crystal
	WordLength uint8  // 5..8
	Parity     Parity
	StopBits   uint8 // 1 or 2
}

// DefaultUartConfig is 115200 8N1.
func DefaultUartConfig() UartConfig {
	return UartConfig{
		Baud:       115200,
		WordLength: 8,
		Parity:     NoParity,
		StopBits:   1,
	}
}

// WithBaud returns a copy with the baud rate replaced.
func (c UartConfig) WithBaud(baud uint32) UartConfig {
	c.Baud = baud
	return c
}

// Validate checks the fields without touching the bus. The divisor range is
// only known once the prescaler has been read, so SetBaudRate checks that.
func (c UartConfig) Validate() error {
	if c.Baud == 0 {
		return ErrInvalidBaud
	}
	if c.WordLength < 5 || c.WordLength > 8 {
		return ErrInvalidWordLength
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return ErrInvalidStopBits
	}
	if _, ok := c.Parity.bits(); !ok {
		return ErrInvalidParity
	}
	return nil
}

// InitialiseUART enables the FIFO, then programs the divisor and line format.
func (d *Device) InitialiseUART(ch Channel, cfg UartConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := d.FifoEnable(ch, true); err != nil {
		return err
	}
	if err := d.SetBaudRate(ch, cfg.Baud); err != nil {
		return err
	}
	return d.SetLine(ch, cfg.WordLength, cfg.Parity, cfg.StopBits)
}

// ---------------- Baud rate ----------------

// Prescaler reads MCR: 0 selects divide-by-1, anything else divide-by-4.
func (d *Device) Prescaler(ch Channel) (uint32, error) {
	mcr, err := d.readRegister(ch, regMCR)
	if err != nil {
		return 0, err
	}
	if mcr == 0 {
		return 1, nil
	}
	return 4, nil
}

// BaudDivisor computes (CrystalFrequency/prescaler)/(baud*16) with integer
// division. A zero baud, zero prescaler, or a result that does not fit the
// 16-bit DLL/DLH pair (including 0) is rejected.
func BaudDivisor(prescaler, baud uint32) (uint16, error) {
	if baud == 0 || prescaler == 0 {
		return 0, ErrInvalidBaud
	}
	div := (uint64(CrystalFrequency) / uint64(prescaler)) / (uint64(baud) * 16)
	if div == 0 || div > 0xFFFF {
		return 0, ErrInvalidBaud
	}
	return uint16(div), nil
}

// ActualBaud returns the rate a divisor really produces.
func ActualBaud(prescaler uint32, divisor uint16) uint32 {
	if prescaler == 0 || divisor == 0 {
		return 0
	}
	return (CrystalFrequency / prescaler) / (16 * uint32(divisor))
}

// SetBaudRate programs DLL/DLH through the divisor latch.
func (d *Device) SetBaudRate(ch Channel, baud uint32) error {
	if baud == 0 {
		return ErrInvalidBaud
	}
	pre, err := d.Prescaler(ch)
	if err != nil {
		return err
	}
	div, err := BaudDivisor(pre, baud)
	if err != nil {
		return err
	}
	lcr, err := d.readRegister(ch, regLCR)
	if err != nil {
		return err
	}
	if err := d.writeRegister(ch, regLCR, lcr|lcrDivisorLatch); err != nil {
		return err
	}
	if err := d.writeRegister(ch, regDLL, uint8(div)); err != nil {
		return err
	}
	if err := d.writeRegister(ch, regDLH, uint8(div>>8)); err != nil {
		return err
	}
	return d.writeRegister(ch, regLCR, lcr&^lcrDivisorLatch)
}

// ---------------- Line control ----------------

// LineControl composes an LCR value. The two high bits of current are kept.
func LineControl(current, wordLength uint8, parity Parity, stopBits uint8) (uint8, error) {
	lcr := current & lcrPreserveMask
	switch wordLength {
	case 5:
	case 6:
		lcr |= 0x01
	case 7:
		lcr |= 0x02
	case 8:
		lcr |= 0x03
	default:
		return 0, ErrInvalidWordLength
	}
	switch stopBits {
	case 1:
	case 2:
		lcr |= lcrStopBits2
	default:
		return 0, ErrInvalidStopBits
	}
	pb, ok := parity.bits()
	if !ok {
		return 0, ErrInvalidParity
	}
	return lcr | pb, nil
}

// SetLine programs word length, parity and stop bits.
func (d *Device) SetLine(ch Channel, wordLength uint8, parity Parity, stopBits uint8) error {
	// Reject before touching the bus.
	if _, err := LineControl(0, wordLength, parity, stopBits); err != nil {
		return err
	}
	cur, err := d.readRegister(ch, regLCR)
	if err != nil {
		return err
	}
	lcr, err := LineControl(cur, wordLength, parity, stopBits)
	if err != nil {
		return err
	}
	return d.writeRegister(ch, regLCR, lcr)
}
