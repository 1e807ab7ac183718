package sc16is752

// InterruptEvent is the decoded IIR source.
type InterruptEvent uint8

const (
	InterruptUnknown InterruptEvent = iota
	InterruptReceiveLineStatusError
	InterruptReceiveTimeout
	InterruptRHR
	InterruptTHR
	InterruptModem
	InterruptInputPinChange
	InterruptReceiveXoff
	InterruptCtsRtsChange
	// InterruptNone is reported by PendingInterrupt when IIR[0] is set.
	InterruptNone
)

func (e InterruptEvent) String() string {
	switch e {
	case InterruptReceiveLineStatusError:
		return "receive_line_status_error"
	case InterruptReceiveTimeout:
		return "receive_timeout"
	case InterruptRHR:
		return "rhr"
	case InterruptTHR:
		return "thr"
	case InterruptModem:
		return "modem"
	case InterruptInputPinChange:
		return "input_pin_change"
	case InterruptReceiveXoff:
		return "receive_xoff"
	case InterruptCtsRtsChange:
		return "cts_rts_change"
	case InterruptNone:
		return "none"
	default:
		return "unknown"
	}
}

// DecodeInterrupt maps IIR[5:1] to an event. Codes are exact matches.
func DecodeInterrupt(iir uint8) InterruptEvent {
	switch iir & iirMask {
	case 0x06:
		return InterruptReceiveLineStatusError
	case 0x0C:
		return InterruptReceiveTimeout
	case 0x04:
		return InterruptRHR
	case 0x02:
		return InterruptTHR
	case 0x00:
		return InterruptModem
	case 0x30:
		return InterruptInputPinChange
	case 0x10:
		return InterruptReceiveXoff
	case 0x20:
		return InterruptCtsRtsChange
	default:
		return InterruptUnknown
	}
}

// ISR reads IIR and decodes the highest-priority pending source.
func (d *Device) ISR(ch Channel) (InterruptEvent, error) {
	iir, err := d.readRegister(ch, regIIR)
	if err != nil {
		return InterruptUnknown, err
	}
	return DecodeInterrupt(iir), nil
}

// InterruptControl writes IER.
func (d *Device) InterruptControl(ch Channel, ier uint8) error {
	return d.writeRegister(ch, regIER, ier)
}

// InterruptPending reports IIR[0] == 0 (the bit is active-low).
func (d *Device) InterruptPending(ch Channel) (bool, error) {
	iir, err := d.readRegister(ch, regIIR)
	if err != nil {
		return false, err
	}
	return iir&iirNoPending == 0, nil
}

// PendingInterrupt reads IIR once and returns the pending flag with the
// decoded source. The source is InterruptNone when nothing is pending. A
// single read matters because reading IIR clears a THR interrupt.
func (d *Device) PendingInterrupt(ch Channel) (bool, InterruptEvent, error) {
	iir, err := d.readRegister(ch, regIIR)
	if err != nil {
		return false, InterruptUnknown, err
	}
	if iir&iirNoPending != 0 {
		return false, InterruptNone, nil
	}
	return true, DecodeInterrupt(iir), nil
}

// ---------------- Extra features (EFCR) ----------------

// Feature is an EFCR bit.
type Feature uint8

const (
	// Multidrop enables 9-bit / multidrop mode (RS-485).
	Multidrop Feature = 0x01
	// RxDisable stops the receiver immediately.
	RxDisable Feature = 0x02
	// TxDisable stops serial output; the TX FIFO keeps accepting data.
	TxDisable Feature = 0x04
	// AutoRS485DirectionControl lets the transmitter drive RTS.
	AutoRS485DirectionControl Feature = 0x10
	// AutoRS485RTSInversion inverts RTS in RS-485 mode.
	AutoRS485RTSInversion Feature = 0x20
	// IrDAFast selects the 1/4 pulse ratio (SC16IS762 only).
	IrDAFast Feature = 0x80
)

// EnableFeatures updates one EFCR bit with inverted sense: enable == false
// SETS the bit and enable == true CLEARS it. Callers depend on this mapping;
// for TxDisable, EnableFeatures(ch, TxDisable, false) disables the transmitter.
func (d *Device) EnableFeatures(ch Channel, f Feature, enable bool) error {
	return d.assignBit(ch, regEFCR, uint8(f), !enable)
}

// Ping writes two patterns to the scratch pad of each channel and checks the
// read-back. Any mismatch returns false immediately.
func (d *Device) Ping() (bool, error) {
	for _, ch := range [...]Channel{ChannelA, ChannelB} {
		for _, pat := range [...]uint8{pingPattern1, pingPattern2} {
			if err := d.writeRegister(ch, regSPR, pat); err != nil {
				return false, err
			}
			v, err := d.readRegister(ch, regSPR)
			if err != nil {
				return false, err
			}
			if v != pat {
				return false, nil
			}
		}
	}
	return true, nil
}

func (f Feature) String() string {
	switch f {
	case Multidrop:
		return "multidrop"
	case RxDisable:
		return "rx_disable"
	case TxDisable:
		return "tx_disable"
	case AutoRS485DirectionControl:
		return "auto_rs485"
	case AutoRS485RTSInversion:
		return "rs485_rts_invert"
	case IrDAFast:
		return "irda_fast"
	default:
		return "unknown"
	}
}

// ParseFeature maps a Feature.String name back to the feature.
func ParseFeature(s string) (Feature, bool) {
	for _, f := range [...]Feature{Multidrop, RxDisable, TxDisable, AutoRS485DirectionControl, AutoRS485RTSInversion, IrDAFast} {
		if f.String() == s {
			return f, true
		}
	}
	return 0, false
}
