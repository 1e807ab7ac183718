package sc16is752

// Register offsets (datasheet table 10). Several offsets share an address and
// are selected by direction or by LCR/MCR state.
const (
	regRHR       = 0x00 // R
	regTHR       = 0x00 // W
	regDLL       = 0x00 // R/W when LCR[7] = 1
	regIER       = 0x01 // R/W
	regDLH       = 0x01 // R/W when LCR[7] = 1
	regIIR       = 0x02 // R
	regFCR       = 0x02 // W
	regLCR       = 0x03 // R/W
	regMCR       = 0x04 // R/W; non-zero selects the divide-by-4 prescaler
	regLSR       = 0x05 // R
	regSPR       = 0x07 // R/W scratch pad
	regTLR       = 0x07 // R/W when MCR[2] = 1 and EFR[4] = 1
	regTXLVL     = 0x08 // R
	regRXLVL     = 0x09 // R
	regIODir     = 0x0A // R/W, chip-global
	regIOState   = 0x0B // R/W, chip-global
	regIOIntEna  = 0x0C // R/W, chip-global
	regIOControl = 0x0E // R/W, chip-global
	regEFCR      = 0x0F // R/W
)

// FCR bits.
const (
	fcrFifoEnable = 0x01
	fcrResetTX    = 0x02
	fcrResetRX    = 0x04
	efrEnhanced   = 0x10
)

// LCR bits.
const (
	lcrDivisorLatch = 0x80
	lcrPreserveMask = 0xC0
	lcrStopBits2    = 0x04
)

const (
	mcrTLREnable = 0x04
	lsrTHREmpty  = 0x20
	iirMask      = 0x3E
	iirNoPending = 0x01
)

// IOControl bits.
const (
	ioLatch     = 0x01
	ioModemPins = 0x02
	ioSRESET    = 0x08
)

// Scratch pad patterns used by Ping.
const (
	pingPattern1 = 0x55
	pingPattern2 = 0xAA
)
