package max30102

// Register addresses
const (
	IntStat1     = 0x00
	IntStat2     = 0x01
	IntEna1      = 0x02
	IntEna2      = 0x03
	FIFOWrPtr    = 0x04
	OvfCount     = 0x05
	FIFORdPtr    = 0x06
	FIFOData     = 0x07
	FIFOCfg      = 0x08
	ModeCfg      = 0x09
	SpO2Cfg      = 0x0A
	Led1PA       = 0x0C
	Led2PA       = 0x0D
	MultiLedS2S1 = 0x11
	MultiLedS4S3 = 0x12
	TempInt      = 0x1F
	TempFrac     = 0x20
	TempCfg      = 0x21
	RegRevID     = 0xFE
	RegPartID    = 0xFF
)

// Device constants
const (
	Addr   = 0x57
	PartID = 0x15
)

// Mode configuration
const (
	ModeHR       byte = 0x02
	ModeSpO2     byte = 0x03
	ModeMultiLed byte = 0x07

	ResetControl byte = 0x40
	shutdownBit  byte = 0x80
)

// LED slot assignments. Code 0x03 is reserved on the MAX30102.
const (
	SlotNone byte = 0x00
	SlotRed  byte = 0x01
	SlotIR   byte = 0x02
)

// SpO2 sample rate codes (SPO2_SR field)
const (
	SR50 byte = iota
	SR100
	SR200
	SR400
	SR800
	SR1000
	SR1600
	SR3200
)

// LED pulse width codes (LED_PW field)
const (
	PW69 byte = iota
	PW118
	PW215
	PW411
)

// SpO2 ADC range codes (SPO2_ADC_RGE field)
const (
	ADC2048 byte = iota
	ADC4096
	ADC8192
	ADC16384
)

// Temperature configuration
const (
	TempEna byte = 0x01
)

// FIFO geometry. The hardware FIFO holds 32 samples of 6 bytes each
// (3 bytes red, 3 bytes IR); the write/read pointers are 5-bit counters.
const (
	fifoDepth   = 32
	sampleBytes = 6
	sampleMask  = 0x3FFFF
)

// Interrupt identifies one of the device's interrupt sources by its bit
// position in the status/enable register pair. All sources except
// DieTempReady live in the first register; DieTempReady lives in the
// second.
type Interrupt byte

const (
	IntPowerReady   Interrupt = 0
	IntDieTempReady Interrupt = 1
	IntALCOverflow  Interrupt = 5
	IntPPGReady     Interrupt = 6
	IntAlmostFull   Interrupt = 7
)

func (i Interrupt) String() string {
	switch i {
	case IntPowerReady:
		return "power-ready"
	case IntDieTempReady:
		return "die-temp-ready"
	case IntALCOverflow:
		return "alc-overflow"
	case IntPPGReady:
		return "ppg-ready"
	case IntAlmostFull:
		return "fifo-almost-full"
	}
	return "unknown"
}

// valid reports whether i names one of the five interrupt sources.
func (i Interrupt) valid() bool {
	switch i {
	case IntPowerReady, IntDieTempReady, IntALCOverflow, IntPPGReady, IntAlmostFull:
		return true
	}
	return false
}

// enableRegister returns the enable register holding the bit for i.
func (i Interrupt) enableRegister() byte {
	if i == IntDieTempReady {
		return IntEna2
	}
	return IntEna1
}
