package max30102

// This file holds the pure register codec: bit packing and unpacking with no
// bus access and no device state. Argument validation happens in the callers
// (see config.go); every function here is total.

// FIFO configuration register layout (0x08):
//   bits 7:5 SMP_AVE, bit 4 FIFO_ROLLOVER_EN, bits 3:0 FIFO_A_FULL
const (
	smpAveShift   = 5
	rolloverBit   = 0x10
	almostFullMax = 0x0F
	smpAveMax     = 0x05 // 110 and 111 are datasheet aliases, rejected
)

// SpO2 configuration register layout (0x0A):
//   bit 7 reserved, bits 6:5 SPO2_ADC_RGE, bits 4:2 SPO2_SR, bits 1:0 LED_PW
const (
	adcRangeShift   = 5
	sampleRateShift = 2
	spo2Reserved    = 0x80
)

// EncodeFIFOConfig packs a sample-averaging code, the rollover-enable flag
// and the almost-full threshold (free slots remaining when the almost-full
// interrupt fires) into the FIFO configuration byte.
func EncodeFIFOConfig(smpAve byte, rollover bool, almostFull byte) byte {
	b := smpAve<<smpAveShift | almostFull&almostFullMax
	if rollover {
		b |= rolloverBit
	}
	return b
}

// DecodeFIFOConfig is the inverse of EncodeFIFOConfig.
func DecodeFIFOConfig(b byte) (smpAve byte, rollover bool, almostFull byte) {
	return b >> smpAveShift, b&rolloverBit != 0, b & almostFullMax
}

// SampleAveraging converts a sample-averaging factor (1, 2, 4, 8, 16 or 32)
// to its SMP_AVE code. The second return value is false for any other factor.
func SampleAveraging(factor int) (byte, bool) {
	switch factor {
	case 1:
		return 0, true
	case 2:
		return 1, true
	case 4:
		return 2, true
	case 8:
		return 3, true
	case 16:
		return 4, true
	case 32:
		return 5, true
	}
	return 0, false
}

// EncodeSpO2Config packs the ADC range, sample rate and pulse width codes
// into the SpO2 configuration byte.
func EncodeSpO2Config(adcRange, sampleRate, pulseWidth byte) byte {
	return adcRange<<adcRangeShift | sampleRate<<sampleRateShift | pulseWidth&0x03
}

// DecodeSpO2Config is the inverse of EncodeSpO2Config.
func DecodeSpO2Config(b byte) (adcRange, sampleRate, pulseWidth byte) {
	return b >> adcRangeShift & 0x03, b >> sampleRateShift & 0x07, b & 0x03
}

// EncodeSlot merges a slot's LED assignment into the current value of its
// multi-LED mode register. Two 3-bit slot fields share each register; odd
// slots occupy bits 2:0, even slots bits 6:4.
func EncodeSlot(current byte, slot int, led byte) byte {
	shift := uint(0)
	if slot%2 == 0 {
		shift = 4
	}
	return current&^(0x07<<shift) | led<<shift
}

// slotRegister returns the multi-LED mode register holding the given slot.
func slotRegister(slot int) byte {
	if slot <= 2 {
		return MultiLedS2S1
	}
	return MultiLedS4S3
}

// DecodeInterruptStatus lists the interrupt sources flagged in a status
// register pair.
func DecodeInterruptStatus(status1, status2 byte) []Interrupt {
	var ints []Interrupt
	for _, i := range []Interrupt{IntAlmostFull, IntPPGReady, IntALCOverflow, IntPowerReady} {
		if status1&(1<<i) != 0 {
			ints = append(ints, i)
		}
	}
	if status2&(1<<IntDieTempReady) != 0 {
		ints = append(ints, IntDieTempReady)
	}
	return ints
}

// EncodeInterruptEnable toggles the enable bit for one interrupt source in
// the current value of its enable register.
func EncodeInterruptEnable(current byte, kind Interrupt, enable bool) byte {
	if enable {
		return current | 1<<kind
	}
	return current &^ (1 << kind)
}

// PendingSamples computes the number of unread FIFO samples from the 5-bit
// circular write and read pointers.
func PendingSamples(writePtr, readPtr byte) int {
	return (int(writePtr) - int(readPtr) + fifoDepth) % fifoDepth
}

// UnpackSamples converts raw FIFO bytes into (red, IR) sample pairs. Each
// sample is a 6-byte group, red triple first, MSB first. The ADC value is 18
// bits wide; the upper 6 bits of the leading byte of each triple carry no
// data and are masked off. Trailing bytes that do not form a whole group are
// ignored.
func UnpackSamples(raw []byte) (red, ir []uint32) {
	n := len(raw) / sampleBytes
	red = make([]uint32, n)
	ir = make([]uint32, n)
	for i := 0; i < n; i++ {
		g := raw[i*sampleBytes:]
		red[i] = (uint32(g[0])<<16 | uint32(g[1])<<8 | uint32(g[2])) & sampleMask
		ir[i] = (uint32(g[3])<<16 | uint32(g[4])<<8 | uint32(g[5])) & sampleMask
	}
	return red, ir
}
