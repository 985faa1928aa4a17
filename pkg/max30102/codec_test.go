package max30102

import (
	"testing"
)

func TestEncodeFIFOConfig(t *testing.T) {
	tests := []struct {
		smpAve     byte
		rollover   bool
		almostFull byte
		want       byte
	}{
		{0, false, 0, 0x00},
		{2, true, 0, 0x50},
		{3, false, 0, 0x60},
		{2, true, 15, 0x5F},
		{5, true, 8, 0xB8},
	}
	for _, tc := range tests {
		if got := EncodeFIFOConfig(tc.smpAve, tc.rollover, tc.almostFull); got != tc.want {
			t.Errorf("EncodeFIFOConfig(%d,%v,%d) = %#02x, want %#02x",
				tc.smpAve, tc.rollover, tc.almostFull, got, tc.want)
		}
	}
}

func TestFIFOConfigRoundTrip(t *testing.T) {
	for smpAve := byte(0); smpAve <= smpAveMax; smpAve++ {
		for _, rollover := range []bool{false, true} {
			for almostFull := byte(0); almostFull <= almostFullMax; almostFull++ {
				b := EncodeFIFOConfig(smpAve, rollover, almostFull)
				gotAve, gotRoll, gotFull := DecodeFIFOConfig(b)
				if gotAve != smpAve || gotRoll != rollover || gotFull != almostFull {
					t.Fatalf("round trip %#02x: got (%d,%v,%d), want (%d,%v,%d)",
						b, gotAve, gotRoll, gotFull, smpAve, rollover, almostFull)
				}
			}
		}
	}
}

func TestSpO2ConfigRoundTrip(t *testing.T) {
	for adc := byte(0); adc <= 3; adc++ {
		for sr := byte(0); sr <= 7; sr++ {
			for pw := byte(0); pw <= 3; pw++ {
				b := EncodeSpO2Config(adc, sr, pw)
				gotADC, gotSR, gotPW := DecodeSpO2Config(b)
				if gotADC != adc || gotSR != sr || gotPW != pw {
					t.Fatalf("round trip %#02x: got (%d,%d,%d), want (%d,%d,%d)",
						b, gotADC, gotSR, gotPW, adc, sr, pw)
				}
			}
		}
	}
}

func TestEncodeSlot(t *testing.T) {
	tests := []struct {
		current byte
		slot    int
		led     byte
		want    byte
	}{
		{0x00, 1, SlotRed, 0x01},
		{0x00, 2, SlotIR, 0x20},
		{0x21, 1, SlotNone, 0x20}, // odd slot cleared, even slot kept
		{0x21, 2, SlotNone, 0x01}, // even slot cleared, odd slot kept
		{0x00, 3, SlotIR, 0x02},
		{0x02, 4, SlotRed, 0x12},
	}
	for _, tc := range tests {
		if got := EncodeSlot(tc.current, tc.slot, tc.led); got != tc.want {
			t.Errorf("EncodeSlot(%#02x, %d, %d) = %#02x, want %#02x",
				tc.current, tc.slot, tc.led, got, tc.want)
		}
	}
}

func TestPendingSamples(t *testing.T) {
	tests := []struct {
		writePtr, readPtr byte
		want              int
	}{
		{0, 0, 0},
		{5, 30, 7},
		{30, 5, 25},
		{31, 0, 31},
		{0, 31, 1},
		{17, 17, 0},
	}
	for _, tc := range tests {
		if got := PendingSamples(tc.writePtr, tc.readPtr); got != tc.want {
			t.Errorf("PendingSamples(%d, %d) = %d, want %d", tc.writePtr, tc.readPtr, got, tc.want)
		}
	}

	// Any 5-bit pointer pair yields a pending count inside [0, 32).
	for wr := byte(0); wr < 32; wr++ {
		for rd := byte(0); rd < 32; rd++ {
			if got := PendingSamples(wr, rd); got < 0 || got >= fifoDepth {
				t.Fatalf("PendingSamples(%d, %d) = %d out of range", wr, rd, got)
			}
		}
	}
}

func TestUnpackSamples(t *testing.T) {
	red, ir := UnpackSamples([]byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC})
	if len(red) != 1 || len(ir) != 1 {
		t.Fatalf("got %d red / %d ir samples, want 1 each", len(red), len(ir))
	}
	// The upper 6 bits of the leading byte of each triple are discarded,
	// not just shifted in.
	if want := uint32(0x23456); red[0] != want {
		t.Errorf("red = %#x, want %#x", red[0], want)
	}
	if want := uint32(0x09ABC); ir[0] != want {
		t.Errorf("ir = %#x, want %#x", ir[0], want)
	}
}

func TestUnpackSamplesMasked(t *testing.T) {
	red, ir := UnpackSamples([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if red[0] != sampleMask || ir[0] != sampleMask {
		t.Errorf("saturated sample = (%#x, %#x), want both %#x", red[0], ir[0], uint32(sampleMask))
	}
}

func TestUnpackSamplesPartialGroup(t *testing.T) {
	red, ir := UnpackSamples(make([]byte, 13)) // two groups plus one stray byte
	if len(red) != 2 || len(ir) != 2 {
		t.Errorf("got %d red / %d ir samples, want 2 each", len(red), len(ir))
	}
}

func TestDecodeInterruptStatus(t *testing.T) {
	ints := DecodeInterruptStatus(1<<IntAlmostFull|1<<IntPowerReady, 1<<IntDieTempReady)
	want := map[Interrupt]bool{IntAlmostFull: true, IntPowerReady: true, IntDieTempReady: true}
	if len(ints) != len(want) {
		t.Fatalf("got %v, want %d sources", ints, len(want))
	}
	for _, i := range ints {
		if !want[i] {
			t.Errorf("unexpected interrupt %v", i)
		}
	}

	if got := DecodeInterruptStatus(0, 0); len(got) != 0 {
		t.Errorf("empty status decoded to %v", got)
	}
}

func TestEncodeInterruptEnable(t *testing.T) {
	b := EncodeInterruptEnable(0, IntAlmostFull, true)
	if b != 0x80 {
		t.Errorf("enable almost-full = %#02x, want 0x80", b)
	}
	b = EncodeInterruptEnable(0xC0, IntPPGReady, false)
	if b != 0x80 {
		t.Errorf("disable ppg-ready = %#02x, want 0x80", b)
	}
}
