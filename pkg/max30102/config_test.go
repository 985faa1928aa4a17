package max30102

import (
	"errors"
	"testing"
)

func TestSetModeInvalid(t *testing.T) {
	d, bus := newTestDevice()

	err := d.SetMode(0x05)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetMode(0x05) err = %v, want ErrInvalidArgument", err)
	}
	if n := bus.transactions(); n != 0 {
		t.Errorf("invalid mode reached the bus: %d transactions", n)
	}
}

func TestSetMode(t *testing.T) {
	d, bus := newTestDevice()

	if err := d.SetMode(ModeSpO2); err != nil {
		t.Fatalf("SetMode err = %v", err)
	}
	if v, ok := bus.lastWrite(ModeCfg); !ok || v != 0x03 {
		t.Errorf("mode register write = %#02x (ok=%v), want 0x03", v, ok)
	}
	if d.Snapshot().Config.Mode != ModeSpO2 {
		t.Error("config mirror not updated")
	}
}

func TestSetSlotInvalid(t *testing.T) {
	d, bus := newTestDevice()

	if err := d.SetSlot(5, SlotRed); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetSlot(5, red) err = %v, want ErrInvalidArgument", err)
	}
	if err := d.SetSlot(1, 0x03); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetSlot(1, 0x03) err = %v, want ErrInvalidArgument", err)
	}
	if n := bus.transactions(); n != 0 {
		t.Errorf("invalid slot reached the bus: %d transactions", n)
	}
}

func TestSetSlotReadModifyWrite(t *testing.T) {
	d, bus := newTestDevice()
	bus.regs[MultiLedS4S3] = 0x02 // slot 3 already assigned IR

	if err := d.SetSlot(4, SlotRed); err != nil {
		t.Fatalf("SetSlot err = %v", err)
	}
	if v, _ := bus.lastWrite(MultiLedS4S3); v != 0x12 {
		t.Errorf("slot register write = %#02x, want 0x12 (slot 3 preserved)", v)
	}
	if cfg := d.Snapshot().Config; cfg.Slots[3] != SlotRed {
		t.Errorf("mirror slots = %v", cfg.Slots)
	}
}

func TestSetInterruptDieTempRegister(t *testing.T) {
	d, bus := newTestDevice()

	if err := d.SetInterrupt(IntDieTempReady, true); err != nil {
		t.Fatalf("SetInterrupt err = %v", err)
	}
	if v, ok := bus.lastWrite(IntEna2); !ok || v != 0x02 {
		t.Errorf("IntEna2 write = %#02x (ok=%v), want 0x02", v, ok)
	}
	if _, ok := bus.lastWrite(IntEna1); ok {
		t.Error("die-temp toggle touched IntEna1")
	}
}

func TestSetInterruptInvalidKind(t *testing.T) {
	d, bus := newTestDevice()

	if err := d.SetInterrupt(Interrupt(3), true); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if n := bus.transactions(); n != 0 {
		t.Errorf("invalid kind reached the bus: %d transactions", n)
	}
}

func TestSetFIFOConfigReservedAveraging(t *testing.T) {
	d, _ := newTestDevice()

	// SMP_AVE = 111 is a datasheet alias and rejected.
	if err := d.SetFIFOConfig(0xE0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
	if err := d.SetFIFOConfig(0x5F); err != nil {
		t.Fatalf("legal fifo config rejected: %v", err)
	}
}

func TestSetSpO2ConfigValidation(t *testing.T) {
	d, _ := newTestDevice()

	tests := []struct {
		config byte
		ok     bool
	}{
		{EncodeSpO2Config(ADC16384, SR100, PW411), true},
		{EncodeSpO2Config(ADC4096, SR800, PW69), true},
		{0x80 | EncodeSpO2Config(ADC4096, SR100, PW411), false}, // reserved bit
		{EncodeSpO2Config(ADC4096, SR1000, PW69), false},        // rate too high for width
		{EncodeSpO2Config(ADC4096, SR3200, PW118), false},
		{EncodeSpO2Config(ADC4096, SR3200, PW411), true},
	}
	for _, tc := range tests {
		err := d.SetSpO2Config(tc.config)
		if tc.ok && err != nil {
			t.Errorf("SetSpO2Config(%#02x) err = %v, want nil", tc.config, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetSpO2Config(%#02x) err = %v, want ErrInvalidArgument", tc.config, err)
		}
	}
}

func TestInitialize(t *testing.T) {
	d, bus := newTestDevice()

	if err := d.Initialize(DefaultSettings()); err != nil {
		t.Fatalf("Initialize err = %v", err)
	}
	if got := d.State(); got != StateConfigured {
		t.Fatalf("state = %v, want configured", got)
	}

	// Reset precedes the pointer clear, which precedes the mode write.
	order := map[byte]int{}
	for i, w := range bus.writes {
		if _, seen := order[w.reg]; !seen {
			order[w.reg] = i
		}
	}
	if !(order[ModeCfg] < order[FIFOWrPtr] && order[FIFOWrPtr] < order[FIFOCfg]) {
		t.Errorf("initialization order wrong: %v", bus.writes)
	}

	if v, _ := bus.lastWrite(ModeCfg); v != ModeSpO2 {
		t.Errorf("final mode = %#02x, want SpO2", v)
	}
	if v, _ := bus.lastWrite(IntEna1); v != 1<<IntAlmostFull {
		t.Errorf("IntEna1 = %#02x, want almost-full only", v)
	}
	if v, _ := bus.lastWrite(IntEna2); v != 1<<IntDieTempReady {
		t.Errorf("IntEna2 = %#02x, want die-temp-ready", v)
	}
	if cfg := d.Snapshot().Config; cfg.Slots != [4]byte{SlotRed, SlotNone, SlotIR, SlotNone} {
		t.Errorf("mirror slots = %v", cfg.Slots)
	}
}

func TestInitializeIdentityMismatch(t *testing.T) {
	d, bus := newTestDevice()
	bus.regs[RegPartID] = 0x11

	err := d.Initialize(DefaultSettings())
	if !errors.Is(err, ErrNotDevice) {
		t.Fatalf("err = %v, want ErrNotDevice", err)
	}
	if got := d.State(); got != StateFaulted {
		t.Errorf("state = %v, want faulted", got)
	}
	if len(bus.writes) != 0 {
		t.Errorf("identity mismatch still wrote registers: %v", bus.writes)
	}
}

func TestInitializeBusFailure(t *testing.T) {
	d, bus := newTestDevice()
	bus.writeErr[SpO2Cfg] = errors.New("nack")

	if err := d.Initialize(DefaultSettings()); err == nil {
		t.Fatal("Initialize succeeded despite bus failure")
	}
	if got := d.State(); got != StateFaulted {
		t.Errorf("state = %v, want faulted", got)
	}
}

func TestStartRequiresInitialize(t *testing.T) {
	d, _ := newTestDevice()

	if err := d.Start(); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Start err = %v, want ErrNotConfigured", err)
	}
}

func TestInitializeValidatesSettings(t *testing.T) {
	d, bus := newTestDevice()

	s := DefaultSettings()
	s.SampleAveraging = 3
	if err := d.Initialize(s); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}

	s = DefaultSettings()
	s.MaxDrainFailures = -1
	if err := d.Initialize(s); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative failure budget err = %v, want ErrInvalidArgument", err)
	}

	if n := bus.transactions(); n != 0 {
		t.Errorf("invalid settings reached the bus: %d transactions", n)
	}
}
