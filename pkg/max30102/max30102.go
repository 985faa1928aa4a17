// Package max30102 drives the MAX30102 pulse oximetry sensor: register-level
// configuration, interrupt-driven FIFO acquisition, sample hand-off to
// consumers and one-shot die temperature conversions.
//
// Datasheet:
// https://datasheets.maximintegrated.com/en/ds/MAX30102.pdf
package max30102

import (
	"fmt"
	"sync"
	"time"

	"github.com/womat/debug"
)

// Bus is the byte-oriented register transport. Each call is one bus
// transaction; implementations must split transfers larger than the
// transport's payload limit themselves.
type Bus interface {
	ReadRegister(reg byte, buf []byte) error
	WriteRegister(reg byte, data ...byte) error
}

// ResetLine drives the sensor's active-low hardware reset pin. It is
// optional; without one only the software reset is issued.
type ResetLine interface {
	Assert()
	Release()
}

// State is the acquisition state of the device.
type State int32

const (
	// StateUninitialized means no valid configuration has been applied.
	StateUninitialized State = iota
	// StateConfigured means the initialization sequence completed but the
	// drain worker is not running yet.
	StateConfigured
	// StateArmed means interrupt signals are being accepted.
	StateArmed
	// StateIdle means the device is armed with no pending sample batch.
	StateIdle
	// StateDraining means a readiness signal is being processed.
	StateDraining
	// StateFaulted means a bus failure or identity mismatch was observed;
	// Initialize must run again to recover.
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateArmed:
		return "armed"
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

// Settings holds the configuration applied by Initialize.
type Settings struct {
	// Mode is one of ModeHR, ModeSpO2, ModeMultiLed.
	Mode byte
	// SampleAveraging is the number of adjacent samples averaged per FIFO
	// entry: 1, 2, 4, 8, 16 or 32.
	SampleAveraging int
	// Rollover lets the FIFO overwrite unread samples when full.
	Rollover bool
	// AlmostFull is the number of free slots left when the almost-full
	// interrupt fires (0..15).
	AlmostFull byte
	// ADCRange, SampleRate and PulseWidth are the SpO2 configuration codes.
	ADCRange   byte
	SampleRate byte
	PulseWidth byte
	// RedAmplitude and IRAmplitude are the LED pulse amplitude registers
	// (0x00..0xFF, 0.2mA per step).
	RedAmplitude byte
	IRAmplitude  byte
	// Interrupts are the sources enabled at the end of initialization.
	Interrupts []Interrupt
	// MaxDrainFailures is the number of consecutive failed drains tolerated
	// before the device is declared faulted. Zero selects the default of 3.
	MaxDrainFailures int
}

// DefaultSettings mirror the power-on configuration of the original driver:
// SpO2 mode, 4-sample averaging with rollover, 100 samples/s at 411us pulse
// width, both LEDs at 6.4mA, FIFO-almost-full and die-temp interrupts.
func DefaultSettings() Settings {
	return Settings{
		Mode:            ModeSpO2,
		SampleAveraging: 4,
		Rollover:        true,
		AlmostFull:      0,
		ADCRange:        ADC16384,
		SampleRate:      SR100,
		PulseWidth:      PW411,
		RedAmplitude:    0x1F,
		IRAmplitude:     0x1F,
		Interrupts:      []Interrupt{IntAlmostFull, IntDieTempReady},
	}
}

// DeviceConfig is the in-memory mirror of the configuration registers,
// updated on every successful write and exposed for diagnostics.
type DeviceConfig struct {
	Mode         byte    `json:"mode"`
	FIFO         byte    `json:"fifo"`
	SpO2         byte    `json:"spo2"`
	Slots        [4]byte `json:"slots"`
	RedAmplitude byte    `json:"redAmplitude"`
	IRAmplitude  byte    `json:"irAmplitude"`
	IntEnable1   byte    `json:"intEnable1"`
	IntEnable2   byte    `json:"intEnable2"`
}

// Stats counts engine events since the last Initialize.
type Stats struct {
	Drains         uint64 `json:"drains"`
	Samples        uint64 `json:"samples"`
	Glitches       uint64 `json:"glitches"`
	Overflows      uint64 `json:"overflows"`
	DrainFailures  uint64 `json:"drainFailures"`
	DroppedSignals uint64 `json:"droppedSignals"`
}

// Snapshot is a point-in-time diagnostic view of the device.
type Snapshot struct {
	State       string       `json:"state"`
	Temperature string       `json:"temperature"`
	Config      DeviceConfig `json:"config"`
	Stats       Stats        `json:"stats"`
}

// Device is one MAX30102 instance. All register access of all operations is
// funneled through a single bus lock, so configuration calls, FIFO drains
// and temperature conversions never interleave individual transactions.
type Device struct {
	bus   Bus
	reset ResetLine

	// sleep is the delay primitive, replaceable in tests.
	sleep func(time.Duration)

	// busMu serializes multi-transaction register sequences.
	busMu sync.Mutex

	// mu guards state, config mirror, stats and the fault counter.
	mu       sync.Mutex
	state    State
	config   DeviceConfig
	stats    Stats
	failures int
	maxFail  int

	buffer *Buffer

	// signals is the bounded hand-off queue between the interrupt context
	// and the drain worker.
	signals chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup

	temp temperature
}

const (
	resetHold      = 10 * time.Millisecond
	resetSettle    = 100 * time.Millisecond
	signalQueueLen = 32

	defaultMaxDrainFailures = 3
)

// New returns a device bound to the given register transport. The reset line
// may be nil. The device is not touched until Initialize is called.
func New(bus Bus, reset ResetLine) *Device {
	return &Device{
		bus:     bus,
		reset:   reset,
		sleep:   time.Sleep,
		buffer:  NewBuffer(),
		signals: make(chan struct{}, signalQueueLen),
		maxFail: defaultMaxDrainFailures,
	}
}

// read reads a single register byte. The caller holds busMu.
func (d *Device) read(reg byte) (byte, error) {
	var b [1]byte
	if err := d.bus.ReadRegister(reg, b[:]); err != nil {
		return 0, fmt.Errorf("max30102: could not read register %#02x: %w", reg, err)
	}
	return b[0], nil
}

// write writes a single register byte. The caller holds busMu.
func (d *Device) write(reg, value byte) error {
	if err := d.bus.WriteRegister(reg, value); err != nil {
		return fmt.Errorf("max30102: could not write register %#02x: %w", reg, err)
	}
	return nil
}

// Initialize verifies the device identity and runs the power-on sequence:
// hardware reset pulse (if a reset line is wired), software reset, FIFO
// pointer clear, FIFO / mode / SpO2 configuration, LED amplitudes, slot
// assignments and interrupt enables. It fails fast on the first bus error
// and leaves the device faulted.
func (d *Device) Initialize(s Settings) error {
	if err := validateSettings(&s); err != nil {
		return err
	}

	// A re-run recovers a faulted device; a drain worker from an earlier
	// Start must not survive into the new configuration.
	d.Stop()

	d.busMu.Lock()
	defer d.busMu.Unlock()

	part, err := d.read(RegPartID)
	if err != nil {
		d.fail()
		return err
	}
	if part != PartID {
		d.fail()
		debug.ErrorLog.Printf("unsupported part ID %#02x", part)
		return ErrNotDevice
	}

	if d.reset != nil {
		d.reset.Assert()
		d.sleep(resetHold)
		d.reset.Release()
		d.sleep(resetSettle)
	}

	if err := d.write(ModeCfg, ResetControl); err != nil {
		d.fail()
		return err
	}
	d.sleep(resetSettle)

	smpAve, _ := SampleAveraging(s.SampleAveraging)
	fifoCfg := EncodeFIFOConfig(smpAve, s.Rollover, s.AlmostFull)
	spo2Cfg := EncodeSpO2Config(s.ADCRange, s.SampleRate, s.PulseWidth)

	var ena1, ena2 byte
	for _, kind := range s.Interrupts {
		if kind.enableRegister() == IntEna1 {
			ena1 = EncodeInterruptEnable(ena1, kind, true)
		} else {
			ena2 = EncodeInterruptEnable(ena2, kind, true)
		}
	}

	slot1 := EncodeSlot(0, 1, SlotRed)
	slot3 := EncodeSlot(0, 3, SlotIR)

	sequence := []struct {
		reg, value byte
	}{
		{FIFOWrPtr, 0x00},
		{FIFORdPtr, 0x00},
		{OvfCount, 0x00},
		{FIFOCfg, fifoCfg},
		{ModeCfg, s.Mode},
		{SpO2Cfg, spo2Cfg},
		{Led1PA, s.RedAmplitude},
		{Led2PA, s.IRAmplitude},
		{MultiLedS2S1, slot1},
		{MultiLedS4S3, slot3},
		{IntEna1, ena1},
		{IntEna2, ena2},
	}
	for _, w := range sequence {
		if err := d.write(w.reg, w.value); err != nil {
			d.fail()
			return err
		}
	}

	d.mu.Lock()
	d.state = StateConfigured
	d.failures = 0
	d.maxFail = s.MaxDrainFailures
	if d.maxFail == 0 {
		d.maxFail = defaultMaxDrainFailures
	}
	d.stats = Stats{}
	d.config = DeviceConfig{
		Mode:         s.Mode,
		FIFO:         fifoCfg,
		SpO2:         spo2Cfg,
		Slots:        [4]byte{SlotRed, SlotNone, SlotIR, SlotNone},
		RedAmplitude: s.RedAmplitude,
		IRAmplitude:  s.IRAmplitude,
		IntEnable1:   ena1,
		IntEnable2:   ena2,
	}
	d.mu.Unlock()

	debug.InfoLog.Printf("max30102 configured: mode %#02x, fifo %#02x, spo2 %#02x", s.Mode, fifoCfg, spo2Cfg)
	return nil
}

func validateSettings(s *Settings) error {
	if s.Mode != ModeHR && s.Mode != ModeSpO2 && s.Mode != ModeMultiLed {
		return fmt.Errorf("%w: mode %#02x", ErrInvalidArgument, s.Mode)
	}
	if _, ok := SampleAveraging(s.SampleAveraging); !ok {
		return fmt.Errorf("%w: sample averaging %d", ErrInvalidArgument, s.SampleAveraging)
	}
	if s.AlmostFull > almostFullMax {
		return fmt.Errorf("%w: almost-full threshold %d", ErrInvalidArgument, s.AlmostFull)
	}
	spo2 := EncodeSpO2Config(s.ADCRange, s.SampleRate, s.PulseWidth)
	if err := validateSpO2Config(spo2); err != nil {
		return err
	}
	for _, kind := range s.Interrupts {
		if !kind.valid() {
			return fmt.Errorf("%w: interrupt kind %d", ErrInvalidArgument, kind)
		}
	}
	if s.MaxDrainFailures < 0 {
		return fmt.Errorf("%w: max drain failures %d", ErrInvalidArgument, s.MaxDrainFailures)
	}
	return nil
}

// Start arms the device: it spawns the drain worker consuming readiness
// signals in arrival order. The interrupt source must call Notify on each
// falling edge.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateUninitialized:
		return ErrNotConfigured
	case StateFaulted:
		return ErrFaulted
	case StateConfigured:
	default:
		return nil // already armed
	}

	d.done = make(chan struct{})
	d.wg.Add(1)
	go d.drainWorker()
	d.state = StateArmed

	debug.InfoLog.Print("max30102 armed")
	return nil
}

// Stop halts the drain worker. Pending signals are discarded.
func (d *Device) Stop() {
	d.mu.Lock()
	if d.done == nil {
		d.mu.Unlock()
		return
	}
	done := d.done
	d.done = nil
	if d.state != StateFaulted {
		d.state = StateConfigured
	}
	d.mu.Unlock()

	close(done)
	d.wg.Wait()
}

// Close stops acquisition and puts the device into power-save mode.
func (d *Device) Close() error {
	d.Stop()
	return d.Shutdown()
}

// Shutdown sets the device into power-save mode.
func (d *Device) Shutdown() error {
	d.busMu.Lock()
	defer d.busMu.Unlock()
	return d.modify(ModeCfg, shutdownBit, shutdownBit)
}

// Startup wakes the device from power-save mode.
func (d *Device) Startup() error {
	d.busMu.Lock()
	defer d.busMu.Unlock()
	return d.modify(ModeCfg, shutdownBit, 0)
}

// modify performs a read-modify-write of one register. The caller holds
// busMu.
func (d *Device) modify(reg, mask, value byte) error {
	current, err := d.read(reg)
	if err != nil {
		return err
	}
	return d.write(reg, current&^mask|value)
}

// RevID returns the revision ID of the device.
func (d *Device) RevID() (byte, error) {
	d.busMu.Lock()
	defer d.busMu.Unlock()
	return d.read(RegRevID)
}

// State returns the current acquisition state.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Snapshot returns the diagnostic view of the device.
func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		State:       d.state.String(),
		Temperature: d.temp.currentState().String(),
		Config:      d.config,
		Stats:       d.stats,
	}
}

// fail marks the device faulted.
func (d *Device) fail() {
	d.mu.Lock()
	d.state = StateFaulted
	d.mu.Unlock()
}
