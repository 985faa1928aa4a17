package max30102

import (
	"fmt"

	"github.com/womat/debug"
)

// Configuration operations. Arguments are validated before any bus access;
// read-modify-write sequences hold the bus lock end to end so they never
// interleave with a FIFO drain or another configuration call. Every
// successful write updates the in-memory mirror.

// SetMode selects the operating mode: ModeHR, ModeSpO2 or ModeMultiLed.
func (d *Device) SetMode(mode byte) error {
	if mode != ModeHR && mode != ModeSpO2 && mode != ModeMultiLed {
		return fmt.Errorf("%w: mode %#02x", ErrInvalidArgument, mode)
	}

	d.busMu.Lock()
	defer d.busMu.Unlock()

	if err := d.write(ModeCfg, mode); err != nil {
		return err
	}

	d.mu.Lock()
	d.config.Mode = mode
	d.mu.Unlock()
	return nil
}

// SetSlot assigns an LED to one of the four conversion slots. Slot numbers
// run from 1 to 4; led is SlotNone, SlotRed or SlotIR.
func (d *Device) SetSlot(slot int, led byte) error {
	if slot < 1 || slot > 4 {
		return fmt.Errorf("%w: slot %d", ErrInvalidArgument, slot)
	}
	if led > SlotIR {
		return fmt.Errorf("%w: led code %#02x", ErrInvalidArgument, led)
	}

	d.busMu.Lock()
	defer d.busMu.Unlock()

	reg := slotRegister(slot)
	current, err := d.read(reg)
	if err != nil {
		return err
	}
	if err := d.write(reg, EncodeSlot(current, slot, led)); err != nil {
		return err
	}

	d.mu.Lock()
	d.config.Slots[slot-1] = led
	d.mu.Unlock()
	return nil
}

// SetInterrupt enables or disables a single interrupt source via
// read-modify-write of the matching enable register.
func (d *Device) SetInterrupt(kind Interrupt, enable bool) error {
	if !kind.valid() {
		return fmt.Errorf("%w: interrupt kind %d", ErrInvalidArgument, kind)
	}

	d.busMu.Lock()
	defer d.busMu.Unlock()

	reg := kind.enableRegister()
	current, err := d.read(reg)
	if err != nil {
		return err
	}
	value := EncodeInterruptEnable(current, kind, enable)
	if err := d.write(reg, value); err != nil {
		return err
	}

	d.mu.Lock()
	if reg == IntEna1 {
		d.config.IntEnable1 = value
	} else {
		d.config.IntEnable2 = value
	}
	d.mu.Unlock()

	debug.DebugLog.Printf("interrupt %v enabled=%v", kind, enable)
	return nil
}

// SetFIFOConfig writes a raw FIFO configuration byte. Sample-averaging codes
// above 0b101 are reserved and rejected.
func (d *Device) SetFIFOConfig(config byte) error {
	if smpAve, _, _ := DecodeFIFOConfig(config); smpAve > smpAveMax {
		return fmt.Errorf("%w: fifo config %#02x", ErrInvalidArgument, config)
	}

	d.busMu.Lock()
	defer d.busMu.Unlock()

	if err := d.write(FIFOCfg, config); err != nil {
		return err
	}

	d.mu.Lock()
	d.config.FIFO = config
	d.mu.Unlock()
	return nil
}

// SetSpO2Config writes a raw SpO2 configuration byte. The reserved top bit
// must be zero and the sample rate must be reachable at the selected pulse
// width.
func (d *Device) SetSpO2Config(config byte) error {
	if err := validateSpO2Config(config); err != nil {
		return err
	}

	d.busMu.Lock()
	defer d.busMu.Unlock()

	if err := d.write(SpO2Cfg, config); err != nil {
		return err
	}

	d.mu.Lock()
	d.config.SpO2 = config
	d.mu.Unlock()
	return nil
}

// validateSpO2Config checks the reserved bit and the datasheet's pulse
// width / sample rate compatibility: a narrower pulse width caps the
// reachable sample rate.
func validateSpO2Config(config byte) error {
	if config&spo2Reserved != 0 {
		return fmt.Errorf("%w: spo2 config %#02x has reserved bits set", ErrInvalidArgument, config)
	}
	_, sr, pw := DecodeSpO2Config(config)
	if (pw == PW69 && sr > SR800) || (pw == PW118 && sr > SR1600) {
		return fmt.Errorf("%w: sample rate %d not reachable at pulse width %d", ErrInvalidArgument, sr, pw)
	}
	return nil
}

// SetPulseAmplitude sets the pulse amplitude register of one LED channel
// (SlotRed or SlotIR). One step is 0.2mA.
func (d *Device) SetPulseAmplitude(led, amplitude byte) error {
	var reg byte
	switch led {
	case SlotRed:
		reg = Led1PA
	case SlotIR:
		reg = Led2PA
	default:
		return fmt.Errorf("%w: led code %#02x", ErrInvalidArgument, led)
	}

	d.busMu.Lock()
	defer d.busMu.Unlock()

	if err := d.write(reg, amplitude); err != nil {
		return err
	}

	d.mu.Lock()
	if led == SlotRed {
		d.config.RedAmplitude = amplitude
	} else {
		d.config.IRAmplitude = amplitude
	}
	d.mu.Unlock()
	return nil
}
