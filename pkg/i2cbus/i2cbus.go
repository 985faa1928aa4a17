// Package i2cbus is the register transport for the sensor, backed by
// periph.io. Burst reads are split so no single transaction carries more
// than the transport's payload limit.
package i2cbus

import (
	"fmt"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

// maxPayload is the largest payload moved per transaction. FIFO bursts are
// chunked to a multiple of the 6-byte sample size below this limit.
const maxPayload = 30

// Bus is one addressed device on an I2C bus.
type Bus struct {
	dev *i2c.Dev
	bus i2c.BusCloser
}

// Open initializes the host and opens the named I2C bus ("/dev/i2c-1",
// "I2C1", "1", or "" for the first available one).
func Open(busName string, addr uint16) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2cbus: could not initialize host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("i2cbus: could not open I2C bus: %w", err)
	}

	return &Bus{
		dev: &i2c.Dev{Addr: addr, Bus: bus},
		bus: bus,
	}, nil
}

// ReadRegister fills buf from the given register. Reads larger than the
// payload limit are issued as multiple transactions re-addressing the same
// register, which matches the device's FIFO data port semantics.
func (b *Bus) ReadRegister(reg byte, buf []byte) error {
	for len(buf) > 0 {
		n := len(buf)
		if n > maxPayload {
			n = maxPayload
		}
		if err := b.dev.Tx([]byte{reg}, buf[:n]); err != nil {
			return fmt.Errorf("i2cbus: could not read %d bytes from %#02x: %w", n, reg, err)
		}
		buf = buf[n:]
	}
	return nil
}

// WriteRegister writes the given bytes to a register.
func (b *Bus) WriteRegister(reg byte, data ...byte) error {
	n, err := b.dev.Write(append([]byte{reg}, data...))
	if err != nil {
		return fmt.Errorf("i2cbus: could not write register %#02x: %w", reg, err)
	}
	if n != len(data)+1 {
		return fmt.Errorf("i2cbus: short write to %#02x: %d of %d bytes", reg, n, len(data)+1)
	}
	return nil
}

// Close releases the underlying bus.
func (b *Bus) Close() error {
	return b.bus.Close()
}
