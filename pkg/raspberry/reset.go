package raspberry

import (
	"github.com/warthog618/gpio"
	"github.com/womat/debug"
)

// ResetPin drives the sensor's active-low hardware reset line through the
// memory-mapped GPIO interface. The pin is released (high) when opened.
type ResetPin struct {
	gpioPin *gpio.Pin
}

// OpenReset maps the GPIO memory range and claims the given BCM pin as an
// output.
func OpenReset(pin int) (*ResetPin, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}

	p := gpio.NewPin(pin)
	p.Output()
	p.High()
	return &ResetPin{gpioPin: p}, nil
}

// Assert pulls the reset line low.
func (r *ResetPin) Assert() {
	debug.TraceLog.Printf("asserting reset on pin %d", r.gpioPin.Pin())
	r.gpioPin.Low()
}

// Release lets the reset line return high.
func (r *ResetPin) Release() {
	r.gpioPin.High()
}

// Close releases the line and unmaps the GPIO memory.
func (r *ResetPin) Close() error {
	r.gpioPin.High()
	return gpio.Close()
}
