// Package raspberry is the GPIO layer: the sensor's interrupt line watched
// for falling edges and the active-low reset pin.
package raspberry

import (
	"fmt"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"
)

var ErrInvalidParam = fmt.Errorf("invalid parameters")

// Event is one detected falling edge on the interrupt line.
type Event struct {
	// Time is when the edge was detected.
	Time time.Time
	// Pin is the BCM line number the edge arrived on.
	Pin int
}

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
}

// Line represents a single requested line.
type Line struct {
	gpiodLine *gpiod.Line
	pin       int
	debounce  time.Duration
	last      time.Time
	// C receives one event per accepted falling edge.
	C chan Event
}

// Open opens a GPIO character device.
func Open(name string) (*Chip, error) {
	if name == "" {
		name = "gpiochip0"
	}
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// Watch requests a line and reports its falling edges on the returned
// Line's channel. Edges closer together than the debounce interval are
// dropped; the interrupt line idles high, so terminator is usually
// "pullup". There can only be one watcher on the line at a time.
func (c *Chip) Watch(pin int, terminator string, debounceTime time.Duration) (*Line, error) {
	line := &Line{
		pin:      pin,
		debounce: debounceTime,
		C:        make(chan Event, 1),
	}

	handler := func(evt gpiod.LineEvent) {
		if evt.Type != gpiod.LineEventFallingEdge {
			return
		}

		now := time.Now()
		if line.debounce > 0 && now.Sub(line.last) < line.debounce {
			debug.TraceLog.Printf("bounce on pin %d suppressed", line.pin)
			return
		}
		line.last = now

		// Dropping a crowded edge is safe: the next drain recovers the
		// backlog from the FIFO pointers.
		select {
		case line.C <- Event{Time: now, Pin: line.pin}:
		default:
			debug.TraceLog.Printf("edge on pin %d dropped, consumer busy", line.pin)
		}
	}

	opts := []gpiod.LineReqOption{gpiod.WithEventHandler(handler), gpiod.WithFallingEdge, gpiod.AsInput}
	switch terminator {
	case "pullup":
		opts = append(opts, gpiod.WithPullUp)
	case "pulldown":
		opts = append(opts, gpiod.WithPullDown)
	case "none", "":
	default:
		return nil, ErrInvalidParam
	}

	var err error
	line.gpiodLine, err = c.gpiodChip.RequestLine(pin, opts...)
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Close releases all resources held by the requested line.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the
// event handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}
	close(l.C)
	return nil
}
