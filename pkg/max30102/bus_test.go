package max30102

import (
	"fmt"
	"sync"
	"time"
)

// fakeBus is an in-memory register file standing in for the I2C transport.
type busOp struct {
	reg   byte
	value byte
}

type fakeBus struct {
	mu        sync.Mutex
	regs      map[byte]byte
	fifo      []byte
	writes    []busOp
	reads     []byte
	readCount map[byte]int

	readErr  map[byte]error
	writeErr map[byte]error
	// onRead overrides the register file for scripted status sequences;
	// count is 1 for the first read of that register.
	onRead map[byte]func(count int) (byte, error)
	// clearOnRead mimics the status registers clearing when read.
	clearOnRead map[byte]bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:        map[byte]byte{RegPartID: PartID},
		readCount:   map[byte]int{},
		readErr:     map[byte]error{},
		writeErr:    map[byte]error{},
		onRead:      map[byte]func(count int) (byte, error){},
		clearOnRead: map[byte]bool{IntStat1: true, IntStat2: true},
	}
}

func (f *fakeBus) ReadRegister(reg byte, buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads = append(f.reads, reg)
	f.readCount[reg]++

	if err := f.readErr[reg]; err != nil {
		return err
	}

	if reg == FIFOData {
		if len(buf) > len(f.fifo) {
			return fmt.Errorf("fifo underrun: want %d bytes, have %d", len(buf), len(f.fifo))
		}
		copy(buf, f.fifo[:len(buf)])
		f.fifo = f.fifo[len(buf):]
		return nil
	}

	if hook := f.onRead[reg]; hook != nil {
		v, err := hook(f.readCount[reg])
		if err != nil {
			return err
		}
		buf[0] = v
		return nil
	}

	buf[0] = f.regs[reg]
	if f.clearOnRead[reg] {
		f.regs[reg] = 0
	}
	return nil
}

func (f *fakeBus) WriteRegister(reg byte, data ...byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.writeErr[reg]; err != nil {
		return err
	}
	for _, v := range data {
		f.writes = append(f.writes, busOp{reg, v})
		f.regs[reg] = v
	}
	return nil
}

// transactions returns the total number of bus accesses seen.
func (f *fakeBus) transactions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reads) + len(f.writes)
}

// lastWrite returns the most recent write to reg.
func (f *fakeBus) lastWrite(reg byte) (byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.writes) - 1; i >= 0; i-- {
		if f.writes[i].reg == reg {
			return f.writes[i].value, true
		}
	}
	return 0, false
}

// loadFIFO installs n samples and the matching pointers and status bit.
func (f *fakeBus) loadFIFO(samples [][6]byte, writePtr, readPtr, overflow byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fifo = f.fifo[:0]
	for _, s := range samples {
		f.fifo = append(f.fifo, s[:]...)
	}
	f.regs[FIFOWrPtr] = writePtr
	f.regs[FIFORdPtr] = readPtr
	f.regs[OvfCount] = overflow
	f.regs[IntStat1] = 1 << IntAlmostFull
}

// newTestDevice returns a device on a fake bus with delays disabled.
func newTestDevice() (*Device, *fakeBus) {
	bus := newFakeBus()
	d := New(bus, nil)
	d.sleep = func(time.Duration) {}
	return d, bus
}
