package max30102

import (
	"time"

	"github.com/womat/debug"
)

// FIFO acquisition engine. The interrupt source calls Notify on each falling
// edge; drains run on a single worker goroutine so signals are processed one
// at a time in arrival order and multi-byte bus transactions never happen in
// the notification context.

// Notify queues one readiness signal. It never touches the bus and never
// blocks; when the queue is full the signal is dropped and counted, the
// pointer arithmetic of the next drain recovers the backlog.
func (d *Device) Notify() {
	select {
	case d.signals <- struct{}{}:
	default:
		d.mu.Lock()
		d.stats.DroppedSignals++
		d.mu.Unlock()
	}
}

func (d *Device) drainWorker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.done:
			return
		case <-d.signals:
			d.drain()
		}
	}
}

// drain processes one readiness signal: read and clear the status register
// pair, compute the pending sample count from the circular FIFO pointers,
// bulk-read and unpack the samples, then publish the batch. A bus failure
// aborts the signal; only maxFail consecutive failures fault the device.
func (d *Device) drain() {
	d.setWorkerState(StateDraining)
	defer d.setWorkerState(StateIdle)

	d.busMu.Lock()
	err := d.drainLocked()
	d.busMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		d.failures++
		d.stats.DrainFailures++
		debug.ErrorLog.Printf("fifo drain failed (%d consecutive): %v", d.failures, err)
		if d.failures >= d.maxFail {
			debug.ErrorLog.Printf("max30102 faulted after %d consecutive drain failures", d.failures)
			d.state = StateFaulted
		}
		return
	}
	d.failures = 0
}

func (d *Device) drainLocked() error {
	// Reading the status pair clears it on the device.
	status1, err := d.read(IntStat1)
	if err != nil {
		return err
	}
	status2, err := d.read(IntStat2)
	if err != nil {
		return err
	}

	for _, kind := range DecodeInterruptStatus(status1, status2) {
		switch kind {
		case IntAlmostFull:
			if err := d.drainFIFO(); err != nil {
				return err
			}
		case IntDieTempReady:
			// The status read above consumed the ready bit; hand it to the
			// pending temperature conversion.
			d.temp.resolve()
		case IntALCOverflow:
			debug.WarningLog.Print("ambient light cancellation overflow, reduce LED current")
		case IntPPGReady, IntPowerReady:
			debug.DebugLog.Printf("interrupt %v", kind)
		}
	}
	return nil
}

// drainFIFO reads all pending samples and publishes them as one batch. The
// caller holds busMu.
func (d *Device) drainFIFO() error {
	writePtr, err := d.read(FIFOWrPtr)
	if err != nil {
		return err
	}
	readPtr, err := d.read(FIFORdPtr)
	if err != nil {
		return err
	}

	pending := PendingSamples(writePtr, readPtr)
	if pending == 0 || pending > fifoDepth {
		// A readiness signal with nothing to read is a transient protocol
		// glitch: log it and drop the signal.
		d.mu.Lock()
		d.stats.Glitches++
		d.mu.Unlock()
		debug.ErrorLog.Printf("inconsistent fifo pointers: wr=%d rd=%d pending=%d", writePtr, readPtr, pending)
		return nil
	}

	raw := make([]byte, pending*sampleBytes)
	if err := d.bus.ReadRegister(FIFOData, raw); err != nil {
		return err
	}
	red, ir := UnpackSamples(raw)

	overflow, err := d.read(OvfCount)
	if err != nil {
		return err
	}
	if overflow > 0 {
		debug.WarningLog.Printf("fifo overflow: %d samples lost before this read", overflow)
	}

	d.buffer.publish(red, ir, overflow > 0)

	d.mu.Lock()
	d.stats.Drains++
	d.stats.Samples += uint64(pending)
	if overflow > 0 {
		d.stats.Overflows++
	}
	d.mu.Unlock()

	debug.TraceLog.Printf("drained %d samples (wr=%d rd=%d ovf=%d)", pending, writePtr, readPtr, overflow)
	return nil
}

// setWorkerState flips between the worker's steady states without touching
// a terminal fault.
func (d *Device) setWorkerState(s State) {
	d.mu.Lock()
	if d.state == StateArmed || d.state == StateIdle || d.state == StateDraining {
		d.state = s
	}
	d.mu.Unlock()
}

// TryReadBatch returns the most recent batch without blocking, or ErrNoData.
func (d *Device) TryReadBatch() (Batch, error) {
	return d.buffer.TryRead()
}

// ReadBatch blocks until a batch is ready. A timeout of zero blocks
// indefinitely.
func (d *Device) ReadBatch(timeout time.Duration) (Batch, error) {
	return d.buffer.Read(timeout)
}

// PollReady reports whether an unread batch is available.
func (d *Device) PollReady() bool {
	return d.buffer.Ready()
}
