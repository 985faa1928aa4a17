package max30102

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/womat/debug"
)

// One-shot die temperature conversion. A request writes the start bit and
// polls the second status register until the ready bit shows up or the
// attempt budget runs out; ten attempts at 10ms cover the datasheet's
// worst-case conversion time of about 29ms with margin.
//
// Reading the status register clears it, so a concurrently running FIFO
// drain can consume the ready bit first; the drain worker then resolves the
// pending request through the ready flag instead.

const (
	tempAttempts     = 10
	tempPollInterval = 10 * time.Millisecond

	// tempStep is the weight of one fractional LSB in degrees Celsius.
	tempStep = 0.0625
)

// tempState tracks the conversion protocol for diagnostics.
type tempState int32

const (
	tempIdle tempState = iota
	tempRequested
	tempPolling
	tempReady
	tempTimedOut
)

func (s tempState) String() string {
	switch s {
	case tempIdle:
		return "idle"
	case tempRequested:
		return "requested"
	case tempPolling:
		return "polling"
	case tempReady:
		return "ready"
	case tempTimedOut:
		return "timed-out"
	}
	return "unknown"
}

type temperature struct {
	// mu serializes conversions; the protocol is strictly one at a time.
	mu sync.Mutex
	// ready is set by the drain worker when it observes the die-temp-ready
	// status bit that the poll loop would otherwise miss.
	ready int32
	state int32
}

func (t *temperature) resolve() {
	atomic.StoreInt32(&t.ready, 1)
}

func (t *temperature) consumeReady() bool {
	return atomic.SwapInt32(&t.ready, 0) == 1
}

func (t *temperature) setState(s tempState) {
	atomic.StoreInt32(&t.state, int32(s))
}

func (t *temperature) currentState() tempState {
	return tempState(atomic.LoadInt32(&t.state))
}

// Temperature runs one die temperature conversion and returns the result in
// degrees Celsius. The integer part is two's-complement signed, the
// fractional part a non-negative increment. ErrTimeout is returned when the
// ready bit never shows within the attempt budget.
func (d *Device) Temperature() (float64, error) {
	d.temp.mu.Lock()
	defer d.temp.mu.Unlock()

	d.temp.consumeReady() // discard stale resolution
	d.temp.setState(tempRequested)

	d.busMu.Lock()
	err := d.write(TempCfg, TempEna)
	d.busMu.Unlock()
	if err != nil {
		d.temp.setState(tempIdle)
		return 0, err
	}

	d.temp.setState(tempPolling)
	ready := false
	for attempt := 0; attempt < tempAttempts; attempt++ {
		d.sleep(tempPollInterval)

		if d.temp.consumeReady() {
			ready = true
			break
		}

		d.busMu.Lock()
		status, err := d.read(IntStat2)
		d.busMu.Unlock()
		if err != nil {
			d.temp.setState(tempIdle)
			return 0, err
		}
		if status&(1<<IntDieTempReady) != 0 {
			ready = true
			break
		}
	}
	if !ready {
		d.temp.setState(tempTimedOut)
		debug.ErrorLog.Print("die temperature conversion timed out")
		return 0, ErrTimeout
	}
	d.temp.setState(tempReady)

	d.busMu.Lock()
	defer d.busMu.Unlock()

	integer, err := d.read(TempInt)
	if err != nil {
		return 0, err
	}
	fraction, err := d.read(TempFrac)
	if err != nil {
		return 0, err
	}

	return float64(int8(integer)) + float64(fraction)*tempStep, nil
}
