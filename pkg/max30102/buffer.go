package max30102

import (
	"sync"
	"time"
)

// Batch is one drained FIFO batch: up to 32 (red, IR) sample pairs, each an
// 18-bit magnitude. Overflowed marks that the hardware dropped samples
// before this batch was read; the batch itself is still complete.
type Batch struct {
	Time       time.Time `json:"time"`
	Red        []uint32  `json:"red"`
	IR         []uint32  `json:"ir"`
	Overflowed bool      `json:"overflowed"`
}

// Length returns the number of sample pairs in the batch.
func (b Batch) Length() int {
	return len(b.Red)
}

// Buffer holds the most recent sample batch and hands it off from the drain
// worker to consumers. Two locks tier the critical sections: mu guards the
// logical read-then-clear operation end to end, so a reader never observes
// a half-consumed batch, while latch guards only the physical copy and flag
// flip. Invariant: latch is never held across bus I/O, channel operations
// or any other blocking call.
type Buffer struct {
	// mu serializes consumers; held across the whole read-then-clear.
	mu sync.Mutex
	// latch protects the batch storage and the ready flag; copy-only
	// critical sections.
	latch sync.Mutex

	red, ir    [fifoDepth]uint32
	length     int
	overflowed bool
	stamp      time.Time
	ready      bool

	notify chan struct{}
}

// NewBuffer returns an empty sample buffer.
func NewBuffer() *Buffer {
	return &Buffer{notify: make(chan struct{}, 1)}
}

// publish replaces the buffered batch and wakes one waiting consumer. Only
// the drain worker calls it; ready transitions false to true here and
// nowhere else.
func (b *Buffer) publish(red, ir []uint32, overflowed bool) {
	b.latch.Lock()
	n := copy(b.red[:], red)
	copy(b.ir[:], ir)
	b.length = n
	b.overflowed = overflowed
	b.stamp = time.Now()
	b.ready = true
	b.latch.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// TryRead returns the buffered batch and clears the ready flag, or ErrNoData
// when nothing is ready. Exactly one consumer wins a given batch; a
// concurrent second reader gets ErrNoData.
func (b *Buffer) TryRead() (Batch, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.take()
}

// take copies out the batch under the latch. The caller holds mu.
func (b *Buffer) take() (Batch, error) {
	b.latch.Lock()
	defer b.latch.Unlock()

	if !b.ready {
		return Batch{}, ErrNoData
	}

	batch := Batch{
		Time:       b.stamp,
		Red:        append([]uint32(nil), b.red[:b.length]...),
		IR:         append([]uint32(nil), b.ir[:b.length]...),
		Overflowed: b.overflowed,
	}
	b.ready = false
	return batch, nil
}

// Read blocks until a batch is ready and returns it. A timeout of zero
// blocks indefinitely; otherwise ErrTimeout is returned when the deadline
// passes with nothing published.
func (b *Buffer) Read(timeout time.Duration) (Batch, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		if batch, err := b.take(); err == nil {
			return batch, nil
		}

		select {
		case <-b.notify:
		case <-deadline:
			return Batch{}, ErrTimeout
		}
	}
}

// Ready reports whether an unread batch is buffered.
func (b *Buffer) Ready() bool {
	b.latch.Lock()
	defer b.latch.Unlock()
	return b.ready
}
