// Package ringbuf implements a fixed-capacity multi-channel sample ring.
//
// The ring overwrites its oldest sample once full. A pending counter tracks how
// many samples were pushed since the last extraction, which lets the consumer
// decide on its own step size between windows.
package ringbuf

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnderrun is returned by Extract when not enough samples were written yet.
var ErrUnderrun = errors.New("ringbuf: not enough samples")

func New(channels, capacity int) (*Buffer, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("ringbuf: invalid number of channels %d", channels)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("ringbuf: invalid capacity %d", capacity)
	}

	data := make([][]float64, channels)
	for i := range data {
		data[i] = make([]float64, capacity)
	}

	return &Buffer{
		channels: channels,
		capacity: capacity,
		data:     data,
		notifyCh: make(chan struct{}, 1),
	}, nil
}

type Buffer struct {
	mtx sync.Mutex

	channels int
	capacity int
	data     [][]float64
	// next write position
	cursor int
	// total samples ever written
	written uint64
	// samples written since the last extraction
	pending int

	notifyCh chan struct{}
}

// Push appends one sample, one value per channel. Missing channels are stored
// as zero, extra values are ignored.
func (b *Buffer) Push(sample []float64) {
	b.mtx.Lock()
	for ch := 0; ch < b.channels; ch++ {
		var v float64
		if ch < len(sample) {
			v = sample[ch]
		}
		b.data[ch][b.cursor] = v
	}
	b.cursor = (b.cursor + 1) % b.capacity
	b.written++
	if b.pending < b.capacity {
		b.pending++
	}
	b.mtx.Unlock()

	select {
	case b.notifyCh <- struct{}{}:
	default:
	}
}

// Pending returns the number of samples pushed since the last Extract.
// The value saturates at the capacity of the ring.
func (b *Buffer) Pending() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.pending
}

// Written returns the total number of samples pushed.
func (b *Buffer) Written() uint64 {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.written
}

func (b *Buffer) Channels() int { return b.channels }

func (b *Buffer) Cap() int { return b.capacity }

// Notify returns a channel that receives a token after a push.
func (b *Buffer) Notify() <-chan struct{} {
	return b.notifyCh
}

// Extract copies the n most recent samples of every channel in chronological
// order and resets the pending counter.
func (b *Buffer) Extract(n int) ([][]float64, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	if n <= 0 || n > b.capacity || uint64(n) > b.written {
		return nil, ErrUnderrun
	}

	out := make([][]float64, b.channels)
	start := (b.cursor - n + b.capacity) % b.capacity
	for ch := range out {
		window := make([]float64, n)
		if start+n <= b.capacity {
			copy(window, b.data[ch][start:start+n])
		} else {
			k := copy(window, b.data[ch][start:])
			copy(window[k:], b.data[ch][:n-k])
		}
		out[ch] = window
	}
	b.pending = 0

	return out, nil
}

// Reset drops all samples and counters.
func (b *Buffer) Reset() {
	b.mtx.Lock()
	for ch := range b.data {
		for i := range b.data[ch] {
			b.data[ch][i] = 0
		}
	}
	b.cursor = 0
	b.written = 0
	b.pending = 0
	b.mtx.Unlock()

	select {
	case <-b.notifyCh:
	default:
	}
}
