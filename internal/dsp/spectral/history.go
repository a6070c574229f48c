package spectral

import (
	"fmt"

	"github.com/go-sod/bandsense/pkg/math/vector"
)

func NewHistory(depth, channels, bins int) (*History, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("spectral: invalid history depth %d", depth)
	}
	frames := make([][][]float64, depth)
	for i := range frames {
		frames[i] = make([][]float64, channels)
		for ch := range frames[i] {
			frames[i][ch] = make([]float64, bins)
		}
	}
	return &History{depth: depth, channels: channels, bins: bins, frames: frames}, nil
}

// History keeps the last depth PSD frames.
type History struct {
	depth    int
	channels int
	bins     int
	frames   [][][]float64
	next     int
	size     int
}

// Update copies frame into the ring, evicting the oldest one when full.
func (h *History) Update(frame [][]float64) error {
	if len(frame) != h.channels {
		return fmt.Errorf("spectral: frame has %d channels, expected %d", len(frame), h.channels)
	}
	for ch := range frame {
		if len(frame[ch]) != h.bins {
			return fmt.Errorf("spectral: frame has %d bins, expected %d", len(frame[ch]), h.bins)
		}
		copy(h.frames[h.next][ch], frame[ch])
	}
	h.next = (h.next + 1) % h.depth
	if h.size < h.depth {
		h.size++
	}
	return nil
}

// Mean returns the elementwise mean over the frames currently held.
func (h *History) Mean() [][]float64 {
	mean := make([][]float64, h.channels)
	for ch := range mean {
		mean[ch] = make([]float64, h.bins)
	}
	if h.size == 0 {
		return mean
	}
	for ch := range mean {
		acc := vector.V(mean[ch])
		for i := 0; i < h.size; i++ {
			acc.Add(h.frames[i][ch])
		}
		acc.Scale(1 / float64(h.size))
	}
	return mean
}

func (h *History) Len() int { return h.size }

func (h *History) Reset() {
	h.next = 0
	h.size = 0
}
