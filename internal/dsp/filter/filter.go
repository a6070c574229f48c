// Package filter removes mains interference from raw samples with a cascade
// of biquad notch sections.
package filter

import (
	"fmt"
	"math"
)

type Option func(*Notch)

func WithBandwidth(hz float64) Option {
	return func(n *Notch) {
		n.bandwidth = hz
	}
}

func WithSections(num int) Option {
	return func(n *Notch) {
		n.sections = num
	}
}

// WithDisabled turns the filter into a pass-through.
func WithDisabled() Option {
	return func(n *Notch) {
		n.disabled = true
	}
}

type coefficients struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// Notch is immutable after construction and can be shared between sessions.
// The per-channel history lives in State.
type Notch struct {
	sampleRate float64
	freq       float64
	bandwidth  float64
	sections   int
	disabled   bool
	coef       coefficients
}

func New(sampleRate, freq float64, opts ...Option) (*Notch, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("filter: invalid sampling rate %v", sampleRate)
	}

	n := &Notch{
		sampleRate: sampleRate,
		freq:       freq,
		bandwidth:  10,
		sections:   2,
	}
	for _, f := range opts {
		f(n)
	}

	if n.sections <= 0 {
		return nil, fmt.Errorf("filter: invalid number of sections %d", n.sections)
	}
	if n.bandwidth <= 0 {
		return nil, fmt.Errorf("filter: invalid bandwidth %v", n.bandwidth)
	}
	// nothing to remove at or above nyquist
	if freq <= 0 || freq >= sampleRate/2 {
		n.disabled = true
		return n, nil
	}

	w0 := 2 * math.Pi * freq / sampleRate
	q := freq / n.bandwidth
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)
	a0 := 1 + alpha

	n.coef = coefficients{
		b0: 1 / a0,
		b1: -2 * cosW0 / a0,
		b2: 1 / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}

	return n, nil
}

func (n *Notch) Enabled() bool {
	return !n.disabled
}

// State holds the delay lines of every section for every channel.
type State struct {
	// [channel][section]
	x1, x2, y1, y2 [][]float64
}

func (n *Notch) NewState(channels int) *State {
	s := &State{
		x1: make([][]float64, channels),
		x2: make([][]float64, channels),
		y1: make([][]float64, channels),
		y2: make([][]float64, channels),
	}
	for ch := 0; ch < channels; ch++ {
		s.x1[ch] = make([]float64, n.sections)
		s.x2[ch] = make([]float64, n.sections)
		s.y1[ch] = make([]float64, n.sections)
		s.y2[ch] = make([]float64, n.sections)
	}
	return s
}

// Reset zeroes the delay lines.
func (s *State) Reset() {
	for _, lines := range [][][]float64{s.x1, s.x2, s.y1, s.y2} {
		for ch := range lines {
			for i := range lines[ch] {
				lines[ch][i] = 0
			}
		}
	}
}

// Transform filters one sample and advances the state. Channels beyond the
// width of the state are copied unchanged.
func (n *Notch) Transform(sample []float64, state *State) []float64 {
	out := make([]float64, len(sample))
	copy(out, sample)
	if n.disabled || state == nil {
		return out
	}

	c := n.coef
	for ch := range out {
		if ch >= len(state.x1) {
			break
		}
		x := out[ch]
		for sec := 0; sec < n.sections; sec++ {
			y := c.b0*x + c.b1*state.x1[ch][sec] + c.b2*state.x2[ch][sec] -
				c.a1*state.y1[ch][sec] - c.a2*state.y2[ch][sec]
			state.x2[ch][sec] = state.x1[ch][sec]
			state.x1[ch][sec] = x
			state.y2[ch][sec] = state.y1[ch][sec]
			state.y1[ch][sec] = y
			x = y
		}
		out[ch] = x
	}

	return out
}
