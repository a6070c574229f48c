// Package noise flags windows that carry movement or contact artifacts.
package noise

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

type Option func(*Gate)

// WithSaturation flags a channel when any absolute sample reaches level.
func WithSaturation(level float64) Option {
	return func(g *Gate) {
		g.saturation = level
	}
}

// WithSensitivity divides both thresholds by s, so a higher sensitivity flags
// quieter artifacts. Non-positive values keep the thresholds as they are.
func WithSensitivity(s float64) Option {
	return func(g *Gate) {
		if s > 0 {
			g.sensitivity = s
		}
	}
}

func New(threshold float64, opts ...Option) *Gate {
	g := &Gate{threshold: threshold, sensitivity: 1}
	for _, f := range opts {
		f(g)
	}
	return g
}

type Gate struct {
	threshold   float64
	saturation  float64
	sensitivity float64
}

// Detect returns one flag per channel of a [channel][sample] window.
func (g *Gate) Detect(window [][]float64) []bool {
	flags := make([]bool, len(window))
	for ch, samples := range window {
		if len(samples) < 2 {
			continue
		}
		if stat.Variance(samples, nil) > g.threshold/g.sensitivity {
			flags[ch] = true
			continue
		}
		if g.saturation > 0 {
			for _, v := range samples {
				if math.Abs(v) >= g.saturation/g.sensitivity {
					flags[ch] = true
					break
				}
			}
		}
	}
	return flags
}

// Reject reports whether any channel of the window is flagged.
func (g *Gate) Reject(window [][]float64) bool {
	return AnyFlagged(g.Detect(window))
}

func AnyFlagged(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}
