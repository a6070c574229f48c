// Package spectral estimates log power spectral densities of sample windows
// and smooths them over time.
package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// powerFloor keeps log10 finite for silent bins.
const powerFloor = 1e-12

func NewEstimator(sampleRate float64, fftLength int) (*Estimator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("spectral: invalid sampling rate %v", sampleRate)
	}
	if fftLength < 2 {
		return nil, fmt.Errorf("spectral: invalid transform length %d", fftLength)
	}

	w := window.Hamming(fftLength)
	bins := fftLength/2 + 1
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * sampleRate / float64(fftLength)
	}

	return &Estimator{
		sampleRate: sampleRate,
		length:     fftLength,
		fft:        fourier.NewFFT(fftLength),
		window:     w,
		scale:      1 / (sampleRate * floats.Dot(w, w)),
		freqs:      freqs,
	}, nil
}

// Estimator is not safe for concurrent use, the transform keeps a work area.
type Estimator struct {
	sampleRate float64
	length     int
	fft        *fourier.FFT
	window     []float64
	scale      float64
	freqs      []float64
}

// FreqBins returns the frequency of every output bin, DC to Nyquist.
func (e *Estimator) FreqBins() []float64 {
	return e.freqs
}

func (e *Estimator) Len() int { return e.length }

// ComputeLogPSD returns the one-sided log10 power spectral density of the most
// recent transform-length samples. Shorter input is zero padded.
func (e *Estimator) ComputeLogPSD(samples []float64) []float64 {
	if len(samples) > e.length {
		samples = samples[len(samples)-e.length:]
	}

	seq := make([]float64, e.length)
	copy(seq, samples)
	if len(samples) > 0 {
		mean := floats.Sum(samples) / float64(len(samples))
		for i := range samples {
			seq[i] -= mean
		}
	}
	floats.Mul(seq, e.window)

	coeffs := e.fft.Coefficients(nil, seq)
	psd := make([]float64, len(coeffs))
	for k, c := range coeffs {
		p := cmplx.Abs(c)
		p = p * p * e.scale
		// DC and Nyquist have no mirrored half
		if k != 0 && !(e.length%2 == 0 && k == len(coeffs)-1) {
			p *= 2
		}
		psd[k] = math.Log10(math.Max(p, powerFloor))
	}

	return psd
}

// Frame computes the log PSD of every channel of a [channel][sample] window.
func (e *Estimator) Frame(window [][]float64) [][]float64 {
	frame := make([][]float64, len(window))
	for ch := range window {
		frame[ch] = e.ComputeLogPSD(window[ch])
	}
	return frame
}
