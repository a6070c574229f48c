package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, freq, fs, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return out
}

func argmax(v []float64) int {
	idx := 0
	for i := range v {
		if v[i] > v[idx] {
			idx = i
		}
	}
	return idx
}

func TestEstimatorFreqBins(t *testing.T) {
	tests := []struct {
		name         string
		fs           float64
		length       int
		expectedBins int
		expectedLast float64
	}{
		{name: "muse_2016", fs: 256, length: 256, expectedBins: 129, expectedLast: 128},
		{name: "muse_2014", fs: 220, length: 256, expectedBins: 129, expectedLast: 110},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e, err := NewEstimator(test.fs, test.length)
			require.NoError(t, err)
			bins := e.FreqBins()
			assert.Len(t, bins, test.expectedBins)
			assert.InDelta(t, 0, bins[0], 1e-12)
			assert.InDelta(t, test.expectedLast, bins[len(bins)-1], 1e-9)
		})
	}
}

func TestEstimatorPeak(t *testing.T) {
	tests := []struct {
		name string
		freq float64
	}{
		{name: "alpha", freq: 10},
		{name: "beta", freq: 20},
		{name: "theta", freq: 6},
	}

	e, err := NewEstimator(256, 256)
	require.NoError(t, err)

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			psd := e.ComputeLogPSD(tone(256, test.freq, 256, 50))
			require.Len(t, psd, 129)
			assert.InDelta(t, test.freq, e.FreqBins()[argmax(psd)], 1e-9)
		})
	}
}

func TestEstimatorSilence(t *testing.T) {
	e, err := NewEstimator(256, 256)
	require.NoError(t, err)

	psd := e.ComputeLogPSD(make([]float64, 256))
	for k := range psd {
		assert.False(t, math.IsInf(psd[k], 0) || math.IsNaN(psd[k]), "bin %d is not finite", k)
		assert.InDelta(t, math.Log10(powerFloor), psd[k], 1e-9)
	}
}

func TestEstimatorShortInput(t *testing.T) {
	e, err := NewEstimator(256, 256)
	require.NoError(t, err)

	assert.Len(t, e.ComputeLogPSD(tone(100, 10, 256, 1)), 129)
	assert.Len(t, e.ComputeLogPSD(tone(400, 10, 256, 1)), 129)
}

func TestHistoryMean(t *testing.T) {
	tests := []struct {
		name     string
		depth    int
		updates  []float64
		expected float64
	}{
		{name: "single_frame", depth: 4, updates: []float64{2}, expected: 2},
		{name: "partial", depth: 4, updates: []float64{1, 3}, expected: 2},
		{name: "evicts_oldest", depth: 2, updates: []float64{100, 1, 3}, expected: 2},
		{name: "empty", depth: 3, updates: nil, expected: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h, err := NewHistory(test.depth, 2, 3)
			require.NoError(t, err)
			for _, v := range test.updates {
				require.NoError(t, h.Update([][]float64{{v, v, v}, {-v, -v, -v}}))
			}
			mean := h.Mean()
			for k := 0; k < 3; k++ {
				assert.InDelta(t, test.expected, mean[0][k], 1e-12)
				assert.InDelta(t, -test.expected, mean[1][k], 1e-12)
			}
		})
	}
}

func TestHistoryUpdateShape(t *testing.T) {
	h, err := NewHistory(2, 2, 3)
	require.NoError(t, err)

	assert.Error(t, h.Update([][]float64{{1, 2, 3}}))
	assert.Error(t, h.Update([][]float64{{1, 2, 3}, {1, 2}}))
	assert.Equal(t, 0, h.Len())

	require.NoError(t, h.Update([][]float64{{1, 2, 3}, {1, 2, 3}}))
	h.Reset()
	assert.Equal(t, 0, h.Len())
}
