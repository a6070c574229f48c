package band

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freqBins(fs float64, n int) []float64 {
	out := make([]float64, n/2+1)
	for k := range out {
		out[k] = float64(k) * fs / float64(n)
	}
	return out
}

func TestExtractorRanges(t *testing.T) {
	e, err := New(freqBins(256, 256), Default)
	require.NoError(t, err)

	expected := [][2]int{{1, 4}, {4, 8}, {8, 13}, {13, 30}, {30, 44}}
	assert.Equal(t, expected, e.ranges)
}

func TestExtractorExtract(t *testing.T) {
	freqs := freqBins(256, 256)
	e, err := New(freqs, Default)
	require.NoError(t, err)

	psd := make([][]float64, 4)
	for ch := range psd {
		psd[ch] = make([]float64, len(freqs))
		for k := range psd[ch] {
			psd[ch][k] = float64(ch)
		}
	}
	// alpha peak on channel 2
	for k := 8; k < 13; k++ {
		psd[2][k] = 10
	}

	got, err := e.Extract(psd)
	require.NoError(t, err)
	require.Len(t, got, 20)

	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 1.0, got[5])
	assert.Equal(t, 10.0, got[2*5+2])
	assert.Equal(t, 2.0, got[2*5+3])
	assert.Equal(t, 3.0, got[19])
}

func TestExtractorDimensionsStable(t *testing.T) {
	freqs := freqBins(220, 256)
	e, err := New(freqs, Default)
	require.NoError(t, err)

	for channels := 1; channels <= 4; channels++ {
		psd := make([][]float64, channels)
		for ch := range psd {
			psd[ch] = make([]float64, len(freqs))
		}
		for i := 0; i < 3; i++ {
			got, err := e.Extract(psd)
			require.NoError(t, err)
			assert.Len(t, got, e.Dimensions(channels))
		}
		assert.Len(t, e.Names(channels), e.Dimensions(channels))
	}
}

func TestExtractorShapeMismatch(t *testing.T) {
	e, err := New(freqBins(256, 256), Default)
	require.NoError(t, err)

	_, err = e.Extract([][]float64{make([]float64, 10)})
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		bands     []Band
		expectErr bool
	}{
		{name: "positive_default", bands: Default},
		{name: "negative_empty", bands: nil, expectErr: true},
		{name: "negative_inverted", bands: []Band{{Name: "x", Low: 10, High: 5}}, expectErr: true},
		{name: "negative_beyond_nyquist", bands: []Band{{Name: "x", Low: 200, High: 300}}, expectErr: true},
		{name: "negative_between_bins", bands: []Band{{Name: "x", Low: 10.2, High: 10.8}}, expectErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(freqBins(256, 256), test.bands)
			if (err != nil) != test.expectErr {
				t.Errorf("calling New, err got: %v, expected error: %v", err, test.expectErr)
			}
		})
	}
}

func TestNames(t *testing.T) {
	e, err := New(freqBins(256, 256), Default)
	require.NoError(t, err)

	names := e.Names(2)
	assert.Equal(t, "ch0/delta", names[0])
	assert.Equal(t, "ch1/gamma", names[9])
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bands.toml")
	content := "[[band]]\nname = \"mu\"\nlow = 8.0\nhigh = 12.0\n\n[[band]]\nname = \"smr\"\nlow = 12.0\nhigh = 15.0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	bands, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Band{{Name: "mu", Low: 8, High: 12}, {Name: "smr", Low: 12, High: 15}}, bands)

	bands, err = LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default, bands)

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
