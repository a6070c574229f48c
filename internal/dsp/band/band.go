// Package band reduces smoothed log spectra to band-power feature vectors.
package band

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/go-sod/bandsense/pkg/math/vector"
)

// Band covers frequencies in [Low, High).
type Band struct {
	Name string  `toml:"name"`
	Low  float64 `toml:"low"`
	High float64 `toml:"high"`
}

// Default is the canonical EEG band set.
var Default = []Band{
	{Name: "delta", Low: 1, High: 4},
	{Name: "theta", Low: 4, High: 8},
	{Name: "alpha", Low: 8, High: 13},
	{Name: "beta", Low: 13, High: 30},
	{Name: "gamma", Low: 30, High: 44},
}

type file struct {
	Band []Band `toml:"band"`
}

// LoadFile reads a band set from a TOML file. An empty path yields Default.
func LoadFile(path string) ([]Band, error) {
	if path == "" {
		return Default, nil
	}
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("band: decode %s: %w", path, err)
	}
	if len(f.Band) == 0 {
		return nil, fmt.Errorf("band: %s defines no bands", path)
	}
	return f.Band, nil
}

// Extractor maps bins to bands once, so boundaries never move mid-session.
type Extractor struct {
	bands  []Band
	ranges [][2]int
	bins   int
}

func New(freqs []float64, bands []Band) (*Extractor, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("band: empty band set")
	}

	e := &Extractor{bands: bands, ranges: make([][2]int, len(bands)), bins: len(freqs)}
	for i, b := range bands {
		if b.High <= b.Low {
			return nil, fmt.Errorf("band: %s has an empty range [%v, %v)", b.Name, b.Low, b.High)
		}
		lo, hi := -1, -1
		for k, f := range freqs {
			if f >= b.Low && f < b.High {
				if lo < 0 {
					lo = k
				}
				hi = k + 1
			}
		}
		if lo < 0 {
			return nil, fmt.Errorf("band: %s [%v, %v) contains no bins", b.Name, b.Low, b.High)
		}
		e.ranges[i] = [2]int{lo, hi}
	}

	return e, nil
}

func (e *Extractor) Bands() []Band { return e.bands }

// Dimensions returns the feature vector width for the given channel count.
func (e *Extractor) Dimensions(channels int) int {
	return channels * len(e.bands)
}

// Extract averages log power over each band of each channel, channel-major.
func (e *Extractor) Extract(psd [][]float64) (vector.V, error) {
	out := make(vector.V, 0, e.Dimensions(len(psd)))
	for ch := range psd {
		if len(psd[ch]) != e.bins {
			return nil, fmt.Errorf("band: channel %d has %d bins, expected %d", ch, len(psd[ch]), e.bins)
		}
		for _, r := range e.ranges {
			out = append(out, vector.New(psd[ch][r[0]:r[1]]).Mean())
		}
	}
	return out, nil
}

// Names labels every feature of a vector produced for channels.
func (e *Extractor) Names(channels int) []string {
	names := make([]string, 0, e.Dimensions(channels))
	for ch := 0; ch < channels; ch++ {
		for _, b := range e.bands {
			names = append(names, fmt.Sprintf("ch%d/%s", ch, b.Name))
		}
	}
	return names
}
