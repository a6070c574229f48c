package filter

type Config struct {
	NotchFreq float64 `envconfig:"BANDSENSE_FILTER_NOTCH_FREQ" default:"60"`
	Bandwidth float64 `envconfig:"BANDSENSE_FILTER_BANDWIDTH" default:"10"`
	Sections  int     `envconfig:"BANDSENSE_FILTER_SECTIONS" default:"2"`
	// Filtering applies only at this sampling rate when no explicit flag is set
	DefaultRate float64 `envconfig:"BANDSENSE_FILTER_DEFAULT_RATE" default:"256"`
}
