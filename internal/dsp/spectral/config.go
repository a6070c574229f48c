package spectral

type Config struct {
	FFTLength    int `envconfig:"BANDSENSE_FFT_LENGTH" default:"256"`
	HistoryDepth int `envconfig:"BANDSENSE_PSD_HISTORY_DEPTH" default:"4"`
}
