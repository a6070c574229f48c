package noise

type Config struct {
	VarianceThreshold float64 `envconfig:"BANDSENSE_NOISE_VARIANCE_THRESHOLD" default:"600"`
	// Zero disables the saturation check
	SaturationLevel float64 `envconfig:"BANDSENSE_NOISE_SATURATION_LEVEL" default:"0"`
	// Thresholds are divided by the sensitivity
	Sensitivity float64 `envconfig:"BANDSENSE_NOISE_SENSITIVITY" default:"1"`
}
