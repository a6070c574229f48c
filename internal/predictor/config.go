package predictor

type AlgType string

const (
	AlgTypeGaussianNB AlgType = "GNB"
)

type Config struct {
	Type AlgType `envconfig:"BANDSENSE_PREDICTOR_TYPE" default:"GNB"`
	// Variance smoothing relative to the largest feature variance
	VarSmoothing float64 `envconfig:"BANDSENSE_PREDICTOR_VAR_SMOOTHING" default:"1e-9"`
	// Zero seeds the shuffle from the clock
	ShuffleSeed uint32 `envconfig:"BANDSENSE_PREDICTOR_SHUFFLE_SEED" default:"0"`
}

func (c Config) PredictorType() AlgType {
	return c.Type
}
