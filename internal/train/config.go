package train

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"BANDSENSE_TRAIN_REQUEST_TIMEOUT" default:"60s"`
	// Folds used by POST /fit/score when the request names none
	DefaultFolds int `envconfig:"BANDSENSE_TRAIN_DEFAULT_FOLDS" default:"5"`
}
