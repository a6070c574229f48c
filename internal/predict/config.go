package predict

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"BANDSENSE_PREDICT_REQUEST_TIMEOUT" default:"10s"`
	// Upper bound of n in GET /predict/results
	MaxResults int `envconfig:"BANDSENSE_PREDICT_MAX_RESULTS" default:"256"`
}
